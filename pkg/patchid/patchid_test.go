package patchid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNegative(t *testing.T) {
	_, err := New(-1, 0, 0)
	require.Error(t, err)

	_, err = New(0, -1, 0)
	require.Error(t, err)

	id, err := New(0, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, ID{0, 3, 4}, id)
}

func TestKeyIsDeterministic(t *testing.T) {
	id := ID{Level: 2, IX: 5, IY: 7}
	assert.Equal(t, "2__5_7", id.Key())
	assert.Equal(t, id.Key(), id.Key())
}

func TestSideDoublesPerLevel(t *testing.T) {
	assert.Equal(t, 64.0, Side(64, 0))
	assert.Equal(t, 128.0, Side(64, 1))
	assert.Equal(t, 256.0, Side(64, 2))
}

func TestContainsCentre(t *testing.T) {
	parent := ID{Level: 1, IX: 0, IY: 0} // world box [0,128)x[0,128) at base=64
	for _, child := range parent.Children() {
		assert.True(t, parent.Contains(64, child), "parent should contain child %v", child)
	}

	outside := ID{Level: 0, IX: 10, IY: 10}
	assert.False(t, parent.Contains(64, outside))
}

func TestContainsRejectsSameOrCoarserLevel(t *testing.T) {
	a := ID{Level: 1, IX: 0, IY: 0}
	b := ID{Level: 1, IX: 0, IY: 0}
	assert.False(t, a.Contains(64, b))

	c := ID{Level: 2, IX: 0, IY: 0}
	assert.False(t, a.Contains(64, c))
}

func TestNeighbour(t *testing.T) {
	id := ID{Level: 0, IX: 5, IY: 5}
	assert.Equal(t, ID{0, 6, 5}, id.Neighbour(1, 0))
	assert.Equal(t, ID{0, 4, 5}, id.Neighbour(-1, 0))
	assert.Equal(t, ID{0, 5, 6}, id.Neighbour(0, 1))
	assert.Equal(t, ID{0, 5, 4}, id.Neighbour(0, -1))
}

func TestParentRoundTripsThroughChildren(t *testing.T) {
	parent := ID{Level: 3, IX: 2, IY: 7}
	for _, child := range parent.Children() {
		assert.Equal(t, parent, child.Parent())
	}
}

func TestChildrenPanicsAtLevelZero(t *testing.T) {
	assert.Panics(t, func() {
		ID{Level: 0, IX: 0, IY: 0}.Children()
	})
}

func TestBoundAndOrigin(t *testing.T) {
	id := ID{Level: 0, IX: 2, IY: 3}
	x, z := id.Origin(64)
	assert.Equal(t, 128.0, x)
	assert.Equal(t, 192.0, z)

	b := id.Bound(64)
	assert.Equal(t, 192.0, b.Max[0])
	assert.Equal(t, 256.0, b.Max[1])
}
