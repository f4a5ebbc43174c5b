package tilegeom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresrpg/voxel-lod-mesher/internal/edge"
)

func TestNewStoreRejectsNonDivisible(t *testing.T) {
	_, err := NewStore(10, 3)
	require.Error(t, err)
}

func TestNewStoreRejectsOddN(t *testing.T) {
	_, err := NewStore(15, 1) // N=15, odd
	require.Error(t, err)
}

func TestNewStoreRejectsTooFewQuads(t *testing.T) {
	_, err := NewStore(1, 1) // N=1
	require.Error(t, err)
}

func TestAllSimpleProducesUniformGridTriangleCount(t *testing.T) {
	s, err := NewStore(16, 1)
	require.NoError(t, err)

	set, err := s.GetIndices(edge.Resolutions{})
	require.NoError(t, err)

	// Uniform NxN quad grid: 2 triangles per quad, 3 indices per triangle.
	assert.Equal(t, 2*16*16*3, len(set.Buffer))
}

func TestAllIndicesWithinBounds(t *testing.T) {
	s, err := NewStore(16, 1)
	require.NoError(t, err)

	maxVertex := uint16((s.N() + 1) * (s.N() + 1))

	combos := []edge.Resolutions{
		{},
		{Up: edge.Decimated},
		{Down: edge.Decimated},
		{Left: edge.Decimated},
		{Right: edge.Decimated},
		{Up: edge.Decimated, Down: edge.Decimated, Left: edge.Decimated, Right: edge.Decimated},
	}
	for _, c := range combos {
		set, err := s.GetIndices(c)
		require.NoError(t, err)
		require.True(t, len(set.Buffer)%3 == 0, "buffer length must be a multiple of 3")
		for _, i := range set.Buffer {
			assert.Less(t, i, maxVertex)
		}
	}
}

func TestDecimatedEdgeProducesFewerTrianglesThanSimple(t *testing.T) {
	s, err := NewStore(16, 1)
	require.NoError(t, err)

	allSimple, err := s.GetIndices(edge.Resolutions{})
	require.NoError(t, err)

	oneDecimated, err := s.GetIndices(edge.Resolutions{Up: edge.Decimated})
	require.NoError(t, err)

	assert.Less(t, len(oneDecimated.Buffer), len(allSimple.Buffer))
}

func TestGetIndicesIsCachedAndDeterministic(t *testing.T) {
	s, err := NewStore(16, 1)
	require.NoError(t, err)

	a, err := s.GetIndices(edge.Resolutions{Left: edge.Decimated})
	require.NoError(t, err)
	b, err := s.GetIndices(edge.Resolutions{Left: edge.Decimated})
	require.NoError(t, err)

	assert.Equal(t, a.Buffer, b.Buffer)

	// Returned buffers must be independent clones.
	a.Buffer[0] = 9999
	c, err := s.GetIndices(edge.Resolutions{Left: edge.Decimated})
	require.NoError(t, err)
	assert.NotEqual(t, a.Buffer[0], c.Buffer[0])
}

func TestClonePositionsBufferIsIndependentCopy(t *testing.T) {
	s, err := NewStore(16, 1)
	require.NoError(t, err)

	p1 := s.ClonePositionsBuffer()
	p1[0] = 42
	p2 := s.ClonePositionsBuffer()
	assert.NotEqual(t, p1[0], p2[0])
	assert.Equal(t, float32(0), p2[0])
}

func TestCornerAndEdgeIndicesMatchGridExtremes(t *testing.T) {
	s, err := NewStore(16, 1)
	require.NoError(t, err)

	set, err := s.GetIndices(edge.Resolutions{})
	require.NoError(t, err)

	assert.Len(t, set.Edges.Up, s.N()+1)
	assert.Len(t, set.Edges.Down, s.N()+1)
	assert.Len(t, set.Edges.Left, s.N()+1)
	assert.Len(t, set.Edges.Right, s.N()+1)

	assert.Equal(t, set.Corners.UpLeft, set.Edges.Up[0])
	assert.Equal(t, set.Corners.UpLeft, set.Edges.Left[s.N()])
	assert.Equal(t, set.Corners.UpRight, set.Edges.Up[s.N()])
	assert.Equal(t, set.Corners.UpRight, set.Edges.Right[s.N()])
	assert.Equal(t, set.Corners.DownLeft, set.Edges.Down[0])
	assert.Equal(t, set.Corners.DownLeft, set.Edges.Left[0])
	assert.Equal(t, set.Corners.DownRight, set.Edges.Down[s.N()])
	assert.Equal(t, set.Corners.DownRight, set.Edges.Right[0])
}
