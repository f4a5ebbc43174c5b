package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsPanSpeed(t *testing.T) {
	f := New(0, 0, 100)
	assert.Equal(t, 1.0, f.PanSpeed)
}

func TestPanScalesByPanSpeed(t *testing.T) {
	f := New(0, 0, 100)
	f.PanSpeed = 2
	f.Pan(1, 1)
	assert.Equal(t, 2.0, f.X)
	assert.Equal(t, 2.0, f.Z)
}

func TestMoveToSetsPositionDirectly(t *testing.T) {
	f := New(0, 0, 100)
	f.MoveTo(5, -5)
	assert.Equal(t, 5.0, f.X)
	assert.Equal(t, -5.0, f.Z)
}

func TestSetDistanceClampsToPositiveMinimum(t *testing.T) {
	f := New(0, 0, 100)
	f.SetDistance(0)
	assert.Equal(t, 1.0, f.Distance)
}

func TestDistanceTo(t *testing.T) {
	f := New(0, 0, 100)
	assert.Equal(t, 5.0, f.DistanceTo(3, 4))
}
