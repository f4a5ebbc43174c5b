package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aresrpg/voxel-lod-mesher/internal/heightmap"
	"github.com/aresrpg/voxel-lod-mesher/internal/lodconfig"
	"github.com/aresrpg/voxel-lod-mesher/internal/materials"
)

func testOptions() lodconfig.Options {
	o := lodconfig.Default()
	o.Pyramid.BasePatchSize = 16
	o.Pyramid.Step = 1
	o.Pyramid.MaxLevel = 1
	o.Selection.StreamDistance = 64
	o.Selection.SplitFactor = 4.0
	o.Pipeline.MaxConcurrentBuilds = 4
	o.Pipeline.GarbageCollectIntervalSeconds = 3600
	return o
}

func waitForLoaded(t *testing.T, v *Viewer, atLeast int) Statistics {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats := v.Statistics().(Statistics)
		if stats.Meshes.LoadedCount >= atLeast {
			return stats
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for >= %d loaded meshes", atLeast)
	return Statistics{}
}

func TestUniformPlaneProducesVisibleMeshes(t *testing.T) {
	sampler := heightmap.Flat{Altitude: 0, MaterialID: 1}
	mats := materials.NewStaticStore(nil, materials.Color{})

	v, err := New(testOptions(), sampler, mats, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, v.Tick(context.Background()))
	stats := waitForLoaded(t, v, 1)

	assert.Greater(t, stats.Meshes.VisibleCount, 0)
	assert.Greater(t, stats.Triangles.Visible, 0)
}

func TestRampSamplerProducesLoadedMeshes(t *testing.T) {
	sampler := heightmap.Ramp{Slope: 0.1, MaterialID: 1, Min: -1000, Max: 1000}
	mats := materials.NewStaticStore(nil, materials.Color{})

	opts := testOptions()
	v, err := New(opts, sampler, mats, zaptest.NewLogger(t))
	require.NoError(t, err)

	v.SetFocus(8, 8)
	require.NoError(t, v.Tick(context.Background()))
	stats := waitForLoaded(t, v, 1)
	assert.Greater(t, stats.Meshes.LoadedCount, 0)
}

func TestHiddenPatchStaysResidentButNotVisible(t *testing.T) {
	sampler := heightmap.Flat{Altitude: 0, MaterialID: 1}
	mats := materials.NewStaticStore(nil, materials.Color{})

	opts := testOptions()
	v, err := New(opts, sampler, mats, zaptest.NewLogger(t))
	require.NoError(t, err)

	v.SetHiddenPatches(1000) // larger than StreamDistance: everything resident is hidden
	require.NoError(t, v.Tick(context.Background()))

	time.Sleep(50 * time.Millisecond)
	stats := v.Statistics().(Statistics)
	assert.Equal(t, 0, stats.Meshes.VisibleCount)
}

func TestGarbageCollectDropsFarResidentPatches(t *testing.T) {
	sampler := heightmap.Flat{Altitude: 0, MaterialID: 1}
	mats := materials.NewStaticStore(nil, materials.Color{})

	opts := testOptions()
	opts.Pipeline.GarbageCollectIntervalSeconds = 0
	v, err := New(opts, sampler, mats, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, v.Tick(context.Background()))
	waitForLoaded(t, v, 1)

	v.mu.Lock()
	before := make([]string, 0, len(v.resident))
	for key := range v.resident {
		before = append(before, key)
	}
	v.mu.Unlock()
	require.NotEmpty(t, before)

	v.SetFocus(1_000_000, 1_000_000)
	v.lastGC = time.Time{} // force GC on the next tick regardless of interval
	require.NoError(t, v.Tick(context.Background()))

	time.Sleep(20 * time.Millisecond)
	// The patches around the new focus become resident; every patch that
	// was resident around the old focus must be gone.
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, key := range before {
		assert.NotContains(t, v.resident, key)
	}
}
