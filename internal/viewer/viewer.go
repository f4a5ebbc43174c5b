// Package viewer is the mesher's root: it owns the patch dictionary, runs
// the quadtree selection and async build pipeline on every tick, and
// periodically garbage-collects patches the focus has left behind.
package viewer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aresrpg/voxel-lod-mesher/internal/async"
	"github.com/aresrpg/voxel-lod-mesher/internal/edge"
	"github.com/aresrpg/voxel-lod-mesher/internal/focus"
	"github.com/aresrpg/voxel-lod-mesher/internal/heightmap"
	"github.com/aresrpg/voxel-lod-mesher/internal/heightmapcache"
	"github.com/aresrpg/voxel-lod-mesher/internal/lodconfig"
	"github.com/aresrpg/voxel-lod-mesher/internal/materials"
	"github.com/aresrpg/voxel-lod-mesher/internal/patchmesh"
	"github.com/aresrpg/voxel-lod-mesher/internal/quadtree"
	"github.com/aresrpg/voxel-lod-mesher/internal/tilegeom"
	"github.com/aresrpg/voxel-lod-mesher/pkg/patchid"
)

// MeshStatistics summarises the currently resident meshes.
type MeshStatistics struct {
	LoadedCount  int `json:"loaded_count"`
	VisibleCount int `json:"visible_count"`
}

// TriangleStatistics summarises triangle counts across resident meshes.
type TriangleStatistics struct {
	Total   int `json:"total"`
	Visible int `json:"visible"`
}

// Statistics is the JSON-serialisable snapshot statsserver reports.
type Statistics struct {
	Meshes         MeshStatistics      `json:"meshes"`
	Triangles      TriangleStatistics  `json:"triangles"`
	GPUMemoryBytes int                 `json:"gpu_memory_bytes"`
	ResidentNodes  int                 `json:"resident_nodes"`
}

// Viewer is the mesher's root object.
type Viewer struct {
	opts lodconfig.Options

	store     *tilegeom.Store
	heights   *heightmapcache.Cache
	builder   *patchmesh.Builder
	selector  *quadtree.Selector
	throttler *async.Throttler
	logger    *zap.Logger

	focus *focus.Focus

	mu       sync.Mutex
	resident map[string]*patchmesh.Node
	types    map[string]edge.Types

	lastGC time.Time
}

// New builds a Viewer from Options, wiring the tile geometry store, the
// heightmap cache and the patch mesh builder together.
func New(opts lodconfig.Options, sampler heightmap.Sampler, mats materials.Store, logger *zap.Logger) (*Viewer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := tilegeom.NewStore(opts.Pyramid.BasePatchSize, opts.Pyramid.Step)
	if err != nil {
		return nil, err
	}

	heights, err := heightmapcache.New(store, sampler, mats, opts.Pyramid.BasePatchSize, logger, 256)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		opts:      opts,
		store:     store,
		heights:   heights,
		builder: &patchmesh.Builder{
			Store:                 store,
			Heights:               heights,
			BasePatch:             opts.Pyramid.BasePatchSize,
			FlatShading:           opts.Pipeline.FlatShading,
			DedicatedThreadsCount: opts.Pipeline.DedicatedThreadsCount,
		},
		selector:  quadtree.NewSelector(opts.Pyramid.BasePatchSize, opts.Pyramid.MaxLevel, opts.Selection.SplitFactor),
		throttler: async.NewThrottler(int64(opts.Pipeline.MaxConcurrentBuilds)),
		logger:    logger,
		focus:     focus.New(0, 0, opts.Selection.StreamDistance),
		resident:  make(map[string]*patchmesh.Node),
		types:     make(map[string]edge.Types),
		lastGC:    time.Time{},
	}
	return v, nil
}

// SetFocus moves the streaming focus point.
func (v *Viewer) SetFocus(x, z float64) {
	v.focus.MoveTo(x, z)
}

// SetHiddenPatches sets the inner radius within which patches are kept
// resident but hidden.
func (v *Viewer) SetHiddenPatches(hideDistance float64) {
	v.focus.HideDistance = hideDistance
}

// Tick runs one selection/build/GC pass. Call it once per frame or on a
// fixed interval.
func (v *Viewer) Tick(ctx context.Context) error {
	top := v.opts.Pyramid.MaxLevel
	topSide := patchid.Side(v.opts.Pyramid.BasePatchSize, top)

	reach := int(v.focus.Distance/topSide) + 2
	centreIX := int(v.focus.X / topSide)
	centreIY := int(v.focus.Z / topSide)
	minIX, minIY := centreIX-reach, centreIY-reach
	if minIX < 0 {
		minIX = 0
	}
	if minIY < 0 {
		minIY = 0
	}
	count := 2*reach + 1

	roots := v.selector.RootNodes(minIX, minIY, count, count)
	qFocus := quadtree.Focus{
		X: v.focus.X, Z: v.focus.Z,
		Distance:     v.focus.Distance,
		HideDistance: v.focus.HideDistance,
	}
	visible, hidden := v.selector.SelectVisible(roots, qFocus)

	v.reconcile(ctx, visible, hidden)

	if v.lastGC.IsZero() || time.Since(v.lastGC) >= time.Duration(v.opts.Pipeline.GarbageCollectIntervalSeconds)*time.Second {
		v.garbageCollect()
		v.lastGC = time.Now()
	}
	return nil
}

// reconcile makes the resident patchmesh node set match the quadtree
// selection: dropping nodes no longer selected, adding nodes newly
// selected, and (re)building the mesh variant for each resident node's
// current neighbour configuration.
func (v *Viewer) reconcile(ctx context.Context, visible, hidden []*quadtree.Node) {
	wantVisible := make(map[string]bool, len(visible))
	wantResident := make(map[string]bool, len(visible)+len(hidden))
	for _, n := range visible {
		wantVisible[n.ID().Key()] = true
		wantResident[n.ID().Key()] = true
	}
	for _, n := range hidden {
		wantResident[n.ID().Key()] = true
	}

	v.mu.Lock()
	for key, node := range v.resident {
		if !wantResident[key] {
			node.Dispose()
			delete(v.resident, key)
			delete(v.types, key)
		}
	}
	for key := range wantResident {
		if node, ok := v.resident[key]; ok {
			node.SetVisible(wantVisible[key])
		}
	}
	for key := range wantResident {
		if _, ok := v.resident[key]; !ok {
			id := parseSelectedID(visible, hidden, key)
			node := patchmesh.NewNode(id)
			node.SetVisible(wantVisible[key])
			v.resident[key] = node
		}
	}
	residentSnapshot := make(map[string]*patchmesh.Node, len(v.resident))
	for k, n := range v.resident {
		residentSnapshot[k] = n
	}
	v.mu.Unlock()

	for key, node := range residentSnapshot {
		id := node.ID()
		types := v.deriveEdgeTypes(id, wantVisible, wantResident)

		v.mu.Lock()
		v.types[key] = types
		v.mu.Unlock()

		if !v.throttler.TryAcquire() {
			continue
		}
		go func(n *patchmesh.Node, t edge.Types) {
			defer v.throttler.Release()
			if _, err := n.GetOrBuildMesh(ctx, v.builder, t); err != nil {
				v.logger.Warn("failed to build patch mesh", zap.String("patch", n.ID().Key()), zap.Error(err))
			}
		}(node, types)
	}
}

func parseSelectedID(visible, hidden []*quadtree.Node, key string) patchid.ID {
	for _, n := range visible {
		if n.ID().Key() == key {
			return n.ID()
		}
	}
	for _, n := range hidden {
		if n.ID().Key() == key {
			return n.ID()
		}
	}
	return patchid.ID{}
}

// deriveEdgeTypes classifies each side/corner of id by checking whether
// its same-level neighbour is resident, visible, or absent (covered by a
// coarser ancestor instead): absent neighbours mean this edge must be
// DECIMATED to match the coarser patch, a hidden neighbour means this
// edge gets a LIMIT drop skirt, and a visible neighbour means SIMPLE.
func (v *Viewer) deriveEdgeTypes(id patchid.ID, wantVisible, wantResident map[string]bool) edge.Types {
	sideType := func(dx, dy int) edge.Type {
		n := id.Neighbour(dx, dy)
		switch {
		case wantVisible[n.Key()]:
			return edge.TypeSimple
		case wantResident[n.Key()]:
			return edge.TypeLimit
		default:
			return edge.TypeDecimated
		}
	}
	cornerType := func(dx, dy int) edge.CornerType {
		n := id.Neighbour(dx, dy)
		if wantResident[n.Key()] && !wantVisible[n.Key()] {
			return edge.CornerLimit
		}
		return edge.CornerSimple
	}

	return edge.Types{
		Up:        sideType(0, 1),
		Down:      sideType(0, -1),
		Left:      sideType(-1, 0),
		Right:     sideType(1, 0),
		UpLeft:    cornerType(-1, 1),
		UpRight:   cornerType(1, 1),
		DownLeft:  cornerType(-1, -1),
		DownRight: cornerType(1, -1),
	}
}

// garbageCollect drops resident patches whose patch centre has drifted
// beyond twice the streaming distance, and drops the selector's cached
// nodes beyond four times it.
func (v *Viewer) garbageCollect() {
	v.mu.Lock()
	defer v.mu.Unlock()

	for key, node := range v.resident {
		cx, cz := node.ID().Center(v.opts.Pyramid.BasePatchSize)[0], node.ID().Center(v.opts.Pyramid.BasePatchSize)[1]
		dx, dz := cx-v.focus.X, cz-v.focus.Z
		if dx*dx+dz*dz > v.focus.Distance*v.focus.Distance*4 {
			node.Dispose()
			delete(v.resident, key)
			delete(v.types, key)
		}
	}

	v.selector.GarbageCollect(quadtree.Focus{X: v.focus.X, Z: v.focus.Z}, v.focus.Distance*4)
}

// Statistics returns a snapshot of the viewer's current state.
func (v *Viewer) Statistics() any {
	v.mu.Lock()
	defer v.mu.Unlock()

	stats := Statistics{ResidentNodes: len(v.resident)}
	for key, node := range v.resident {
		types, ok := v.types[key]
		if !ok {
			continue
		}
		rec, ready := node.TryGetMesh(types)
		if !ready {
			continue
		}
		stats.Meshes.LoadedCount++
		stats.Triangles.Total += rec.TriangleCount()
		stats.GPUMemoryBytes += rec.GPUMemoryBytes()
		if node.IsVisible() {
			stats.Meshes.VisibleCount++
			stats.Triangles.Visible += rec.TriangleCount()
		}
	}
	return stats
}
