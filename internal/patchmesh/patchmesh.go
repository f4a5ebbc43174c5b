// Package patchmesh builds and caches the actual triangle mesh for a
// single patch, one variant per edge code, and holds the quadtree-shaped
// node structure whose Dispose/GarbageCollect release cached geometry.
package patchmesh

import (
	"context"
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aresrpg/voxel-lod-mesher/internal/edge"
	"github.com/aresrpg/voxel-lod-mesher/internal/geomproc"
	"github.com/aresrpg/voxel-lod-mesher/internal/heightmapcache"
	"github.com/aresrpg/voxel-lod-mesher/internal/mesh"
	"github.com/aresrpg/voxel-lod-mesher/internal/tilegeom"
	"github.com/aresrpg/voxel-lod-mesher/pkg/patchid"
)

// LimitDrop is the world Y a LIMIT-typed edge or corner vertex is set to,
// forming the drop skirt that hides cracks against a hidden neighbour.
const LimitDrop = -20.0

// marginSize is how far, in world XZ units, a LIMIT-typed edge or corner
// vertex is pushed outward (along the edge/corner normal) in addition to
// the Y drop, so the skirt forms an outward-leaning wall rather than a
// vertical drop in place.
const marginSize = 2.0

// maxMeshVariants bounds how many distinct edge-code meshes a single node
// keeps resident at once: 81 side combinations x 16 corner combinations
// would be a lot to keep forever, so the per-node cache evicts the
// least-recently-used variant once a patch has accumulated more than this
// many neighbour configurations.
const maxMeshVariants = 8

// Builder assembles mesh.Record values for a patch given its edge.Types,
// wiring together the tile geometry store, the heightmap cache and the
// geometry processor.
type Builder struct {
	Store     *tilegeom.Store
	Heights   *heightmapcache.Cache
	BasePatch int

	// FlatShading selects Deindexed (flat, per-face normals) output over
	// the default IndexedNormals output.
	FlatShading bool

	// DedicatedThreadsCount, if > 0, dispatches normal computation to a
	// worker pool of this many goroutines instead of running it inline.
	DedicatedThreadsCount int

	poolOnce sync.Once
	pool     *geomproc.Pool
}

// workerPool returns the builder's lazily-created geometry worker pool, or
// nil if DedicatedThreadsCount is not positive.
func (b *Builder) workerPool() *geomproc.Pool {
	b.poolOnce.Do(func() {
		if b.DedicatedThreadsCount > 0 {
			b.pool = geomproc.NewPool(b.DedicatedThreadsCount, b.DedicatedThreadsCount*2)
		}
	})
	return b.pool
}

// diagonal is marginSize split evenly across both horizontal axes, so a
// corner's outward offset has the same magnitude as a side's.
var diagonal = float32(marginSize / math.Sqrt2)

// Build resolves id's sampled positions/colours and the index buffer for
// types, applies the drop skirt to LIMIT edges/corners, computes normals
// and returns the finished mesh.Record.
func (b *Builder) Build(ctx context.Context, id patchid.ID, types edge.Types) (*mesh.Record, error) {
	entry, err := b.Heights.Resolve(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("patchmesh: resolving heights for %s: %w", id.Key(), err)
	}

	set, err := b.Store.GetIndices(types.Resolutions())
	if err != nil {
		return nil, fmt.Errorf("patchmesh: building indices for %s: %w", id.Key(), err)
	}

	positions := make([]float32, len(entry.Positions))
	copy(positions, entry.Positions)

	// dropSide sets every vertex on a LIMIT edge to LimitDrop and pushes
	// it outward by marginSize along (dx, dz), the edge's outward normal,
	// so the skirt leans away from the patch instead of dropping in place.
	dropSide := func(t edge.Type, indices []uint16, dx, dz float32) {
		if t != edge.TypeLimit {
			return
		}
		for _, vi := range indices {
			o := int(vi) * 3
			positions[o+0] += dx
			positions[o+1] = LimitDrop
			positions[o+2] += dz
		}
	}
	dropSide(types.Up, set.Edges.Up, 0, marginSize)
	dropSide(types.Down, set.Edges.Down, 0, -marginSize)
	dropSide(types.Left, set.Edges.Left, -marginSize, 0)
	dropSide(types.Right, set.Edges.Right, marginSize, 0)

	dropCorner := func(t edge.CornerType, vi uint16, dx, dz float32) {
		if t != edge.CornerLimit {
			return
		}
		o := int(vi) * 3
		positions[o+0] += dx
		positions[o+1] = LimitDrop
		positions[o+2] += dz
	}
	dropCorner(types.UpLeft, set.Corners.UpLeft, -diagonal, diagonal)
	dropCorner(types.UpRight, set.Corners.UpRight, diagonal, diagonal)
	dropCorner(types.DownLeft, set.Corners.DownLeft, -diagonal, -diagonal)
	dropCorner(types.DownRight, set.Corners.DownRight, diagonal, -diagonal)

	job := geomproc.Job{Positions: positions, Indices: set.Buffer, Colors: entry.Colors, Flat: b.FlatShading}
	var result geomproc.Result
	if pool := b.workerPool(); pool != nil {
		select {
		case result = <-pool.Submit(job):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		result = geomproc.Process(job)
	}

	indices := set.Buffer
	if b.FlatShading {
		indices = nil // de-indexed output is a flat triangle soup, drawn without an index buffer
	}

	return &mesh.Record{
		Positions: result.Positions,
		Colors:    result.Colors,
		Normals:   result.Normals,
		Indices:   indices,
	}, nil
}

// Children indexes a node's four quadrants.
type Children struct {
	MM, PM, MP, PP *Node
}

// Node is one patch in the mesh tree: identity, its cached mesh variants,
// visibility, and (once split) its four finer children.
type Node struct {
	mu sync.Mutex

	id      patchid.ID
	visible bool

	meshes *lru.Cache[uint16, *mesh.Record]

	children   *Children
	subdivided bool
}

// NewNode builds an unsplit, invisible node for id.
func NewNode(id patchid.ID) *Node {
	meshes, _ := lru.NewWithEvict[uint16, *mesh.Record](maxMeshVariants, func(_ uint16, rec *mesh.Record) {
		rec.Dispose()
	})
	return &Node{id: id, meshes: meshes}
}

// ID returns the patch identity this node addresses.
func (n *Node) ID() patchid.ID { return n.id }

// SetVisible updates the node's visibility flag.
func (n *Node) SetVisible(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visible = v
}

// IsVisible reports the node's current visibility flag.
func (n *Node) IsVisible() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.visible
}

// IsSubdivided reports whether Split has been called.
func (n *Node) IsSubdivided() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subdivided
}

// GetOrBuildMesh returns the mesh variant for types, building and caching
// it via builder if this is the first request for that edge code.
func (n *Node) GetOrBuildMesh(ctx context.Context, builder *Builder, types edge.Types) (*mesh.Record, error) {
	code := types.Code()

	n.mu.Lock()
	if rec, ok := n.meshes.Get(code); ok {
		n.mu.Unlock()
		return rec, nil
	}
	n.mu.Unlock()

	rec, err := builder.Build(ctx, n.id, types)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if existing, ok := n.meshes.Get(code); ok {
		rec.Dispose()
		return existing, nil
	}
	n.meshes.Add(code, rec)
	return rec, nil
}

// TryGetMesh returns the cached mesh variant for types without building
// it, for read-only reporting (e.g. statistics) that shouldn't trigger a
// build.
func (n *Node) TryGetMesh(types edge.Types) (*mesh.Record, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.meshes.Get(types.Code())
}

// UpdateMesh replaces a cached variant (e.g. after a neighbour change
// invalidates it) without touching the node's split state.
func (n *Node) UpdateMesh(types edge.Types, rec *mesh.Record) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if old, ok := n.meshes.Get(types.Code()); ok {
		old.Dispose()
	}
	n.meshes.Add(types.Code(), rec)
}

// ResetSubdivisions collapses the node back to a leaf, disposing every
// descendant's meshes.
func (n *Node) ResetSubdivisions() {
	n.mu.Lock()
	children := n.children
	n.children = nil
	n.subdivided = false
	n.mu.Unlock()

	if children == nil {
		return
	}
	for _, c := range []*Node{children.MM, children.PM, children.MP, children.PP} {
		c.Dispose()
	}
}

// GetOrBuildChildren splits the node into its four quadrant children
// (level-1), building them lazily. Panics on a level-0 node, since the
// finest level can't be split further.
func (n *Node) GetOrBuildChildren() Children {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.children != nil {
		return *n.children
	}
	if n.id.Level == 0 {
		panic("patchmesh: cannot split a level-0 node")
	}
	kids := n.id.Children()
	c := Children{
		MM: NewNode(kids[patchid.QuadrantMM]),
		PM: NewNode(kids[patchid.QuadrantPM]),
		MP: NewNode(kids[patchid.QuadrantMP]),
		PP: NewNode(kids[patchid.QuadrantPP]),
	}
	n.children = &c
	n.subdivided = true
	return c
}

// Dispose releases every mesh variant cached on this node and recurses
// into its children, if any.
func (n *Node) Dispose() {
	n.mu.Lock()
	children := n.children
	n.children = nil
	n.meshes.Purge() // runs the eviction callback for every entry, disposing it
	n.mu.Unlock()

	if children == nil {
		return
	}
	for _, c := range []*Node{children.MM, children.PM, children.MP, children.PP} {
		c.Dispose()
	}
}

// GarbageCollect walks the subtree and, for any child failing the keep
// predicate, disposes it and resets it to a fresh unbuilt leaf so the
// quadrant slot stays populated (a split node always has all four
// children). Kept children recurse. Call sites pass a keep predicate
// closing over the current visibility/distance state.
func (n *Node) GarbageCollect(keep func(*Node) bool) {
	n.mu.Lock()
	children := n.children
	n.mu.Unlock()

	if children == nil {
		return
	}

	slots := []**Node{&children.MM, &children.PM, &children.MP, &children.PP}
	for _, slot := range slots {
		c := *slot
		if !keep(c) {
			id := c.ID()
			c.Dispose()
			*slot = NewNode(id)
			continue
		}
		c.GarbageCollect(keep)
	}
}
