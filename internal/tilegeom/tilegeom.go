// Package tilegeom precomputes, per (basePatchSize, step) pair, the
// reusable tile topology shared by every patch at that resolution: a
// positions template and sixteen index buffers, one per edge-resolution
// combination.
package tilegeom

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aresrpg/voxel-lod-mesher/internal/edge"
)

// CornerIndices are the four precomputed corner vertex indices.
type CornerIndices struct {
	UpLeft, UpRight, DownLeft, DownRight uint16
}

// EdgeIndexLists are the four ordered per-side vertex index lists, each of
// length N+1, following the side's natural direction (increasing x for
// Up/Down, increasing z for Left/Right).
type EdgeIndexLists struct {
	Up, Down, Left, Right []uint16
}

// IndexSet is the per-edge-resolution-combination topology returned by
// GetIndices: a triangle index buffer plus the corner/edge vertex lists
// callers need for stitching (drop skirt, neighbour alignment checks).
type IndexSet struct {
	Buffer  []uint16
	Corners CornerIndices
	Edges   EdgeIndexLists
}

// Store is the immutable, shared tile topology cache for one
// (basePatchSize, step) pair. Safe for concurrent use; GetIndices clones
// its cached buffer on every call so callers may mutate freely.
type Store struct {
	basePatchSize int
	step          int
	n             int // quads per side

	positions []float32 // (N+1)^2 * 3, built once

	corners CornerIndices
	edges   EdgeIndexLists

	cache *lru.Cache[string, *IndexSet]
}

// NewStore builds a tile geometry store for a given base patch size and
// quad step. Fails if basePatchSize isn't a positive multiple of step, or
// if the resulting quad count N is odd, since the decimated-edge fan
// requires pairing vertices two at a time.
func NewStore(basePatchSize, step int) (*Store, error) {
	if basePatchSize <= 0 || step <= 0 {
		return nil, fmt.Errorf("tilegeom: basePatchSize and step must be positive, got (%d, %d)", basePatchSize, step)
	}
	if basePatchSize%step != 0 {
		return nil, fmt.Errorf("tilegeom: basePatchSize (%d) must be divisible by step (%d)", basePatchSize, step)
	}
	n := basePatchSize / step
	if n < 2 {
		return nil, fmt.Errorf("tilegeom: quad count N=%d must be >= 2", n)
	}
	if n%2 != 0 {
		return nil, fmt.Errorf("tilegeom: quad count N=%d must be even to support decimated edges", n)
	}
	verts := (n + 1) * (n + 1)
	if verts > 1<<16 {
		return nil, fmt.Errorf("tilegeom: N=%d produces %d vertices, too many for a uint16 index buffer", n, verts)
	}

	s := &Store{basePatchSize: basePatchSize, step: step, n: n}
	s.buildPositions()
	s.buildCornersAndEdges()

	cache, err := lru.New[string, *IndexSet](16)
	if err != nil {
		return nil, fmt.Errorf("tilegeom: building index cache: %w", err)
	}
	s.cache = cache

	return s, nil
}

// N returns the quad count per side.
func (s *Store) N() int { return s.n }

// vertexIndex maps a grid coordinate to its flat vertex index with Z
// flipped: vertex (x, z) has index x + (N - z)*(N+1), so that larger Z is
// "up".
func (s *Store) vertexIndex(x, z int) uint16 {
	return uint16(x + (s.n-z)*(s.n+1))
}

func (s *Store) buildPositions() {
	n := s.n
	s.positions = make([]float32, 3*(n+1)*(n+1))
	for z := 0; z <= n; z++ {
		for x := 0; x <= n; x++ {
			idx := s.vertexIndex(x, z)
			s.positions[3*idx+0] = float32(x)
			s.positions[3*idx+1] = 0
			s.positions[3*idx+2] = float32(z)
		}
	}
}

func (s *Store) buildCornersAndEdges() {
	n := s.n
	s.corners = CornerIndices{
		UpLeft:    s.vertexIndex(0, n),
		UpRight:   s.vertexIndex(n, n),
		DownLeft:  s.vertexIndex(0, 0),
		DownRight: s.vertexIndex(n, 0),
	}

	up := make([]uint16, n+1)
	down := make([]uint16, n+1)
	left := make([]uint16, n+1)
	right := make([]uint16, n+1)
	for i := 0; i <= n; i++ {
		up[i] = s.vertexIndex(i, n)
		down[i] = s.vertexIndex(i, 0)
		left[i] = s.vertexIndex(0, i)
		right[i] = s.vertexIndex(n, i)
	}
	s.edges = EdgeIndexLists{Up: up, Down: down, Left: left, Right: right}
}

// ClonePositionsBuffer returns a fresh copy of the (N+1)x(N+1) positions
// template, local grid coordinates with Y=0.
func (s *Store) ClonePositionsBuffer() []float32 {
	out := make([]float32, len(s.positions))
	copy(out, s.positions)
	return out
}

// GetIndices returns the index buffer and corner/edge vertex lists for a
// given edge resolution combination, generating it once per distinct
// combination and caching it under "up_down_left_right". The returned
// buffer is a clone; callers may mutate it freely.
func (s *Store) GetIndices(res edge.Resolutions) (*IndexSet, error) {
	key := res.Key()

	if cached, ok := s.cache.Get(key); ok {
		return cloneIndexSet(cached), nil
	}

	built := s.buildIndices(res)
	s.cache.Add(key, built)
	return cloneIndexSet(built), nil
}

func cloneIndexSet(src *IndexSet) *IndexSet {
	buf := make([]uint16, len(src.Buffer))
	copy(buf, src.Buffer)
	return &IndexSet{
		Buffer:  buf,
		Corners: src.Corners,
		Edges:   src.Edges,
	}
}

var buildMu sync.Mutex

// buildIndices assembles the triangle index buffer for one edge-resolution
// combination: a constant interior strip plus four edge strips whose
// layout depends on SIMPLE vs DECIMATED.
func (s *Store) buildIndices(res edge.Resolutions) *IndexSet {
	buildMu.Lock()
	defer buildMu.Unlock()

	n := s.n
	idx := make([]uint16, 0, 2*n*n*3)

	tri := func(a, b, c uint16) {
		idx = append(idx, a, b, c)
	}

	// Interior strip: the (N-2)x(N-2) inner quad grid, unaffected by edge
	// resolution. Winding mm, pp, pm and mm, mp, pp (CCW from +Y).
	for z := 1; z <= n-2; z++ {
		for x := 1; x <= n-2; x++ {
			mm := s.vertexIndex(x, z)
			pm := s.vertexIndex(x+1, z)
			mp := s.vertexIndex(x, z+1)
			pp := s.vertexIndex(x+1, z+1)
			tri(mm, pp, pm)
			tri(mm, mp, pp)
		}
	}

	// Four corner quads, always meshed at full resolution: the drop skirt
	// only ever moves a corner/edge vertex's position, never the topology
	// (edge.Type.ToResolution maps Limit down to Simple).
	// All four use the same mm/pm/mp/pp layout as the interior, so they
	// share its winding.
	s.emitCornerQuad(&idx, 0, 0, false)     // down-left
	s.emitCornerQuad(&idx, n-1, 0, false)   // down-right
	s.emitCornerQuad(&idx, 0, n-1, false)   // up-left
	s.emitCornerQuad(&idx, n-1, n-1, false) // up-right

	// Four edge strips, each covering the (N-2)-wide interior range
	// between its two corner quads.
	s.emitEdgeStrip(&idx, res.Up, func(i int) (uint16, uint16) {
		return s.vertexIndex(i, n), s.vertexIndex(i, n-1)
	}, true)
	s.emitEdgeStrip(&idx, res.Down, func(i int) (uint16, uint16) {
		return s.vertexIndex(i, 0), s.vertexIndex(i, 1)
	}, false)
	s.emitEdgeStrip(&idx, res.Left, func(i int) (uint16, uint16) {
		return s.vertexIndex(0, i), s.vertexIndex(1, i)
	}, true)
	s.emitEdgeStrip(&idx, res.Right, func(i int) (uint16, uint16) {
		return s.vertexIndex(n, i), s.vertexIndex(n-1, i)
	}, false)

	return &IndexSet{Buffer: idx, Corners: s.corners, Edges: s.edges}
}

// emitCornerQuad triangulates the single quad at the given quad-grid
// origin (ox, oz), always at full resolution.
func (s *Store) emitCornerQuad(idx *[]uint16, ox, oz int, invert bool) {
	mm := s.vertexIndex(ox, oz)
	pm := s.vertexIndex(ox+1, oz)
	mp := s.vertexIndex(ox, oz+1)
	pp := s.vertexIndex(ox+1, oz+1)
	if invert {
		*idx = append(*idx, mm, pm, pp, mm, pp, mp)
	} else {
		*idx = append(*idx, mm, pp, pm, mm, mp, pp)
	}
}

// emitEdgeStrip triangulates the (N-2)-wide strip between a side's two
// corner quads. vertexAt(i) returns (edgeVertex, innerVertex) for grid
// coordinate i in [1, N-1]. SIMPLE meshes every quad at full resolution;
// DECIMATED meshes pairs of quads with one shared edge vertex dropped and
// an extra inner-ring triangle filling the gap.
func (s *Store) emitEdgeStrip(idx *[]uint16, res edge.Resolution, vertexAt func(i int) (edgeV, innerV uint16), invert bool) {
	n := s.n

	quad := func(e0, i0, e1, i1 uint16) {
		if invert {
			*idx = append(*idx, e0, e1, i1, e0, i1, i0)
		} else {
			*idx = append(*idx, e0, i1, e1, e0, i0, i1)
		}
	}

	if res == edge.Simple {
		for i := 1; i <= n-2; i++ {
			e0, in0 := vertexAt(i)
			e1, in1 := vertexAt(i + 1)
			quad(e0, in0, e1, in1)
		}
		return
	}

	// Decimated: step two grid units at a time so the kept edge vertices
	// line up with a coarser neighbour's full-resolution edge (requires N
	// even, enforced in NewStore).
	for i := 1; i <= n-2; i += 2 {
		e0, in0 := vertexAt(i)
		eMid, inMid := vertexAt(i + 1)
		e1, in1 := vertexAt(i + 2)

		if invert {
			*idx = append(*idx,
				e0, e1, inMid,
				e0, inMid, in0,
				e1, in1, inMid,
			)
		} else {
			*idx = append(*idx,
				e0, inMid, e1,
				e0, in0, inMid,
				e1, inMid, in1,
			)
		}
		_ = eMid // kept unreferenced on this side: shared only with the finer neighbour
	}
}
