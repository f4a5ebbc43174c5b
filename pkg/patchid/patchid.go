// Package patchid defines the identity and spatial arithmetic of terrain
// patches: a pyramid of square regions addressed by (level, ix, iy), with
// level 0 the finest resolution and each increment doubling the side length.
package patchid

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ID identifies a square patch of terrain in the LOD pyramid.
type ID struct {
	Level int
	IX    int
	IY    int
}

// New builds a patch id, rejecting negative coordinates.
func New(level, ix, iy int) (ID, error) {
	if level < 0 {
		return ID{}, fmt.Errorf("patchid: level must be >= 0, got %d", level)
	}
	if ix < 0 || iy < 0 {
		return ID{}, fmt.Errorf("patchid: ix/iy must be >= 0, got (%d, %d)", ix, iy)
	}
	return ID{Level: level, IX: ix, IY: iy}, nil
}

// Key returns the deterministic string key "level__ix_iy" used throughout
// the pipeline (quadtree nodes, mesh caches) to address a patch without a
// cyclic pointer graph.
func (id ID) Key() string {
	return fmt.Sprintf("%d__%d_%d", id.Level, id.IX, id.IY)
}

func (id ID) String() string {
	return id.Key()
}

// Side returns the world-space side length of the patch: basePatchSize * 2^level.
func Side(basePatchSize, level int) float64 {
	return float64(basePatchSize) * float64(int(1)<<uint(level))
}

// Bound returns the patch's axis-aligned world-XZ bounding box.
func (id ID) Bound(basePatchSize int) orb.Bound {
	side := Side(basePatchSize, id.Level)
	minX := float64(id.IX) * side
	minZ := float64(id.IY) * side
	return orb.Bound{
		Min: orb.Point{minX, minZ},
		Max: orb.Point{minX + side, minZ + side},
	}
}

// Origin returns the world-space (x, z) origin (min corner) of the patch.
func (id ID) Origin(basePatchSize int) (x, z float64) {
	b := id.Bound(basePatchSize)
	return b.Min[0], b.Min[1]
}

// Center returns the world-space centre point of the patch.
func (id ID) Center(basePatchSize int) orb.Point {
	return id.Bound(basePatchSize).Center()
}

// Contains reports whether child's centre lies within this patch's box.
// A patch only ever contains children at a strictly finer level.
func (id ID) Contains(basePatchSize int, child ID) bool {
	if child.Level >= id.Level {
		return false
	}
	return id.Bound(basePatchSize).Contains(child.Center(basePatchSize))
}

// Neighbour returns the patch offset by (dx, dy) patch-widths at the same level.
func (id ID) Neighbour(dx, dy int) ID {
	return ID{Level: id.Level, IX: id.IX + dx, IY: id.IY + dy}
}

// Parent returns the id of the coarser patch (level+1) containing this one.
func (id ID) Parent() ID {
	return ID{Level: id.Level + 1, IX: floorDiv(id.IX, 2), IY: floorDiv(id.IY, 2)}
}

// Quadrant identifies one of the four children of a patch.
type Quadrant int

const (
	QuadrantMM Quadrant = iota // minus-x, minus-z
	QuadrantPM                 // plus-x, minus-z
	QuadrantMP                 // minus-x, plus-z
	QuadrantPP                 // plus-x, plus-z
)

// Children returns the four finer patches (level-1) covering this patch's
// quadrants, in MM, PM, MP, PP order. Panics if called on a level-0 patch,
// since level 0 is the finest resolution and cannot be split further.
func (id ID) Children() [4]ID {
	if id.Level == 0 {
		panic("patchid: cannot split a level-0 patch")
	}
	cl := id.Level - 1
	bx, by := id.IX*2, id.IY*2
	return [4]ID{
		{Level: cl, IX: bx, IY: by},         // MM
		{Level: cl, IX: bx + 1, IY: by},     // PM
		{Level: cl, IX: bx, IY: by + 1},     // MP
		{Level: cl, IX: bx + 1, IY: by + 1}, // PP
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
