// Package edge describes the per-side and per-corner resolution states used
// to stitch neighbouring LOD patches without T-junctions, and packs them
// into the 16-bit edge code used as a mesh cache key.
package edge

// Resolution is the state a tile-geometry edge can be meshed at.
type Resolution int

const (
	Simple Resolution = iota
	Decimated
)

// Type extends Resolution with Limit, a boundary to a hidden neighbour whose
// vertices are dropped to form a skirt.
type Type int

const (
	TypeSimple Type = iota
	TypeDecimated
	TypeLimit
)

// ToResolution maps an edge Type to the Resolution the tile geometry store
// indexes by: Limit drops down to Simple topology (the skirt only moves
// vertices, it never changes which triangles exist).
func (t Type) ToResolution() Resolution {
	if t == TypeDecimated {
		return Decimated
	}
	return Simple
}

// CornerType is the state of a patch corner for stitching purposes.
type CornerType int

const (
	CornerSimple CornerType = iota
	CornerLimit
)

// Side indexes the four cardinal edges of a patch.
type Side int

const (
	Up Side = iota
	Down
	Left
	Right
)

// Corner indexes the four corners of a patch.
type Corner int

const (
	UpLeft Corner = iota
	UpRight
	DownLeft
	DownRight
)

// Resolutions is the 4-tuple of per-side resolutions consumed by the tile
// geometry store.
type Resolutions struct {
	Up, Down, Left, Right Resolution
}

// Key returns the store's cache key for this resolution combination:
// "up_down_left_right" with 0/1 values.
func (r Resolutions) Key() string {
	buf := [7]byte{'0', '_', '0', '_', '0', '_', '0'}
	set := func(i int, v Resolution) {
		if v == Decimated {
			buf[i] = '1'
		}
	}
	set(0, r.Up)
	set(2, r.Down)
	set(4, r.Left)
	set(6, r.Right)
	return string(buf[:])
}

// Types is the full eight-field per-patch edge state: four sides plus four
// corners, each Simple/Decimated/Limit (sides) or Simple/Limit (corners).
type Types struct {
	Up, Down, Left, Right                Type
	UpLeft, UpRight, DownLeft, DownRight CornerType
}

// Resolutions projects the edge Types down to the Resolutions the tile
// geometry store keys its index buffers by.
func (t Types) Resolutions() Resolutions {
	return Resolutions{
		Up:    t.Up.ToResolution(),
		Down:  t.Down.ToResolution(),
		Left:  t.Left.ToResolution(),
		Right: t.Right.ToResolution(),
	}
}

// Code packs the eight 2-bit fields of Types into a single 16-bit cache
// key, bit-packing all eight fields at 2 bits each.
func (t Types) Code() uint16 {
	var code uint16
	code |= uint16(t.Up) << 0
	code |= uint16(t.Down) << 2
	code |= uint16(t.Left) << 4
	code |= uint16(t.Right) << 6
	code |= uint16(t.UpLeft) << 8
	code |= uint16(t.UpRight) << 10
	code |= uint16(t.DownLeft) << 12
	code |= uint16(t.DownRight) << 14
	return code
}
