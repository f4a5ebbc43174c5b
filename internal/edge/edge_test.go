package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolutionsKeyDeterministic(t *testing.T) {
	r := Resolutions{Up: Decimated, Down: Simple, Left: Decimated, Right: Simple}
	assert.Equal(t, "1_0_1_0", r.Key())
	assert.Equal(t, r.Key(), r.Key())
}

func TestResolutionsKeyAllSimple(t *testing.T) {
	assert.Equal(t, "0_0_0_0", Resolutions{}.Key())
}

func TestResolutionsKeyDistinguishesCombinations(t *testing.T) {
	seen := map[string]bool{}
	for up := 0; up <= 1; up++ {
		for down := 0; down <= 1; down++ {
			for left := 0; left <= 1; left++ {
				for right := 0; right <= 1; right++ {
					r := Resolutions{
						Up:    Resolution(up),
						Down:  Resolution(down),
						Left:  Resolution(left),
						Right: Resolution(right),
					}
					key := r.Key()
					assert.False(t, seen[key], "duplicate key %q", key)
					seen[key] = true
				}
			}
		}
	}
	assert.Len(t, seen, 16)
}

func TestTypeToResolution(t *testing.T) {
	assert.Equal(t, Simple, TypeSimple.ToResolution())
	assert.Equal(t, Decimated, TypeDecimated.ToResolution())
	assert.Equal(t, Simple, TypeLimit.ToResolution())
}

func TestTypesResolutionsProjection(t *testing.T) {
	types := Types{Up: TypeLimit, Down: TypeDecimated, Left: TypeSimple, Right: TypeLimit}
	res := types.Resolutions()
	assert.Equal(t, Resolutions{Up: Simple, Down: Decimated, Left: Simple, Right: Simple}, res)
}

func TestTypesCodeUniqueAcrossSampledCombinations(t *testing.T) {
	combos := []Types{
		{},
		{Up: TypeLimit},
		{Down: TypeDecimated},
		{Left: TypeSimple, Right: TypeLimit},
		{UpLeft: CornerLimit},
		{UpRight: CornerLimit, DownLeft: CornerLimit, DownRight: CornerLimit},
		{Up: TypeDecimated, Down: TypeDecimated, Left: TypeDecimated, Right: TypeDecimated},
		{Up: TypeLimit, Down: TypeLimit, Left: TypeLimit, Right: TypeLimit,
			UpLeft: CornerLimit, UpRight: CornerLimit, DownLeft: CornerLimit, DownRight: CornerLimit},
	}
	seen := map[uint16]bool{}
	for _, c := range combos {
		code := c.Code()
		assert.False(t, seen[code], "duplicate code %d for %+v", code, c)
		seen[code] = true
	}
}

func TestTypesCodeFieldsDoNotOverlap(t *testing.T) {
	base := Types{}.Code()
	assert.Equal(t, uint16(0), base)

	allLimitSides := Types{Up: TypeLimit, Down: TypeLimit, Left: TypeLimit, Right: TypeLimit}
	allDecimated := Types{Up: TypeDecimated, Down: TypeDecimated, Left: TypeDecimated, Right: TypeDecimated}
	assert.NotEqual(t, allLimitSides.Code(), allDecimated.Code())

	cornersOnly := Types{UpLeft: CornerLimit, UpRight: CornerLimit, DownLeft: CornerLimit, DownRight: CornerLimit}
	assert.NotEqual(t, uint16(0), cornersOnly.Code())
	assert.Equal(t, Resolutions{}, cornersOnly.Resolutions())
}
