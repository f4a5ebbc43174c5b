package heightmap

import (
	"context"
	"fmt"
)

// Flat is a trivial Sampler returning a constant altitude and material
// everywhere, used by tests and the demo command.
type Flat struct {
	Altitude   float64
	MaterialID uint16
}

func (f Flat) Sample(_ context.Context, req Request) ([]Sample, error) {
	if req.CountX <= 0 || req.CountZ <= 0 {
		return nil, fmt.Errorf("heightmap: request counts must be positive, got (%d, %d)", req.CountX, req.CountZ)
	}
	out := make([]Sample, req.CountX*req.CountZ)
	for i := range out {
		out[i] = Sample{Altitude: f.Altitude, MaterialID: f.MaterialID}
	}
	return out, nil
}

func (f Flat) AltitudeRange() (min, max float64) { return f.Altitude, f.Altitude }

// Ramp is a Sampler whose altitude increases linearly along X, used to
// exercise single-step and multi-step LOD transitions.
type Ramp struct {
	Slope      float64 // altitude units per world unit of X
	MaterialID uint16
	Min, Max   float64
}

func (r Ramp) Sample(_ context.Context, req Request) ([]Sample, error) {
	if req.CountX <= 0 || req.CountZ <= 0 {
		return nil, fmt.Errorf("heightmap: request counts must be positive, got (%d, %d)", req.CountX, req.CountZ)
	}
	out := make([]Sample, 0, req.CountX*req.CountZ)
	for z := 0; z < req.CountZ; z++ {
		for x := 0; x < req.CountX; x++ {
			worldX := req.OriginX + float64(x)*req.Step
			alt := worldX * r.Slope
			if alt < r.Min {
				alt = r.Min
			}
			if alt > r.Max {
				alt = r.Max
			}
			out = append(out, Sample{Altitude: alt, MaterialID: r.MaterialID})
		}
	}
	return out, nil
}

func (r Ramp) AltitudeRange() (min, max float64) { return r.Min, r.Max }
