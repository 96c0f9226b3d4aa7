package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/core"
)

// StableDt returns dx / max(c_p + |v_p|) over all particles, where c_p is
// the material wave speed at the particle's current density.
func (s *Solver) StableDt() float64 {
	pts := s.parts.Points
	parts := compute.ParallelReduce(s.pool, len(pts), func(start, end int) float64 {
		c := 0.0
		for i := start; i < end; i++ {
			p := &pts[i]
			speed := s.mats[p.Material].Model.WaveSpeed(p.Density()) + p.Velocity.Norm()
			if speed > c || math.IsNaN(speed) {
				c = speed
			}
		}
		return c
	})
	cmax := 0.0
	for _, c := range parts {
		if c > cmax || math.IsNaN(c) {
			cmax = c
		}
	}
	if cmax == 0 {
		return math.Inf(1)
	}
	return s.grid.Dx / cmax
}

func (s *Solver) timestep(t float64, step int, params Parameters) (float64, error) {
	every := params.CFLEvery
	if every <= 0 {
		every = 1
	}
	check := s.dt == 0 || step%every == 0

	if params.Dt > 0 {
		if check {
			limit := s.StableDt()
			if !(params.Dt <= limit) {
				return 0, &core.StepError{
					Step: step, Time: t, Quantity: "dt", Index: -1,
					Wrapped: fmt.Errorf("dt=%g exceeds stable limit %g: %w", params.Dt, limit, core.ErrCFL),
				}
			}
		}
		return params.Dt, nil
	}

	if !check {
		return s.dt, nil
	}
	limit := s.StableDt()
	if math.IsNaN(limit) {
		return 0, &core.StepError{Step: step, Time: t, Quantity: "wave speed", Index: -1, Wrapped: core.ErrNonFinite}
	}
	if math.IsInf(limit, 1) {
		return 0, &core.StepError{
			Step: step, Time: t, Quantity: "dt", Index: -1,
			Wrapped: fmt.Errorf("no finite stable timestep: %w", core.ErrCFL),
		}
	}
	dt := params.CFL * limit
	if s.dt > 0 && math.Abs(dt-s.dt) > 0.01*s.dt {
		s.log.V(1).Info("timestep changed", "step", step, "dt", dt, "previous", s.dt)
	}
	return dt, nil
}
