package sim

import (
	"math"

	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// nodeVelocities returns the old and new velocity a particle sees at node,
// and whether that node field is active.
func (s *Solver) nodeVelocities(slot, node int) (vOld, vNew tensor.Vec, ok bool) {
	if slot >= 0 {
		j := s.fields.At(slot, node)
		return s.fields.VelocityOld[j], s.fields.Velocity[j], s.fields.Mass[j] >= s.massEps
	}
	n := &s.grid.Nodes[node]
	return n.VelocityOld, n.Velocity, n.Active
}

// gather maps node velocities back to the particles, moves them, and runs the
// constitutive update. It reuses the stencils of the scatter. Every particle
// is visited even after a failure; the error of the lowest failing chunk is
// returned.
func (s *Solver) gather(t float64, step int, dt float64, params Parameters) error {
	pts := s.parts.Points
	table := s.parts.BC
	flip := params.Flip
	errs := make([]error, s.pool.Workers())

	s.pool.ParallelFor(len(pts), func(worker, start, end int) {
		for i := start; i < end; i++ {
			p := &pts[i]
			slot := -1
			if s.fields != nil {
				slot = s.slots[i]
			}

			var dv, vpic tensor.Vec
			var l tensor.Mat3
			wsum := 0.0
			nodes, w, grad := s.stencils.Entries(i)
			for k, node := range nodes {
				vo, vn, ok := s.nodeVelocities(slot, node)
				if !ok {
					continue
				}
				wsum += w[k]
				dv = dv.AddScaled(vn.Sub(vo), w[k])
				vpic = vpic.AddScaled(vn, w[k])
				l.AddOuter(vn, grad[k], 1)
			}
			if wsum <= 0 {
				if errs[worker] == nil {
					errs[worker] = &core.StepError{Step: step, Time: t, Quantity: "particle support", Index: i, Wrapped: core.ErrMassUnderflow}
				}
				continue
			}

			v := p.Velocity.Add(dv).Scale(flip).AddScaled(vpic, 1-flip)
			if c := table.At(i); c.Kind == bc.Velocity {
				v = c.Velocity(v, t+dt)
			}
			p.Velocity = v
			p.Position = s.grid.WrapPosition(p.Position.AddScaled(v, dt))

			d := l.Sym()
			de := d.Scale(dt)
			p.Volume *= 1 + de.Trace()
			p.Rate = d
			if params.Jaumann {
				spin := tensor.JaumannRate(l.Skew(), p.Stress).Scale(dt)
				p.Stress = p.Stress.Add(spin)
				p.Undamaged = p.Undamaged.Add(tensor.JaumannRate(l.Skew(), p.Undamaged).Scale(dt))
			}
			material.Advance(s.mats[p.Material].Model, &p.State, material.Increment{
				Strain: de,
				Rate:   d,
				Dt:     dt,
				Volume: p.Volume,
				Dim:    s.grid.Dim,
			})

			if q := checkFinite(p); q != "" && errs[worker] == nil {
				errs[worker] = &core.StepError{Step: step, Time: t, Quantity: q, Index: i, Wrapped: core.ErrNonFinite}
			}
		}
	})

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// checkFinite names the first non-finite particle quantity, or "".
func checkFinite(p *particle.Point) string {
	switch {
	case !p.Velocity.IsFinite():
		return "velocity"
	case !p.Position.IsFinite():
		return "position"
	case !p.Stress.IsFinite():
		return "stress"
	case math.IsNaN(p.Volume) || math.IsInf(p.Volume, 0):
		return "volume"
	}
	return ""
}
