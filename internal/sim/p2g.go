package sim

import (
	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// applyStressConditions overwrites the prescribed stress components of
// particles carrying a stress condition.
func (s *Solver) applyStressConditions(t float64) {
	table := s.parts.BC
	for _, i := range table.Active() {
		c := table.At(i)
		if c.Kind != bc.Stress {
			continue
		}
		p := &s.parts.Points[i]
		p.Stress = c.Stress(p.Stress, t)
		p.Undamaged = c.Stress(p.Undamaged, t)
	}
}

func (s *Solver) computeStencils() {
	pts := s.parts.Points
	s.pool.ParallelFor(len(pts), func(_, start, end int) {
		for i := start; i < end; i++ {
			s.stencils.Compute(s.grid, i, pts[i].Position, pts[i].HalfWidth)
		}
	})
}

// scatterParticles accumulates mass, momentum and force onto the nodes and,
// with contact, onto each body's field.
func (s *Solver) scatterParticles(t float64, params Parameters) {
	pts := s.parts.Points
	table := s.parts.BC
	n := s.grid.NumNodes()
	gravity := params.Gravity

	s.scatter.Run(len(pts), func(buf *compute.Buffer, start, end int) {
		for i := start; i < end; i++ {
			p := &pts[i]
			body := -1
			if s.fields != nil {
				body = n + s.fields.At(s.slots[i], 0)
			}

			ext := gravity.Scale(p.Mass)
			if c := table.At(i); c.Kind == bc.Force {
				ext = ext.Add(c.Load(t))
			}
			mv := p.Velocity.Scale(p.Mass)
			vs := p.Stress.Scale(-p.Volume)

			nodes, w, grad := s.stencils.Entries(i)
			for k, node := range nodes {
				f := vs.MulVec(grad[k]).AddScaled(ext, w[k])
				buf.Mass[node] += w[k] * p.Mass
				buf.Momentum[node] = buf.Momentum[node].AddScaled(mv, w[k])
				buf.Force[node] = buf.Force[node].Add(f)
				if body >= 0 {
					j := body + node
					buf.Mass[j] += w[k] * p.Mass
					buf.Momentum[j] = buf.Momentum[j].AddScaled(mv, w[k])
					buf.Force[j] = buf.Force[j].Add(f)
					buf.Normal[j] = buf.Normal[j].AddScaled(grad[k], p.Mass)
				}
			}
		}
	})

	total := s.scatter.Total
	s.pool.ParallelFor(n, func(_, start, end int) {
		for i := start; i < end; i++ {
			node := &s.grid.Nodes[i]
			node.Reset()
			node.Mass = total.Mass[i]
			node.Momentum = total.Momentum[i]
			node.Force = total.Force[i]
		}
	})
	if s.fields == nil {
		return
	}
	f := s.fields
	s.pool.ParallelFor(f.Len(), func(_, start, end int) {
		for j := start; j < end; j++ {
			f.Mass[j] = total.Mass[n+j]
			f.Momentum[j] = total.Momentum[n+j]
			f.Force[j] = total.Force[n+j]
			f.Normal[j] = total.Normal[n+j]
			f.VelocityOld[j] = tensor.Vec{}
			f.Velocity[j] = tensor.Vec{}
		}
	})
}
