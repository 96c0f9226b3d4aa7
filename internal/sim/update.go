package sim

import (
	"math"

	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// integrateNode turns accumulated momentum and force into the old and new
// velocities of one node field. The node force condition replaces the
// constrained force axes, the velocity condition pins vOld, and local
// damping opposes the motion before the explicit update.
func integrateNode(m float64, mom, force tensor.Vec, c bc.Condition, t, dt, damping float64) (vOld, vNew, f tensor.Vec) {
	vOld = mom.Scale(1 / m)
	f = c.Force(force, t)
	vOld = c.Velocity(vOld, t)
	if damping > 0 {
		for a := 0; a < 3; a++ {
			if vOld[a] != 0 {
				f[a] -= damping * math.Abs(f[a]) * math.Copysign(1, vOld[a])
			}
		}
	}
	vNew = vOld.AddScaled(f, dt/m)
	return vOld, vNew, f
}

func (s *Solver) updateGrid(t, dt float64, params Parameters) {
	table := s.grid.BC
	nodes := s.grid.Nodes
	s.pool.ParallelFor(len(nodes), func(_, start, end int) {
		for i := start; i < end; i++ {
			node := &nodes[i]
			if node.Mass < s.massEps {
				continue
			}
			node.Active = true
			node.VelocityOld, node.Velocity, node.Force = integrateNode(
				node.Mass, node.Momentum, node.Force, table.At(i), t, dt, params.Damping)
		}
	})

	if s.fields == nil {
		return
	}
	f := s.fields
	s.pool.ParallelFor(f.Len(), func(_, start, end int) {
		for j := start; j < end; j++ {
			if f.Mass[j] < s.massEps {
				continue
			}
			node := j % f.Nodes
			f.VelocityOld[j], f.Velocity[j], f.Force[j] = integrateNode(
				f.Mass[j], f.Momentum[j], f.Force[j], table.At(node), t, dt, params.Damping)
		}
	})
}

// resolveContact corrects closing body velocities and returns the number of
// nodes where bodies were closing.
func (s *Solver) resolveContact() int {
	if s.fields == nil {
		return 0
	}
	counts := compute.ParallelReduce(s.pool, s.fields.Nodes, func(start, end int) int {
		n := 0
		for node := start; node < end; node++ {
			if !s.grid.Nodes[node].Active {
				continue
			}
			if s.resolver.Resolve(s.fields, node, s.massEps) {
				n++
			}
		}
		return n
	})
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// applyVelocityConditions is the last write to node velocities before the
// gather.
func (s *Solver) applyVelocityConditions(t float64) {
	table := s.grid.BC
	for _, i := range table.Active() {
		c := table.At(i)
		if c.Kind != bc.Velocity {
			continue
		}
		node := &s.grid.Nodes[i]
		if node.Active {
			node.Velocity = c.Velocity(node.Velocity, t)
		}
		if s.fields == nil {
			continue
		}
		for b := range s.fields.Bodies {
			j := s.fields.At(b, i)
			if s.fields.Mass[j] >= s.massEps {
				s.fields.Velocity[j] = c.Velocity(s.fields.Velocity[j], t)
			}
		}
	}
}
