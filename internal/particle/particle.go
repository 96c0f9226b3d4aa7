// Package particle holds the material points carried through the grid.
package particle

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Point is one material point.
type Point struct {
	Position  tensor.Vec
	Velocity  tensor.Vec
	Mass      float64
	Volume0   float64
	Volume    float64
	HalfWidth float64 // lp
	Rate      tensor.Sym
	Material  int
	Body      int

	material.State
}

// Density returns mass over current volume.
func (p *Point) Density() float64 { return p.Mass / p.Volume }

// Geometry is the column-oriented particle input. Velocity, Stress, Body and
// HalfWidth may be nil; the rest must match Position in length.
type Geometry struct {
	Position  []tensor.Vec
	Velocity  []tensor.Vec
	Mass      []float64
	Volume    []float64
	HalfWidth []float64
	Material  []int
	Body      []int
	Stress    []tensor.Sym
}

// Append adds one particle to g.
func (g *Geometry) Append(x, v tensor.Vec, mass, vol, lp float64, mat, body int) {
	g.Position = append(g.Position, x)
	g.Velocity = append(g.Velocity, v)
	g.Mass = append(g.Mass, mass)
	g.Volume = append(g.Volume, vol)
	g.HalfWidth = append(g.HalfWidth, lp)
	g.Material = append(g.Material, mat)
	g.Body = append(g.Body, body)
}

// Len returns the particle count.
func (g *Geometry) Len() int { return len(g.Position) }

// Set is the particle arena.
type Set struct {
	Points []Point
	BC     *bc.Table
	bodies []int
}

// NewSet validates geom against the cell size and material count.
func NewSet(geom Geometry, dx float64, materials int, log logr.Logger) (*Set, error) {
	n := len(geom.Position)
	check := func(name string, l int, optional bool) error {
		if optional && l == 0 {
			return nil
		}
		if l != n {
			return fmt.Errorf("%s has %d entries, positions %d: %w", name, l, n, core.ErrLengthMismatch)
		}
		return nil
	}
	for _, c := range []struct {
		name     string
		l        int
		optional bool
	}{
		{"velocity", len(geom.Velocity), true},
		{"mass", len(geom.Mass), false},
		{"volume", len(geom.Volume), false},
		{"half_width", len(geom.HalfWidth), true},
		{"material", len(geom.Material), false},
		{"body", len(geom.Body), true},
		{"stress", len(geom.Stress), true},
	} {
		if err := check(c.name, c.l, c.optional); err != nil {
			return nil, err
		}
	}

	s := &Set{Points: make([]Point, n), BC: bc.NewTable(bc.Particles, n, log)}
	seen := map[int]bool{}
	for i := range s.Points {
		p := &s.Points[i]
		p.Position = geom.Position[i]
		p.Mass = geom.Mass[i]
		p.Volume0 = geom.Volume[i]
		p.Volume = geom.Volume[i]
		p.Material = geom.Material[i]
		if geom.Velocity != nil {
			p.Velocity = geom.Velocity[i]
		}
		if geom.Body != nil {
			p.Body = geom.Body[i]
		}
		if geom.Stress != nil {
			p.SetStress(geom.Stress[i])
		}
		if geom.HalfWidth != nil {
			p.HalfWidth = geom.HalfWidth[i]
		} else {
			p.HalfWidth = dx / 4
		}

		switch {
		case !(p.Mass > 0) || math.IsInf(p.Mass, 0):
			return nil, fmt.Errorf("particle %d: mass %g must be positive: %w", i, p.Mass, core.ErrInvalidConfig)
		case !(p.Volume > 0) || math.IsInf(p.Volume, 0):
			return nil, fmt.Errorf("particle %d: volume %g must be positive: %w", i, p.Volume, core.ErrInvalidConfig)
		case !(p.HalfWidth > 0) || p.HalfWidth > dx/2:
			return nil, fmt.Errorf("particle %d: half-width %g outside (0, %g]: %w", i, p.HalfWidth, dx/2, core.ErrInvalidConfig)
		case p.Material < 0 || p.Material >= materials:
			return nil, fmt.Errorf("particle %d: material %d out of range [0,%d): %w", i, p.Material, materials, core.ErrInvalidConfig)
		case p.Body < 0:
			return nil, fmt.Errorf("particle %d: negative body %d: %w", i, p.Body, core.ErrInvalidConfig)
		case !p.Position.IsFinite() || !p.Velocity.IsFinite() || !p.Stress.IsFinite():
			return nil, fmt.Errorf("particle %d: %w", i, core.ErrNonFinite)
		}
		if !seen[p.Body] {
			seen[p.Body] = true
			s.bodies = append(s.bodies, p.Body)
		}
	}
	sort.Ints(s.bodies)
	return s, nil
}

// Len returns the particle count.
func (s *Set) Len() int { return len(s.Points) }

// Bodies returns the sorted distinct body ids.
func (s *Set) Bodies() []int { return s.bodies }

// TotalMass returns Σ m_p.
func (s *Set) TotalMass() float64 {
	sum := 0.0
	for i := range s.Points {
		sum += s.Points[i].Mass
	}
	return sum
}

// TotalMomentum returns Σ m_p v_p.
func (s *Set) TotalMomentum() tensor.Vec {
	var sum tensor.Vec
	for i := range s.Points {
		sum = sum.AddScaled(s.Points[i].Velocity, s.Points[i].Mass)
	}
	return sum
}

// KineticEnergy returns Σ ½ m_p |v_p|².
func (s *Set) KineticEnergy() float64 {
	sum := 0.0
	for i := range s.Points {
		p := &s.Points[i]
		sum += 0.5 * p.Mass * p.Velocity.Dot(p.Velocity)
	}
	return sum
}

// StrainEnergy returns Σ ½ V_p σ:ε, using the accumulated small strain.
func (s *Set) StrainEnergy() float64 {
	sum := 0.0
	for i := range s.Points {
		p := &s.Points[i]
		sum += 0.5 * p.Volume * p.Stress.DoubleDot(p.Strain)
	}
	return sum
}

// GravityPotential returns -Σ m_p g·x_p.
func (s *Set) GravityPotential(g tensor.Vec) float64 {
	sum := 0.0
	for i := range s.Points {
		sum -= s.Points[i].Mass * g.Dot(s.Points[i].Position)
	}
	return sum
}

// MaxDamage returns the largest particle damage.
func (s *Set) MaxDamage() float64 {
	d := 0.0
	for i := range s.Points {
		d = math.Max(d, s.Points[i].Damage)
	}
	return d
}

// MaxVonMises returns the largest particle von Mises stress.
func (s *Set) MaxVonMises() float64 {
	q := 0.0
	for i := range s.Points {
		q = math.Max(q, s.Points[i].Stress.VonMises())
	}
	return q
}

// MaxSpeed returns the largest particle speed.
func (s *Set) MaxSpeed() float64 {
	v := 0.0
	for i := range s.Points {
		v = math.Max(v, s.Points[i].Velocity.Norm())
	}
	return v
}

// Bounds returns the axis-aligned box containing every particle centre.
func (s *Set) Bounds() (lo, hi tensor.Vec) {
	if len(s.Points) == 0 {
		return
	}
	lo, hi = s.Points[0].Position, s.Points[0].Position
	for i := range s.Points {
		x := s.Points[i].Position
		for a := 0; a < 3; a++ {
			lo[a] = math.Min(lo[a], x[a])
			hi[a] = math.Max(hi[a], x[a])
		}
	}
	return lo, hi
}

// Select returns the ids of particles whose centre lies in [lo, hi].
func (s *Set) Select(lo, hi tensor.Vec) []int {
	var ids []int
	for i := range s.Points {
		x := s.Points[i].Position
		if x[0] >= lo[0] && x[0] <= hi[0] && x[1] >= lo[1] && x[1] <= hi[1] && x[2] >= lo[2] && x[2] <= hi[2] {
			ids = append(ids, i)
		}
	}
	return ids
}
