package particle

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Region shapes understood by Fill.
const (
	ShapeBox    = "box"
	ShapeSphere = "sphere"
)

// Region seeds particles on a regular sub-cell lattice.
type Region struct {
	Shape    string
	Lo, Hi   tensor.Vec // box corners, or the bounding box of the sphere
	Center   tensor.Vec
	Radius   float64
	PerCell  int // particles per cell along each axis
	Density  float64
	Material int
	Body     int
	Velocity tensor.Vec
	Stress   tensor.Sym
}

func (r Region) contains(x tensor.Vec, dim int) bool {
	if r.Shape != ShapeSphere {
		return true
	}
	d := x.Sub(r.Center)
	if dim == 2 {
		d[2] = 0
	}
	return d.Norm() <= r.Radius
}

// Fill appends the particles of r to g and returns how many were added.
func Fill(g *Geometry, r Region, dx float64, dim int) (int, error) {
	if r.PerCell <= 0 {
		r.PerCell = 2
	}
	if !(r.Density > 0) {
		return 0, fmt.Errorf("region density %g must be positive: %w", r.Density, core.ErrInvalidConfig)
	}
	switch r.Shape {
	case "", ShapeBox:
	case ShapeSphere:
		if !(r.Radius > 0) {
			return 0, fmt.Errorf("sphere radius %g must be positive: %w", r.Radius, core.ErrInvalidConfig)
		}
		for a := 0; a < dim; a++ {
			r.Lo[a] = r.Center[a] - r.Radius
			r.Hi[a] = r.Center[a] + r.Radius
		}
		if dim == 2 {
			// 2-D particles sit in the sphere's z plane
			r.Lo[2], r.Hi[2] = r.Center[2], r.Center[2]
		}
	default:
		return 0, fmt.Errorf("unknown region shape %q: %w", r.Shape, core.ErrInvalidConfig)
	}

	h := dx / float64(r.PerCell)
	var count [3]int
	for a := 0; a < 3; a++ {
		if a >= dim {
			count[a] = 1
			continue
		}
		count[a] = int(math.Round((r.Hi[a] - r.Lo[a]) / h))
		if count[a] <= 0 {
			return 0, fmt.Errorf("region axis %d spans no particles: %w", a, core.ErrInvalidConfig)
		}
	}

	vol := math.Pow(h, float64(dim))
	before := g.Len()
	for k := 0; k < count[2]; k++ {
		for j := 0; j < count[1]; j++ {
			for i := 0; i < count[0]; i++ {
				x := tensor.Vec{
					r.Lo[0] + (float64(i)+0.5)*h,
					r.Lo[1] + (float64(j)+0.5)*h,
					r.Lo[2] + (float64(k)+0.5)*h,
				}
				if dim == 2 {
					x[2] = r.Lo[2]
				}
				if !r.contains(x, dim) {
					continue
				}
				g.Append(x, r.Velocity, r.Density*vol, vol, h/2, r.Material, r.Body)
				if g.Stress != nil || r.Stress != (tensor.Sym{}) {
					for len(g.Stress) < g.Len()-1 {
						g.Stress = append(g.Stress, tensor.Sym{})
					}
					g.Stress = append(g.Stress, r.Stress)
				}
			}
		}
	}
	return g.Len() - before, nil
}
