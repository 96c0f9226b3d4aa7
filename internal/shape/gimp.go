// Package shape evaluates GIMP shape functions.
//
// A particle of half-width lp covers [x-lp, x+lp] on each axis. Its weight
// for node i is the average of the linear hat function N_i over that support,
// and its gradient is the average of N_i'. Both are evaluated in closed form
// from the hat antiderivative, so weights sum to one and gradients sum to
// zero for any support inside the node span.
package shape

import (
	"math"

	"github.com/san-kum/mpmsim/internal/grid"
)

// MaxPerAxis bounds the nodes a support of half-width ≤ dx/2 can touch.
const MaxPerAxis = 4

// hat is the linear shape function in cell units.
func hat(u float64) float64 {
	return math.Max(0, 1-math.Abs(u))
}

// hatIntegral is the antiderivative of hat, zero at -∞ and one at +∞.
func hatIntegral(u float64) float64 {
	switch {
	case u <= -1:
		return 0
	case u <= 0:
		return 0.5 * (u + 1) * (u + 1)
	case u <= 1:
		return 1 - 0.5*(1-u)*(1-u)
	default:
		return 1
	}
}

// Axis holds the weights of one particle along one axis.
type Axis struct {
	N    int
	Node [MaxPerAxis]int
	S    [MaxPerAxis]float64
	G    [MaxPerAxis]float64
}

func (w *Axis) push(node int, s, g float64) {
	if w.N == MaxPerAxis {
		return
	}
	w.Node[w.N] = node
	w.S[w.N] = s
	w.G[w.N] = g
	w.N++
}

// AxisWeights computes the GIMP weights of a particle at x with half-width lp
// along axis a of g.
func AxisWeights(g *grid.Grid, a int, x, lp float64, out *Axis) {
	out.N = 0
	if a >= g.Dim {
		out.push(0, 1, 0)
		return
	}

	dx := g.Dx
	lo, hi := g.Lo(a), g.Hi(a)
	lp = math.Min(lp, 0.5*dx)
	left, right := x-lp, x+lp

	if g.Boundary(a) != grid.Periodic {
		left = math.Max(left, lo)
		right = math.Min(right, hi)
		if right-left <= 1e-12*dx {
			pointWeights(g, a, x, out)
			return
		}
	}

	width := right - left
	first := int(math.Floor((left - lo) / dx))
	last := int(math.Ceil((right - lo) / dx))
	for i := first; i <= last; i++ {
		xi := lo + float64(i)*dx
		ua := (left - xi) / dx
		ub := (right - xi) / dx
		s := dx * (hatIntegral(ub) - hatIntegral(ua)) / width
		gr := (hat(ub) - hat(ua)) / width
		if s == 0 && gr == 0 {
			continue
		}
		node, ok := g.Wrap(a, i)
		if !ok {
			continue
		}
		out.push(node, s, gr)
	}
}

// pointWeights falls back to linear shape functions at x clamped into the
// domain; used when a clipped support has collapsed to a point.
func pointWeights(g *grid.Grid, a int, x float64, out *Axis) {
	dx := g.Dx
	lo, hi := g.Lo(a), g.Hi(a)
	xc := math.Min(math.Max(x, lo), hi)
	c := int(math.Floor((xc - lo) / dx))
	if c > g.N[a]-2 {
		c = g.N[a] - 2
	}
	if c < 0 {
		c = 0
	}
	u := (xc-lo)/dx - float64(c)
	out.push(c, 1-u, -1/dx)
	out.push(c+1, u, 1/dx)
}
