package shape

import (
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Stencils stores, for every particle, the nodes it touches with their
// weights and gradients. It is filled once per step before the scatter and
// read back unchanged by the gather.
type Stencils struct {
	cap   int
	count []int
	node  []int
	w     []float64
	grad  []tensor.Vec
}

// Capacity returns the per-particle entry capacity for a dimension.
func Capacity(dim int) int {
	c := 1
	for a := 0; a < dim; a++ {
		c *= MaxPerAxis
	}
	return c
}

// NewStencils allocates room for n particles on a dim-dimensional grid.
func NewStencils(n, dim int) *Stencils {
	c := Capacity(dim)
	return &Stencils{
		cap:   c,
		count: make([]int, n),
		node:  make([]int, n*c),
		w:     make([]float64, n*c),
		grad:  make([]tensor.Vec, n*c),
	}
}

// Len returns the particle count.
func (s *Stencils) Len() int { return len(s.count) }

// Compute fills the stencil of particle p at position x with half-width lp.
// Safe to call concurrently for distinct p.
func (s *Stencils) Compute(g *grid.Grid, p int, x tensor.Vec, lp float64) {
	var ax [3]Axis
	for a := 0; a < 3; a++ {
		AxisWeights(g, a, x[a], lp, &ax[a])
	}

	base := p * s.cap
	n := 0
	for k := 0; k < ax[2].N; k++ {
		for j := 0; j < ax[1].N; j++ {
			for i := 0; i < ax[0].N; i++ {
				sx, sy, sz := ax[0].S[i], ax[1].S[j], ax[2].S[k]
				gx, gy, gz := ax[0].G[i], ax[1].G[j], ax[2].G[k]

				w := sx * sy * sz
				gr := tensor.Vec{gx * sy * sz, sx * gy * sz, sx * sy * gz}
				if w == 0 && gr == (tensor.Vec{}) {
					continue
				}
				s.node[base+n] = g.Index(ax[0].Node[i], ax[1].Node[j], ax[2].Node[k])
				s.w[base+n] = w
				s.grad[base+n] = gr
				n++
			}
		}
	}
	s.count[p] = n
}

// Entries returns the node ids, weights and gradients of particle p. The
// slices alias internal storage and are valid until the next Compute.
func (s *Stencils) Entries(p int) (nodes []int, w []float64, grad []tensor.Vec) {
	base := p * s.cap
	n := s.count[p]
	return s.node[base : base+n], s.w[base : base+n], s.grad[base : base+n]
}

// WeightSum returns Σw for particle p.
func (s *Stencils) WeightSum(p int) float64 {
	_, w, _ := s.Entries(p)
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum
}

// GradientSum returns Σ∇w for particle p.
func (s *Stencils) GradientSum(p int) tensor.Vec {
	_, _, g := s.Entries(p)
	var sum tensor.Vec
	for _, v := range g {
		sum = sum.Add(v)
	}
	return sum
}
