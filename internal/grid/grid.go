// Package grid implements the fixed background mesh of the solver.
//
// Nodes sit on a uniform lattice with spacing Dx. Node ids map bijectively to
// lattice coordinates (i, j, k) with id = i + j*Nx + k*Nx*Ny. Two-dimensional
// grids have a single node layer along z.
package grid

import (
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Boundary is the per-axis treatment of stencils that leave the domain.
type Boundary uint8

const (
	// Auto is periodic unless a node condition sits within two cells of
	// either extent of the axis.
	Auto Boundary = iota
	Periodic
	Clipped
)

func (b Boundary) String() string {
	switch b {
	case Periodic:
		return "periodic"
	case Clipped:
		return "clipped"
	default:
		return "auto"
	}
}

// ParseBoundary maps a configuration name to a Boundary.
func ParseBoundary(name string) (Boundary, error) {
	switch name {
	case "", "auto":
		return Auto, nil
	case "periodic":
		return Periodic, nil
	case "clipped", "clip":
		return Clipped, nil
	}
	return Auto, fmt.Errorf("unknown boundary policy %q: %w", name, core.ErrInvalidConfig)
}

// overrideCells is how close to an extent a node condition must be to turn
// an Auto axis into a clipped one.
const overrideCells = 2

// Node is one lattice point. Pos never changes; the rest is rebuilt each step.
type Node struct {
	Pos         tensor.Vec
	Mass        float64
	Momentum    tensor.Vec
	Force       tensor.Vec
	VelocityOld tensor.Vec
	Velocity    tensor.Vec
	Active      bool
}

// Reset zeroes the per-step accumulators.
func (n *Node) Reset() {
	n.Mass = 0
	n.Momentum = tensor.Vec{}
	n.Force = tensor.Vec{}
	n.VelocityOld = tensor.Vec{}
	n.Velocity = tensor.Vec{}
	n.Active = false
}

// Grid is the node arena plus its lattice geometry.
type Grid struct {
	Dim    int
	Origin tensor.Vec
	Length tensor.Vec
	Dx     float64
	N      [3]int
	Nodes  []Node
	BC     *bc.Table

	requested [3]Boundary
	resolved  [3]Boundary
	log       logr.Logger
}

// New builds a grid covering [origin, origin+length] with cell size dx.
func New(dim int, origin, length tensor.Vec, dx float64, boundary [3]Boundary, log logr.Logger) (*Grid, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("dimension %d not in {2,3}: %w", dim, core.ErrInvalidConfig)
	}
	if !(dx > 0) || math.IsInf(dx, 0) {
		return nil, fmt.Errorf("dx=%g: %w", dx, core.ErrCellSize)
	}

	g := &Grid{Dim: dim, Origin: origin, Length: length, Dx: dx, requested: boundary, log: log}
	g.N[2] = 1
	for a := 0; a < dim; a++ {
		cells := length[a] / dx
		rc := math.Round(cells)
		if rc < 1 || math.Abs(cells-rc) > 1e-9*math.Max(1, rc) {
			return nil, fmt.Errorf("axis %d: length %g is not a positive multiple of dx=%g: %w", a, length[a], dx, core.ErrCellSize)
		}
		g.N[a] = int(rc) + 1
	}
	if dim == 2 {
		g.Length[2] = 0
		g.Origin[2] = 0
	}

	g.Nodes = make([]Node, g.N[0]*g.N[1]*g.N[2])
	for id := range g.Nodes {
		i, j, k := g.Coords(id)
		g.Nodes[id].Pos = tensor.Vec{
			origin[0] + float64(i)*dx,
			origin[1] + float64(j)*dx,
			g.Origin[2] + float64(k)*dx,
		}
	}
	g.BC = bc.NewTable(bc.Nodes, len(g.Nodes), log)
	g.resolved = boundary
	return g, nil
}

// NumNodes returns the node count.
func (g *Grid) NumNodes() int { return len(g.Nodes) }

// Index returns the node id of lattice coordinates (i, j, k).
func (g *Grid) Index(i, j, k int) int {
	return i + j*g.N[0] + k*g.N[0]*g.N[1]
}

// Coords returns the lattice coordinates of node id.
func (g *Grid) Coords(id int) (i, j, k int) {
	area := g.N[0] * g.N[1]
	i = id % g.N[0]
	j = (id % area) / g.N[0]
	k = id / area
	return i, j, k
}

// Lo returns the lower extent of axis a.
func (g *Grid) Lo(a int) float64 { return g.Origin[a] }

// Hi returns the upper extent of axis a.
func (g *Grid) Hi(a int) float64 { return g.Origin[a] + float64(g.N[a]-1)*g.Dx }

// Boundary returns the resolved policy of axis a.
func (g *Grid) Boundary(a int) Boundary { return g.resolved[a] }

// SetBoundary overrides the requested policy of axis a; takes effect at the
// next ResolveBoundaries.
func (g *Grid) SetBoundary(a int, b Boundary) {
	g.requested[a] = b
	g.resolved[a] = b
}

// ResolveBoundaries turns every Auto axis into Periodic or Clipped based on
// the node conditions assigned so far.
func (g *Grid) ResolveBoundaries() {
	for a := 0; a < g.Dim; a++ {
		if g.requested[a] != Auto {
			g.resolved[a] = g.requested[a]
			continue
		}
		g.resolved[a] = Periodic
		for _, id := range g.BC.Active() {
			c := g.coord(id, a)
			if c <= overrideCells || c >= g.N[a]-1-overrideCells {
				g.resolved[a] = Clipped
				g.log.V(1).Info("axis clipped by boundary condition", "axis", a, "node", id)
				break
			}
		}
	}
	for a := g.Dim; a < 3; a++ {
		g.resolved[a] = Clipped
	}
}

func (g *Grid) coord(id, a int) int {
	i, j, k := g.Coords(id)
	switch a {
	case 0:
		return i
	case 1:
		return j
	}
	return k
}

// Period returns the number of distinct lattice positions along a periodic axis.
func (g *Grid) Period(a int) int { return g.N[a] - 1 }

// Wrap maps lattice coordinate c along axis a to a valid coordinate.
// It reports false when c is out of range on a non-periodic axis.
func (g *Grid) Wrap(a, c int) (int, bool) {
	if g.resolved[a] == Periodic {
		p := g.Period(a)
		m := c % p
		if m < 0 {
			m += p
		}
		return m, true
	}
	return c, c >= 0 && c < g.N[a]
}

// WrapPosition folds x into [Lo, Hi) along periodic axes.
func (g *Grid) WrapPosition(x tensor.Vec) tensor.Vec {
	for a := 0; a < g.Dim; a++ {
		if g.resolved[a] != Periodic {
			continue
		}
		l := g.Hi(a) - g.Lo(a)
		r := math.Mod(x[a]-g.Lo(a), l)
		if r < 0 {
			r += l
		}
		x[a] = g.Lo(a) + r
	}
	return x
}

// Contains reports whether x lies inside the closed domain box.
func (g *Grid) Contains(x tensor.Vec) bool {
	for a := 0; a < g.Dim; a++ {
		if x[a] < g.Lo(a) || x[a] > g.Hi(a) {
			return false
		}
	}
	return true
}

// NodesIn returns the ids of nodes inside the closed box [lo, hi].
func (g *Grid) NodesIn(lo, hi tensor.Vec) []int {
	const tol = 1e-9
	var ids []int
	for id := range g.Nodes {
		p := g.Nodes[id].Pos
		in := true
		for a := 0; a < g.Dim; a++ {
			if p[a] < lo[a]-tol*g.Dx || p[a] > hi[a]+tol*g.Dx {
				in = false
				break
			}
		}
		if in {
			ids = append(ids, id)
		}
	}
	return ids
}

// Reset zeroes every node accumulator.
func (g *Grid) Reset() {
	for i := range g.Nodes {
		g.Nodes[i].Reset()
	}
}

// ResetRange zeroes nodes [start, end); used by parallel resets.
func (g *Grid) ResetRange(start, end int) {
	for i := start; i < end; i++ {
		g.Nodes[i].Reset()
	}
}

// TotalMass sums node masses.
func (g *Grid) TotalMass() float64 {
	m := 0.0
	for i := range g.Nodes {
		m += g.Nodes[i].Mass
	}
	return m
}

// TotalMomentum sums node momenta.
func (g *Grid) TotalMomentum() tensor.Vec {
	var p tensor.Vec
	for i := range g.Nodes {
		p = p.Add(g.Nodes[i].Momentum)
	}
	return p
}
