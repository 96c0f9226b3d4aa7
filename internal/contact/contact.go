// Package contact implements multi-velocity-field contact between bodies.
//
// Every body deposits mass, momentum, force and a mass-gradient normal into
// its own node field. Where two or more bodies meet at a node the Resolver
// compares each body velocity with the centre-of-mass velocity along the
// body normal and, if the bodies are closing, removes the approach according
// to the friction policy. Normals are built pairwise-antisymmetric so the
// correction conserves the node's momentum.
package contact

import (
	"fmt"
	"strings"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Fields holds one node field per body, stored body-major.
type Fields struct {
	Bodies      []int
	Nodes       int
	Mass        []float64
	Momentum    []tensor.Vec
	Force       []tensor.Vec
	Normal      []tensor.Vec
	VelocityOld []tensor.Vec
	Velocity    []tensor.Vec

	slot map[int]int
}

// NewFields allocates fields for the given body ids on a grid of n nodes.
func NewFields(bodies []int, n int) *Fields {
	size := len(bodies) * n
	f := &Fields{
		Bodies:      append([]int(nil), bodies...),
		Nodes:       n,
		Mass:        make([]float64, size),
		Momentum:    make([]tensor.Vec, size),
		Force:       make([]tensor.Vec, size),
		Normal:      make([]tensor.Vec, size),
		VelocityOld: make([]tensor.Vec, size),
		Velocity:    make([]tensor.Vec, size),
		slot:        make(map[int]int, len(bodies)),
	}
	for i, b := range bodies {
		f.slot[b] = i
	}
	return f
}

// Slot returns the field index of a body id.
func (f *Fields) Slot(body int) int { return f.slot[body] }

// At returns the flat index of node in field b.
func (f *Fields) At(b, node int) int { return b*f.Nodes + node }

// Len returns the number of field entries.
func (f *Fields) Len() int { return len(f.Mass) }

// Reset zeroes every field.
func (f *Fields) Reset() {
	for i := range f.Mass {
		f.Mass[i] = 0
		f.Momentum[i] = tensor.Vec{}
		f.Force[i] = tensor.Vec{}
		f.Normal[i] = tensor.Vec{}
		f.VelocityOld[i] = tensor.Vec{}
		f.Velocity[i] = tensor.Vec{}
	}
}

// Friction selects how tangential velocity is treated on closing contact.
type Friction uint8

const (
	Stick Friction = iota
	Slip
	Coulomb
)

func (f Friction) String() string {
	switch f {
	case Stick:
		return "stick"
	case Slip:
		return "slip"
	case Coulomb:
		return "coulomb"
	default:
		return fmt.Sprintf("friction(%d)", uint8(f))
	}
}

// ParseFriction maps a name to a Friction.
func ParseFriction(name string) (Friction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "stick":
		return Stick, nil
	case "slip", "frictionless":
		return Slip, nil
	case "coulomb", "friction":
		return Coulomb, nil
	}
	return Stick, fmt.Errorf("unknown friction policy %q: %w", name, core.ErrInvalidConfig)
}

// Resolver corrects closing body velocities at shared nodes.
type Resolver struct {
	Friction Friction
	Mu       float64
	// Tiny is the smallest normal magnitude treated as a direction.
	Tiny float64
}

// Resolve corrects the body velocities at node. It reports whether any body
// was closing.
func (r Resolver) Resolve(f *Fields, node int, massEps float64) bool {
	present := 0
	mass := 0.0
	var mom, sum tensor.Vec
	for b := range f.Bodies {
		i := f.At(b, node)
		if f.Mass[i] < massEps {
			continue
		}
		present++
		mass += f.Mass[i]
		mom = mom.AddScaled(f.Velocity[i], f.Mass[i])
		sum = sum.Add(f.Normal[i])
	}
	if present < 2 {
		return false
	}
	vcm := mom.Scale(1 / mass)

	tiny := r.Tiny
	if tiny <= 0 {
		tiny = 1e-12
	}
	closing := false
	for b := range f.Bodies {
		i := f.At(b, node)
		if f.Mass[i] < massEps {
			continue
		}
		// n_b - Σ_{c≠b} n_c
		n, ok := f.Normal[i].Scale(2).Sub(sum).Unit(tiny)
		if !ok {
			continue
		}
		rel := f.Velocity[i].Sub(vcm)
		dn := rel.Dot(n)
		if dn <= 0 {
			continue
		}
		closing = true
		f.Velocity[i] = f.Velocity[i].Sub(r.correction(rel, n, dn))
	}
	return closing
}

// correction returns the velocity removed from a body closing with relative
// velocity rel along unit normal n, with normal approach dn > 0.
func (r Resolver) correction(rel, n tensor.Vec, dn float64) tensor.Vec {
	switch r.Friction {
	case Slip:
		return n.Scale(dn)
	case Coulomb:
		tang := rel.AddScaled(n, -dn)
		ts := tang.Norm()
		limit := r.Mu * dn
		if ts <= limit {
			return rel
		}
		return n.Scale(dn).AddScaled(tang, limit/ts)
	default:
		return rel
	}
}
