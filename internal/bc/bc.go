// Package bc holds boundary-condition slots for nodes and particles.
//
// Every entity carries at most one active condition. Assigning a new one
// replaces the old one outright; a change of kind is logged as a warning.
package bc

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Kind enumerates the condition kinds.
type Kind uint8

const (
	Free Kind = iota
	Velocity
	Force
	Stress
)

func (k Kind) String() string {
	switch k {
	case Free:
		return "free"
	case Velocity:
		return "velocity"
	case Force:
		return "force"
	case Stress:
		return "stress"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a configuration name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "", "free":
		return Free, nil
	case "velocity":
		return Velocity, nil
	case "force":
		return Force, nil
	case "stress":
		return Stress, nil
	}
	return Free, fmt.Errorf("unknown boundary condition kind %q: %w", name, core.ErrInvalidConfig)
}

// Condition is a prescribed value on a subset of components. Velocity and
// Force use the first three slots; Stress uses all six in Voigt order.
type Condition struct {
	Kind  Kind
	Mask  [6]bool
	Value [6]float64
	// Ramp, when positive, scales Value linearly from zero at t=0 to full
	// strength at t=Ramp.
	Ramp float64
}

// Fixed returns a zero-velocity condition on every axis.
func Fixed() Condition {
	return NewVelocity([3]bool{true, true, true}, tensor.Vec{})
}

// NewVelocity prescribes velocity on the masked axes.
func NewVelocity(mask [3]bool, v tensor.Vec) Condition {
	c := Condition{Kind: Velocity}
	for a := 0; a < 3; a++ {
		c.Mask[a] = mask[a]
		c.Value[a] = v[a]
	}
	return c
}

// NewForce prescribes force on the masked axes.
func NewForce(mask [3]bool, f tensor.Vec) Condition {
	c := Condition{Kind: Force}
	for a := 0; a < 3; a++ {
		c.Mask[a] = mask[a]
		c.Value[a] = f[a]
	}
	return c
}

// NewStress prescribes stress on the masked Voigt components.
func NewStress(mask [6]bool, s tensor.Sym) Condition {
	return Condition{Kind: Stress, Mask: mask, Value: s}
}

// WithRamp returns a copy of c ramped over the given time.
func (c Condition) WithRamp(ramp float64) Condition {
	c.Ramp = ramp
	return c
}

// Scale returns the ramp multiplier at time t.
func (c Condition) Scale(t float64) float64 {
	if c.Ramp <= 0 {
		return 1
	}
	return math.Min(1, math.Max(0, t/c.Ramp))
}

// Velocity overwrites the constrained axes of v when c is a velocity condition.
func (c Condition) Velocity(v tensor.Vec, t float64) tensor.Vec {
	if c.Kind != Velocity {
		return v
	}
	return c.overwrite(v, t)
}

// Force overwrites the constrained axes of f when c is a force condition.
func (c Condition) Force(f tensor.Vec, t float64) tensor.Vec {
	if c.Kind != Force {
		return f
	}
	return c.overwrite(f, t)
}

// Load returns the prescribed force vector (zero on free axes) when c is a
// force condition, for adding into a scatter.
func (c Condition) Load(t float64) tensor.Vec {
	if c.Kind != Force {
		return tensor.Vec{}
	}
	return c.overwrite(tensor.Vec{}, t)
}

// Stress overwrites the constrained components of s when c is a stress condition.
func (c Condition) Stress(s tensor.Sym, t float64) tensor.Sym {
	if c.Kind != Stress {
		return s
	}
	k := c.Scale(t)
	for i := range s {
		if c.Mask[i] {
			s[i] = c.Value[i] * k
		}
	}
	return s
}

func (c Condition) overwrite(v tensor.Vec, t float64) tensor.Vec {
	k := c.Scale(t)
	for a := 0; a < 3; a++ {
		if c.Mask[a] {
			v[a] = c.Value[a] * k
		}
	}
	return v
}

// Constrains reports whether axis a is constrained.
func (c Condition) Constrains(a int) bool {
	return c.Kind != Free && a >= 0 && a < len(c.Mask) && c.Mask[a]
}
