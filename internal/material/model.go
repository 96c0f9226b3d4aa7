// Package material implements the constitutive updates of the solver.
//
// Every model maps a strain increment to a stress increment through the
// [Model] interface. Damage is a decorator ([GradyKipp]) wrapping any base
// model. Models are immutable after construction and shared by every
// particle referencing them; per-particle history lives in [State].
//
// Parameter validation happens once, in the constructors. Update never fails.
package material

import (
	"github.com/san-kum/mpmsim/internal/tensor"
)

// State is the per-particle constitutive history.
type State struct {
	Stress        tensor.Sym // effective Cauchy stress, tension positive
	Undamaged     tensor.Sym // stress before damage degradation
	Strain        tensor.Sym // accumulated small strain
	PlasticStrain float64    // accumulated plastic multiplier
	Damage        float64    // 0 intact, 1 fully damaged
}

// SetStress overwrites both the effective and undamaged stress.
func (s *State) SetStress(sig tensor.Sym) {
	s.Stress = sig
	s.Undamaged = sig
}

// Increment is the kinematic input of one constitutive update.
type Increment struct {
	Strain tensor.Sym // Δε = D dt
	Rate   tensor.Sym // D
	Dt     float64
	Volume float64 // current particle volume
	Dim    int
}

// Model is a constitutive law.
type Model interface {
	Name() string
	// Update advances st.Stress (and any history) by inc and returns the
	// change in st.Stress.
	Update(st *State, inc Increment) tensor.Sym
	// WaveSpeed returns the longitudinal wave speed at density rho.
	WaveSpeed(rho float64) float64
}

// Advance accumulates the strain increment into st and runs m.Update.
func Advance(m Model, st *State, inc Increment) tensor.Sym {
	st.Strain = st.Strain.Add(inc.Strain)
	return m.Update(st, inc)
}

// elasticIncrement returns K tr(Δε) I + 2G dev(Δε).
func elasticIncrement(k, g float64, de tensor.Sym) tensor.Sym {
	return tensor.Identity.Scale(k * de.Trace()).Add(de.Dev().Scale(2 * g))
}

// BulkFromYoung returns K = E / (3(1-2ν)).
func BulkFromYoung(e, nu float64) float64 { return e / (3 * (1 - 2*nu)) }

// ShearFromYoung returns G = E / (2(1+ν)).
func ShearFromYoung(e, nu float64) float64 { return e / (2 * (1 + nu)) }
