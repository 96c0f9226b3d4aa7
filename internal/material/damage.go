package material

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// DefaultCrackSpeedFraction is the crack growth speed as a fraction of the
// base model's longitudinal wave speed when none is given.
const DefaultCrackSpeedFraction = 0.4

// GradyKipp adds scalar tensile damage to a base model.
//
// Damage starts once the largest principal accumulated strain exceeds the
// volume-dependent threshold (kV)^(-1/m) and grows as d(D^(1/3))/dt = cg/Rs,
// where Rs is half the particle size. The base model runs on the undamaged
// stress; the effective stress has its deviator and any tensile mean stress
// scaled by (1-D).
type GradyKipp struct {
	Base       Model
	M          float64 // Weibull modulus
	K          float64 // Weibull scale
	CrackSpeed float64
}

// NewGradyKipp wraps base. A non-positive crack speed defaults to
// DefaultCrackSpeedFraction of the base wave speed at density rho.
func NewGradyKipp(base Model, m, k, crackSpeed, rho float64) (*GradyKipp, error) {
	if base == nil {
		return nil, fmt.Errorf("damage needs a base model: %w", core.ErrInvalidMaterial)
	}
	if !(m > 0) || !(k > 0) || math.IsInf(m, 0) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("weibull parameters m=%g k=%g must be positive: %w", m, k, core.ErrInvalidMaterial)
	}
	if crackSpeed <= 0 {
		crackSpeed = DefaultCrackSpeedFraction * base.WaveSpeed(rho)
	}
	if !(crackSpeed > 0) || math.IsInf(crackSpeed, 0) {
		return nil, fmt.Errorf("crack speed %g must be positive: %w", crackSpeed, core.ErrInvalidMaterial)
	}
	return &GradyKipp{Base: base, M: m, K: k, CrackSpeed: crackSpeed}, nil
}

func (d *GradyKipp) Name() string { return d.Base.Name() + "+grady_kipp" }

func (d *GradyKipp) WaveSpeed(rho float64) float64 { return d.Base.WaveSpeed(rho) }

// Threshold returns the tensile strain at which damage starts in a particle
// of volume v.
func (d *GradyKipp) Threshold(v float64) float64 {
	return math.Pow(d.K*v, -1/d.M)
}

func (d *GradyKipp) Update(st *State, inc Increment) tensor.Sym {
	eff := st.Stress
	st.Stress = st.Undamaged
	d.Base.Update(st, inc)
	st.Undamaged = st.Stress

	if st.Damage < 1 && inc.Volume > 0 && inc.Dt > 0 {
		if et := st.Strain.MaxPrincipal(); et > 0 && et >= d.Threshold(inc.Volume) {
			dim := inc.Dim
			if dim < 1 {
				dim = 3
			}
			rs := 0.5 * math.Pow(inc.Volume, 1/float64(dim))
			root := math.Cbrt(st.Damage) + d.CrackSpeed/rs*inc.Dt
			st.Damage = math.Min(1, root*root*root)
		}
	}

	st.Stress = Degrade(st.Undamaged, st.Damage)
	return st.Stress.Sub(eff)
}

// Degrade scales the deviator of sig by (1-dmg), and the mean stress too
// when it is tensile.
func Degrade(sig tensor.Sym, dmg float64) tensor.Sym {
	if dmg <= 0 {
		return sig
	}
	keep := 1 - dmg
	mean := sig.Mean()
	if mean > 0 {
		mean *= keep
	}
	return sig.Dev().Scale(keep).Add(tensor.Identity.Scale(mean))
}
