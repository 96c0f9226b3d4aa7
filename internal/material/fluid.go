package material

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// NewtonianFluid carries pressure through the bulk modulus and deviatoric
// stress through viscosity times strain rate.
type NewtonianFluid struct {
	K         float64
	Viscosity float64
}

// NewNewtonianFluid validates the bulk modulus and viscosity.
func NewNewtonianFluid(bulk, viscosity float64) (*NewtonianFluid, error) {
	if !(bulk > 0) || math.IsInf(bulk, 0) {
		return nil, fmt.Errorf("bulk modulus K=%g must be positive: %w", bulk, core.ErrInvalidMaterial)
	}
	if viscosity < 0 || math.IsNaN(viscosity) {
		return nil, fmt.Errorf("viscosity %g must be non-negative: %w", viscosity, core.ErrInvalidMaterial)
	}
	return &NewtonianFluid{K: bulk, Viscosity: viscosity}, nil
}

func (m *NewtonianFluid) Name() string { return "newtonian_fluid" }

func (m *NewtonianFluid) Update(st *State, inc Increment) tensor.Sym {
	mean := st.Stress.Mean() + m.K*inc.Strain.Trace()
	next := inc.Rate.Dev().Scale(2 * m.Viscosity).Add(tensor.Identity.Scale(mean))
	d := next.Sub(st.Stress)
	st.Stress = next
	return d
}

func (m *NewtonianFluid) WaveSpeed(rho float64) float64 {
	return math.Sqrt(m.K / rho)
}
