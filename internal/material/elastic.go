package material

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Elastic is isotropic linear elasticity.
type Elastic struct {
	E, Nu float64
	K, G  float64
}

// NewElastic validates E and ν and derives the bulk and shear moduli.
func NewElastic(e, nu float64) (*Elastic, error) {
	if !(e > 0) || math.IsInf(e, 0) {
		return nil, fmt.Errorf("young's modulus E=%g must be positive: %w", e, core.ErrInvalidMaterial)
	}
	if !(nu > -1 && nu < 0.5) {
		return nil, fmt.Errorf("poisson ratio nu=%g outside (-1, 0.5): %w", nu, core.ErrInvalidMaterial)
	}
	return &Elastic{E: e, Nu: nu, K: BulkFromYoung(e, nu), G: ShearFromYoung(e, nu)}, nil
}

func (m *Elastic) Name() string { return "elastic" }

func (m *Elastic) Update(st *State, inc Increment) tensor.Sym {
	d := elasticIncrement(m.K, m.G, inc.Strain)
	st.Stress = st.Stress.Add(d)
	return d
}

func (m *Elastic) WaveSpeed(rho float64) float64 {
	return math.Sqrt((m.K + 4*m.G/3) / rho)
}
