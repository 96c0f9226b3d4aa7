package material

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// PerfectPlastic is elasticity with a von Mises yield surface and radial
// return. The deviator keeps its direction; only its magnitude is capped.
type PerfectPlastic struct {
	Elastic
	Yield float64
}

// NewPerfectPlastic validates the elastic constants and the yield stress.
func NewPerfectPlastic(e, nu, yield float64) (*PerfectPlastic, error) {
	el, err := NewElastic(e, nu)
	if err != nil {
		return nil, err
	}
	if !(yield > 0) || math.IsInf(yield, 0) {
		return nil, fmt.Errorf("yield stress %g must be positive: %w", yield, core.ErrInvalidMaterial)
	}
	return &PerfectPlastic{Elastic: *el, Yield: yield}, nil
}

func (m *PerfectPlastic) Name() string { return "elastic_perfect_plastic" }

func (m *PerfectPlastic) Update(st *State, inc Increment) tensor.Sym {
	old := st.Stress
	trial := old.Add(elasticIncrement(m.K, m.G, inc.Strain))

	s := trial.Dev()
	q := math.Sqrt(1.5 * s.DoubleDot(s))
	if q > m.Yield {
		s = s.Scale(m.Yield / q)
		st.PlasticStrain += (q - m.Yield) / (3 * m.G)
	}
	st.Stress = s.Add(tensor.Identity.Scale(trial.Mean()))
	return st.Stress.Sub(old)
}
