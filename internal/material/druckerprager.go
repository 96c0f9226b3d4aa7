package material

import (
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// DruckerPrager is elasticity with a pressure-dependent cone
//
//	f = q - M p - qy,   p = -tr(σ)/3,   qy = ξ c
//
// fitted to the Mohr-Coulomb compression cone, with non-associated flow
// through the dilatancy slope Mb. Past CriticalStrain of accumulated plastic
// multiplier the cohesion softens linearly to ResidualCohesion over
// SofteningStrain.
type DruckerPrager struct {
	Elastic
	Cohesion         float64
	Friction         float64 // degrees
	Dilation         float64 // degrees
	CriticalStrain   float64
	ResidualCohesion float64
	SofteningStrain  float64

	M, Mb, Xi float64
}

// DruckerPragerParams groups the strength parameters.
type DruckerPragerParams struct {
	Cohesion         float64
	Friction         float64
	Dilation         float64
	CriticalStrain   float64
	ResidualCohesion float64
	SofteningStrain  float64
}

// CompressionCone returns the slope M and the ξ factor (qy = ξ c) of the
// Drucker-Prager cone through the Mohr-Coulomb compression corners.
func CompressionCone(phiDeg float64) (m, xi float64) {
	phi := phiDeg * math.Pi / 180
	si, co := math.Sin(phi), math.Cos(phi)
	return 6 * si / (3 - si), 6 * co / (3 - si)
}

// NewDruckerPrager validates the elastic and strength parameters.
func NewDruckerPrager(e, nu float64, p DruckerPragerParams) (*DruckerPrager, error) {
	el, err := NewElastic(e, nu)
	if err != nil {
		return nil, err
	}
	switch {
	case p.Cohesion < 0 || math.IsNaN(p.Cohesion):
		return nil, fmt.Errorf("cohesion %g must be non-negative: %w", p.Cohesion, core.ErrInvalidMaterial)
	case !(p.Friction >= 0 && p.Friction < 90):
		return nil, fmt.Errorf("friction angle %g outside [0, 90): %w", p.Friction, core.ErrInvalidMaterial)
	case !(p.Dilation >= 0 && p.Dilation <= p.Friction):
		return nil, fmt.Errorf("dilation angle %g outside [0, friction]: %w", p.Dilation, core.ErrInvalidMaterial)
	case p.Cohesion == 0 && p.Friction == 0:
		return nil, fmt.Errorf("zero cohesion and zero friction: %w", core.ErrInvalidMaterial)
	case p.CriticalStrain < 0 || p.SofteningStrain < 0:
		return nil, fmt.Errorf("softening strains must be non-negative: %w", core.ErrInvalidMaterial)
	case p.ResidualCohesion < 0 || p.ResidualCohesion > p.Cohesion:
		return nil, fmt.Errorf("residual cohesion %g outside [0, %g]: %w", p.ResidualCohesion, p.Cohesion, core.ErrInvalidMaterial)
	}

	m := &DruckerPrager{
		Elastic:          *el,
		Cohesion:         p.Cohesion,
		Friction:         p.Friction,
		Dilation:         p.Dilation,
		CriticalStrain:   p.CriticalStrain,
		ResidualCohesion: p.ResidualCohesion,
		SofteningStrain:  p.SofteningStrain,
	}
	m.M, m.Xi = CompressionCone(p.Friction)
	m.Mb, _ = CompressionCone(p.Dilation)
	if p.CriticalStrain == 0 {
		m.ResidualCohesion = p.Cohesion
	}
	return m, nil
}

func (m *DruckerPrager) Name() string { return "elastic_drucker_prager" }

// CohesionAt returns the cohesion after an accumulated plastic multiplier alpha.
func (m *DruckerPrager) CohesionAt(alpha float64) float64 {
	if m.CriticalStrain <= 0 || alpha <= m.CriticalStrain {
		return m.Cohesion
	}
	if m.SofteningStrain <= 0 {
		return m.ResidualCohesion
	}
	frac := math.Min(1, (alpha-m.CriticalStrain)/m.SofteningStrain)
	return m.Cohesion + frac*(m.ResidualCohesion-m.Cohesion)
}

// Yield returns f for stress sig after plastic multiplier alpha.
func (m *DruckerPrager) Yield(sig tensor.Sym, alpha float64) float64 {
	return sig.VonMises() - m.M*sig.Pressure() - m.Xi*m.CohesionAt(alpha)
}

func (m *DruckerPrager) Update(st *State, inc Increment) tensor.Sym {
	old := st.Stress
	trial := old.Add(elasticIncrement(m.K, m.G, inc.Strain))

	qy := m.Xi * m.CohesionAt(st.PlasticStrain)
	p := trial.Pressure()
	s := trial.Dev()
	q := math.Sqrt(1.5 * s.DoubleDot(s))

	f := q - m.M*p - qy
	if f <= 0 {
		st.Stress = trial
		return trial.Sub(old)
	}

	hp := 3*m.G + m.K*m.M*m.Mb
	dgam := f / hp
	var pnew float64
	if q-3*m.G*dgam >= 0 {
		pnew = p + dgam*m.K*m.Mb
		s = s.Scale(1 - 3*m.G*dgam/q)
	} else {
		// return to apex; only reachable with M > 0
		dgam = (-m.M*p - qy) / (3 * m.K * m.M)
		pnew = -qy / m.M
		s = tensor.Sym{}
	}
	st.PlasticStrain += dgam
	st.Stress = s.Sub(tensor.Identity.Scale(pnew))
	return st.Stress.Sub(old)
}
