package material

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/tensor"
)

func mustModel(t *testing.T, spec Spec) Model {
	t.Helper()
	m, err := New(0, spec)
	require.NoError(t, err)
	return m.Model
}

func TestZeroStrainGivesZeroIncrement(t *testing.T) {
	specs := []Spec{
		{Name: "steel", Model: "elastic", Density: 7800, E: 200e9, Nu: 0.3},
		{Name: "water", Model: "newtonian_fluid", Density: 1000, Bulk: 2.2e9, Viscosity: 1e-3},
		{Name: "alu", Model: "plastic", Density: 2700, E: 70e9, Nu: 0.33, Yield: 2e8},
		{Name: "sand", Model: "dp", Density: 1800, E: 1e7, Nu: 0.3,
			DruckerPragerParams: DruckerPragerParams{Cohesion: 1e3, Friction: 30, Dilation: 5}},
		{Name: "rock", Model: "elastic", Density: 2500, E: 50e9, Nu: 0.25,
			Damage: &DamageSpec{M: 9, K: 1e30}},
	}
	for _, s := range specs {
		t.Run(s.Name, func(t *testing.T) {
			m := mustModel(t, s)
			var st State
			d := Advance(m, &st, Increment{Dt: 1e-6, Volume: 1e-6, Dim: 3})
			assert.Equal(t, tensor.Sym{}, d)
			assert.Equal(t, tensor.Sym{}, st.Stress)
			assert.Zero(t, st.Damage)
		})
	}
}

func TestElasticUniaxialStrain(t *testing.T) {
	m, err := NewElastic(1e6, 0.25)
	require.NoError(t, err)

	var st State
	de := tensor.Sym{1e-3, 0, 0, 0, 0, 0}
	Advance(m, &st, Increment{Strain: de})

	assert.InDelta(t, (m.K+4*m.G/3)*1e-3, st.Stress[tensor.XX], 1e-9)
	assert.InDelta(t, (m.K-2*m.G/3)*1e-3, st.Stress[tensor.YY], 1e-9)
	assert.InDelta(t, st.Stress[tensor.YY], st.Stress[tensor.ZZ], 1e-12)
	assert.Equal(t, de, st.Strain)
	assert.InDelta(t, math.Sqrt((m.K+4*m.G/3)/1000), m.WaveSpeed(1000), 1e-12)
}

func TestNewtonianFluidShear(t *testing.T) {
	m, err := NewNewtonianFluid(2e9, 0.5)
	require.NoError(t, err)

	st := State{Stress: tensor.Identity.Scale(-100)}
	rate := tensor.Sym{0, 0, 0, 2, 0, 0}
	Advance(m, &st, Increment{Strain: rate.Scale(1e-3), Rate: rate, Dt: 1e-3})

	assert.InDelta(t, 2*0.5*2, st.Stress[tensor.XY], 1e-12)
	assert.InDelta(t, -100, st.Stress.Mean(), 1e-9)
}

func TestPerfectPlasticRadialReturn(t *testing.T) {
	m, err := NewPerfectPlastic(1e6, 0.25, 1000)
	require.NoError(t, err)

	st := State{Stress: tensor.Identity.Scale(-500)}
	Advance(m, &st, Increment{Strain: tensor.Sym{0, 0, 0, 0.01, 0, 0}})

	assert.InDelta(t, 1000, st.Stress.VonMises(), 1e-9)
	assert.InDelta(t, -500, st.Stress.Mean(), 1e-9)
	assert.Greater(t, st.PlasticStrain, 0.0)

	// stays on the surface under continued loading
	for i := 0; i < 10; i++ {
		Advance(m, &st, Increment{Strain: tensor.Sym{0, 0, 0, 0.001, 0.002, 0}})
		assert.LessOrEqual(t, st.Stress.VonMises(), 1000*(1+1e-12))
	}
}

func TestDruckerPragerCohesiveCap(t *testing.T) {
	m, err := NewDruckerPrager(1e6, 0.25, DruckerPragerParams{Cohesion: 100})
	require.NoError(t, err)
	assert.Zero(t, m.M)
	assert.InDelta(t, 2, m.Xi, 1e-12)

	var st State
	Advance(m, &st, Increment{Strain: tensor.Sym{0, 0, 0, 0.01, 0, 0}})
	assert.InDelta(t, 200, st.Stress.VonMises(), 1e-9)
	assert.InDelta(t, 0, m.Yield(st.Stress, st.PlasticStrain), 1e-9)
}

func TestDruckerPragerConeReturn(t *testing.T) {
	m, err := NewDruckerPrager(1e6, 0.3, DruckerPragerParams{Cohesion: 10, Friction: 30, Dilation: 10})
	require.NoError(t, err)

	st := State{Stress: tensor.Identity.Scale(-1e3)}
	Advance(m, &st, Increment{Strain: tensor.Sym{0.002, -0.002, 0, 0.003, 0, 0}})

	assert.InDelta(t, 0, m.Yield(st.Stress, st.PlasticStrain), 1e-6)
	assert.Greater(t, st.PlasticStrain, 0.0)
}

func TestDruckerPragerApex(t *testing.T) {
	m, err := NewDruckerPrager(1e6, 0.3, DruckerPragerParams{Cohesion: 10, Friction: 30})
	require.NoError(t, err)

	var st State
	Advance(m, &st, Increment{Strain: tensor.Sym{0.01, 0.01, 0.01, 0, 0, 0}})

	qy := m.Xi * m.Cohesion
	assert.InDelta(t, qy/m.M, st.Stress.Mean(), 1e-9)
	assert.InDelta(t, 0, st.Stress.Dev().Norm(), 1e-9)
	assert.InDelta(t, 0, m.Yield(st.Stress, 0), 1e-9)
}

func TestDruckerPragerSoftening(t *testing.T) {
	m, err := NewDruckerPrager(1e6, 0.3, DruckerPragerParams{
		Cohesion: 100, Friction: 20, CriticalStrain: 0.01, ResidualCohesion: 20, SofteningStrain: 0.04,
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, m.CohesionAt(0))
	assert.Equal(t, 100.0, m.CohesionAt(0.01))
	assert.InDelta(t, 60, m.CohesionAt(0.03), 1e-12)
	assert.InDelta(t, 20, m.CohesionAt(0.05), 1e-12)
	assert.InDelta(t, 20, m.CohesionAt(1), 1e-12)
}

func TestGradyKippDamage(t *testing.T) {
	base, err := NewElastic(1e9, 0.25)
	require.NoError(t, err)
	d, err := NewGradyKipp(base, 9, 1e30, 0, 2700)
	require.NoError(t, err)
	assert.InDelta(t, 0.4*base.WaveSpeed(2700), d.CrackSpeed, 1e-9)

	vol := 1e-6
	threshold := d.Threshold(vol)
	assert.InDelta(t, math.Pow(1e24, -1.0/9), threshold, 1e-12)

	var st State
	inc := Increment{Strain: tensor.Sym{1e-3, 0, 0, 0, 0, 0}, Dt: 1e-6, Volume: vol, Dim: 3}
	prev := 0.0
	for i := 0; i < 40; i++ {
		Advance(d, &st, inc)
		require.GreaterOrEqual(t, st.Damage, prev)
		require.LessOrEqual(t, st.Damage, 1.0)
		if st.Strain.MaxPrincipal() < threshold {
			assert.Zero(t, st.Damage)
		}
		assert.LessOrEqual(t, st.Stress.Dev().Norm(), st.Undamaged.Dev().Norm()+1e-9)
		prev = st.Damage
	}
	assert.Equal(t, 1.0, st.Damage)
	assert.InDelta(t, 0, st.Stress.Norm(), 1e-9)
}

func TestGradyKippNoDamageInCompression(t *testing.T) {
	base, err := NewElastic(1e9, 0.25)
	require.NoError(t, err)
	d, err := NewGradyKipp(base, 9, 1e30, 100, 2700)
	require.NoError(t, err)

	var st State
	inc := Increment{Strain: tensor.Identity.Scale(-1e-3), Dt: 1e-6, Volume: 1e-6, Dim: 3}
	for i := 0; i < 20; i++ {
		Advance(d, &st, inc)
	}
	assert.Zero(t, st.Damage)
	assert.Equal(t, st.Undamaged, st.Stress)
}

func TestDegradeKeepsCompression(t *testing.T) {
	sig := tensor.Sym{-300, -100, -200, 50, 0, 0}
	got := Degrade(sig, 1)
	assert.InDelta(t, sig.Mean(), got.Mean(), 1e-12)
	assert.InDelta(t, 0, got.Dev().Norm(), 1e-12)

	tension := tensor.Identity.Scale(10)
	assert.InDelta(t, 5, Degrade(tension, 0.5).Mean(), 1e-12)
}

func TestInvalidMaterials(t *testing.T) {
	cases := map[string]Spec{
		"unknown model":      {Model: "hyperelastic", Density: 1, E: 1, Nu: 0.2},
		"zero density":       {Model: "elastic", Density: 0, E: 1, Nu: 0.2},
		"negative E":         {Model: "elastic", Density: 1, E: -1, Nu: 0.2},
		"incompressible":     {Model: "elastic", Density: 1, E: 1, Nu: 0.5},
		"no yield":           {Model: "plastic", Density: 1, E: 1, Nu: 0.2},
		"no strength":        {Model: "dp", Density: 1, E: 1, Nu: 0.2},
		"dilation too big":   {Model: "dp", Density: 1, E: 1, Nu: 0.2, DruckerPragerParams: DruckerPragerParams{Cohesion: 1, Friction: 10, Dilation: 20}},
		"negative viscosity": {Model: "fluid", Density: 1, Bulk: 1, Viscosity: -1},
		"bad weibull":        {Model: "elastic", Density: 1, E: 1, Nu: 0.2, Damage: &DamageSpec{M: 0, K: 1}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(0, s)
			assert.ErrorIs(t, err, core.ErrInvalidMaterial)
		})
	}

	_, err := NewTable(nil)
	assert.ErrorIs(t, err, core.ErrInvalidMaterial)
}

func TestTable(t *testing.T) {
	tab, err := NewTable([]Spec{
		{Name: "a", Model: "elastic", Density: 1000, E: 1e6, Nu: 0.3},
		{Name: "b", Model: "fluid", Density: 1000, Bulk: 4e6},
	})
	require.NoError(t, err)

	b, ok := tab.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, 1, b.ID)
	assert.Equal(t, "newtonian_fluid", b.Model.Name())
	assert.InDelta(t, math.Sqrt(4e6/1000), tab.MaxWaveSpeed(), 1e-9)
	assert.Contains(t, Models(), "elastic_drucker_prager")
}
