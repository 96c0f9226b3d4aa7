package metrics

import (
	"math"

	"github.com/san-kum/mpmsim/internal/sim"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Momentum reports |Σ m v| at the latest observation.
type Momentum struct {
	name  string
	value tensor.Vec
}

func NewMomentum() *Momentum { return &Momentum{name: "momentum"} }

func (m *Momentum) Name() string { return m.name }

func (m *Momentum) Observe(f *sim.Frame) { m.value = f.Particles.TotalMomentum() }

func (m *Momentum) Value() float64 { return m.value.Norm() }

// Vector returns the last observed momentum.
func (m *Momentum) Vector() tensor.Vec { return m.value }

func (m *Momentum) Reset() { m.value = tensor.Vec{} }

// MassDrift reports the largest relative change of grid mass against the
// particle mass. Zero means every scatter delivered all the mass.
type MassDrift struct {
	name     string
	maxDrift float64
}

func NewMassDrift() *MassDrift { return &MassDrift{name: "mass_drift"} }

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(f *sim.Frame) {
	if f.Step == 0 {
		return
	}
	want := f.Particles.TotalMass()
	if want == 0 {
		return
	}
	got := f.Grid.TotalMass()
	m.maxDrift = math.Max(m.maxDrift, math.Abs(got-want)/want)
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() { m.maxDrift = 0 }
