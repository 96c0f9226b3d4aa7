package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/mpmsim/internal/sim"
)

// MaxDamage reports the largest particle damage.
type MaxDamage struct {
	name  string
	value float64
}

func NewMaxDamage() *MaxDamage { return &MaxDamage{name: "max_damage"} }

func (m *MaxDamage) Name() string { return m.name }

func (m *MaxDamage) Observe(f *sim.Frame) { m.value = f.Particles.MaxDamage() }

func (m *MaxDamage) Value() float64 { return m.value }

func (m *MaxDamage) Reset() { m.value = 0 }

// MaxVonMises reports the largest particle von Mises stress.
type MaxVonMises struct {
	name  string
	value float64
	buf   []float64
}

func NewMaxVonMises() *MaxVonMises { return &MaxVonMises{name: "max_von_mises"} }

func (m *MaxVonMises) Name() string { return m.name }

func (m *MaxVonMises) Observe(f *sim.Frame) {
	if f.Particles.Len() == 0 {
		m.value = 0
		return
	}
	pts := f.Particles.Points
	m.buf = perParticle(m.buf, f, func(i int) float64 { return pts[i].Stress.VonMises() })
	m.value = floats.Max(m.buf)
}

func (m *MaxVonMises) Value() float64 { return m.value }

func (m *MaxVonMises) Reset() { m.value = 0 }

// Stability reports the fraction of observations in which no particle moved
// faster than threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) Observe(f *sim.Frame) {
	s.samples++
	if f.Particles.MaxSpeed() > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// ContactActivity reports the mean number of closing contact nodes per
// observation.
type ContactActivity struct {
	name    string
	sum     float64
	samples int
}

func NewContactActivity() *ContactActivity { return &ContactActivity{name: "contact_nodes"} }

func (c *ContactActivity) Name() string { return c.name }

func (c *ContactActivity) Observe(f *sim.Frame) {
	c.sum += float64(f.Contacts)
	c.samples++
}

func (c *ContactActivity) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ContactActivity) Reset() {
	c.sum = 0
	c.samples = 0
}

// Standard returns the metric set recorded by the CLI.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewEnergy(),
		NewEnergyDrift(),
		NewMomentum(),
		NewMassDrift(),
		NewMaxDamage(),
		NewMaxVonMises(),
		NewContactActivity(),
	}
}

// ByName returns the named metric; threshold is used by stability.
func ByName(name string, threshold float64) (sim.Metric, bool) {
	if name == "stability" {
		return NewStability(threshold), true
	}
	for _, m := range Standard() {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}
