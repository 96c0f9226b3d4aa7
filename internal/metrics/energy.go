// Package metrics provides run diagnostics that plug into sim.Solver.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/mpmsim/internal/sim"
)

// perParticle fills buf with fn evaluated for every particle of f.
func perParticle(buf []float64, f *sim.Frame, fn func(i int) float64) []float64 {
	n := f.Particles.Len()
	if cap(buf) < n {
		buf = make([]float64, n)
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = fn(i)
	}
	return buf
}

// KineticEnergy reports Σ ½ m v² at the latest observation.
type KineticEnergy struct {
	name  string
	value float64
	buf   []float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(f *sim.Frame) {
	pts := f.Particles.Points
	k.buf = perParticle(k.buf, f, func(i int) float64 {
		return 0.5 * pts[i].Mass * pts[i].Velocity.Dot(pts[i].Velocity)
	})
	k.value = floats.Sum(k.buf)
}

func (k *KineticEnergy) Value() float64 { return k.value }

func (k *KineticEnergy) Reset() { k.value = 0 }

// totalEnergy is kinetic plus strain plus gravitational potential energy.
func totalEnergy(f *sim.Frame) float64 {
	p := f.Particles
	return p.KineticEnergy() + p.StrainEnergy() + p.GravityPotential(f.Gravity)
}

// Energy reports the total mechanical energy at the latest observation.
type Energy struct {
	name  string
	value float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f *sim.Frame) { e.value = totalEnergy(f) }

func (e *Energy) Value() float64 { return e.value }

func (e *Energy) Reset() { e.value = 0 }

// EnergyDrift reports the largest |E - E0| / max(|E0|, KE0) seen so far.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	scale         float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f *sim.Frame) {
	energy := totalEnergy(f)

	if e.samples == 0 {
		e.initialEnergy = energy
		e.scale = math.Max(math.Abs(energy), f.Particles.KineticEnergy())
	}
	e.samples++

	if e.scale != 0 {
		drift := math.Abs(energy-e.initialEnergy) / e.scale
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.scale = 0
	e.maxDrift = 0
	e.samples = 0
}
