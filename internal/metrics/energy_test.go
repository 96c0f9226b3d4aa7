package metrics

import (
	"math"
	"testing"

	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/sim"
	"github.com/san-kum/mpmsim/internal/tensor"
)

func frame(t *testing.T, vel ...tensor.Vec) *sim.Frame {
	t.Helper()
	geom := particle.Geometry{}
	for i, v := range vel {
		geom.Append(tensor.Vec{1 + float64(i)*0.5, 1, 0}, v, 2, 0.25, 0.25, 0, i)
	}
	parts, err := particle.NewSet(geom, 1, 1, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	g, err := grid.New(2, tensor.Vec{}, tensor.Vec{4, 4, 0}, 1, [3]grid.Boundary{}, logr.Discard())
	if err != nil {
		t.Fatal(err)
	}
	return &sim.Frame{Particles: parts, Grid: g, Gravity: tensor.Vec{0, -10, 0}}
}

func TestKineticEnergy(t *testing.T) {
	m := NewKineticEnergy()
	m.Observe(frame(t, tensor.Vec{1, 0, 0}, tensor.Vec{0, 2, 0}))

	expected := 0.5*2*1 + 0.5*2*4
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected kinetic energy %f, got %f", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyIncludesGravity(t *testing.T) {
	m := NewEnergy()
	f := frame(t, tensor.Vec{})
	m.Observe(f)

	// -m g·x = -2 * (-10) * 1
	if math.Abs(m.Value()-20) > 1e-12 {
		t.Errorf("expected potential energy 20, got %f", m.Value())
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	f := frame(t, tensor.Vec{1, 0, 0})
	m.Observe(f)
	if m.Value() != 0 {
		t.Errorf("expected zero drift on first sample, got %f", m.Value())
	}

	f.Particles.Points[0].Velocity = tensor.Vec{2, 0, 0}
	m.Observe(f)
	// E0 = 1 + 20, E1 = 4 + 20
	want := 3.0 / 21.0
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("expected drift %f, got %f", want, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestMomentum(t *testing.T) {
	m := NewMomentum()
	m.Observe(frame(t, tensor.Vec{1, 0, 0}, tensor.Vec{-1, 0, 0}))
	if m.Value() != 0 {
		t.Errorf("expected zero momentum, got %f", m.Value())
	}

	m.Observe(frame(t, tensor.Vec{3, 4, 0}))
	if math.Abs(m.Value()-10) > 1e-12 {
		t.Errorf("expected |p| = 10, got %f", m.Value())
	}
	if m.Vector() != (tensor.Vec{6, 8, 0}) {
		t.Errorf("unexpected momentum vector %v", m.Vector())
	}
}

func TestMassDriftSkipsInitialFrame(t *testing.T) {
	m := NewMassDrift()
	f := frame(t, tensor.Vec{})
	m.Observe(f)
	if m.Value() != 0 {
		t.Errorf("initial frame should be ignored, got %f", m.Value())
	}

	f.Step = 1
	f.Grid.Nodes[0].Mass = 1
	m.Observe(f)
	if math.Abs(m.Value()-0.5) > 1e-12 {
		t.Errorf("expected drift 0.5, got %f", m.Value())
	}
}

func TestStateMetrics(t *testing.T) {
	f := frame(t, tensor.Vec{5, 0, 0}, tensor.Vec{})
	f.Particles.Points[1].Damage = 0.3
	f.Particles.Points[0].Stress = tensor.Sym{0, 0, 0, 10, 0, 0}
	f.Contacts = 4

	tests := []struct {
		metric sim.Metric
		want   float64
	}{
		{NewMaxDamage(), 0.3},
		{NewMaxVonMises(), math.Sqrt(3) * 10},
		{NewStability(1), 0},
		{NewStability(10), 1},
		{NewContactActivity(), 4},
	}

	for _, tt := range tests {
		t.Run(tt.metric.Name(), func(t *testing.T) {
			tt.metric.Observe(f)
			if math.Abs(tt.metric.Value()-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, tt.metric.Value())
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, m := range Standard() {
		got, ok := ByName(m.Name(), 0)
		if !ok || got.Name() != m.Name() {
			t.Errorf("ByName(%q) failed", m.Name())
		}
	}
	if _, ok := ByName("stability", 1); !ok {
		t.Error("stability not found")
	}
	if _, ok := ByName("entropy", 0); ok {
		t.Error("unexpected metric")
	}
}
