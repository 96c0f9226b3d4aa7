package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/contact"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// Parameters are the run-wide constants.
type Parameters struct {
	Gravity tensor.Vec
	// Dt fixes the timestep when positive; zero derives it from CFL.
	Dt       float64
	CFL      float64
	CFLEvery int
	Damping  float64
	TMax     float64
	MaxSteps int
	// Flip blends the gather: 1 is pure FLIP, 0 pure PIC.
	Flip        float64
	Jaumann     bool
	Contact     bool
	Friction    contact.Friction
	Mu          float64
	OutputEvery int
	Workers     int
}

func DefaultParameters() Parameters {
	return Parameters{
		CFL:         0.5,
		CFLEvery:    1,
		TMax:        1,
		Flip:        1,
		Contact:     true,
		Friction:    contact.Stick,
		OutputEvery: 10,
	}
}

func (p Parameters) Validate() error {
	switch {
	case p.Dt < 0 || math.IsNaN(p.Dt) || math.IsInf(p.Dt, 0):
		return fmt.Errorf("dt=%g must be non-negative: %w", p.Dt, core.ErrInvalidConfig)
	case p.Dt == 0 && !(p.CFL > 0 && p.CFL <= 1):
		return fmt.Errorf("cfl=%g outside (0, 1]: %w", p.CFL, core.ErrInvalidConfig)
	case p.CFLEvery < 0:
		return fmt.Errorf("cfl_every=%d must be non-negative: %w", p.CFLEvery, core.ErrInvalidConfig)
	case !(p.Damping >= 0 && p.Damping < 1):
		return fmt.Errorf("damping=%g outside [0, 1): %w", p.Damping, core.ErrInvalidConfig)
	case p.TMax < 0 || math.IsNaN(p.TMax):
		return fmt.Errorf("tmax=%g must be non-negative: %w", p.TMax, core.ErrInvalidConfig)
	case p.MaxSteps < 0:
		return fmt.Errorf("max_steps=%d must be non-negative: %w", p.MaxSteps, core.ErrInvalidConfig)
	case p.TMax == 0 && p.MaxSteps == 0:
		return fmt.Errorf("one of tmax or max_steps must be set: %w", core.ErrInvalidConfig)
	case !(p.Flip >= 0 && p.Flip <= 1):
		return fmt.Errorf("flip=%g outside [0, 1]: %w", p.Flip, core.ErrInvalidConfig)
	case p.Mu < 0 || math.IsNaN(p.Mu):
		return fmt.Errorf("friction coefficient %g must be non-negative: %w", p.Mu, core.ErrInvalidConfig)
	case !p.Gravity.IsFinite():
		return fmt.Errorf("gravity: %w", core.ErrInvalidConfig)
	}
	return nil
}

// Setup is everything the solver consumes from its collaborators.
type Setup struct {
	Grid      *grid.Grid
	Particles *particle.Set
	Materials material.Table
	Params    Parameters
	Log       logr.Logger
}

// Frame is the read-only view handed to metrics and observers.
type Frame struct {
	Step      int
	Time      float64
	Dt        float64
	Grid      *grid.Grid
	Particles *particle.Set
	Gravity   tensor.Vec
	Contacts  int
}

type Metric interface {
	Name() string
	Observe(f *Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f *Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f *Frame)

func (fn ObserverFunc) OnStep(f *Frame) { fn(f) }

type Result struct {
	Steps    int
	Time     float64
	Times    []float64
	Dts      []float64
	History  map[string][]float64
	Metrics  map[string]float64
	DtMin    float64
	DtMax    float64
	Contacts int
	Elapsed  time.Duration
}
