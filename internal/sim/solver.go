package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/compute"
	"github.com/san-kum/mpmsim/internal/contact"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/shape"
)

// massEpsFactor scales the smallest particle mass into the node activity
// threshold.
const massEpsFactor = 1e-9

type Solver struct {
	grid   *grid.Grid
	parts  *particle.Set
	mats   material.Table
	params Parameters
	log    logr.Logger

	pool     *compute.Pool
	scatter  *compute.Scatter
	stencils *shape.Stencils
	fields   *contact.Fields
	slots    []int // per-particle contact field, -1 without contact
	resolver contact.Resolver
	massEps  float64

	metrics   []Metric
	observers []Observer

	time     float64
	step     int
	dt       float64
	contacts int
}

// New validates setup and allocates the per-step buffers.
func New(setup Setup) (*Solver, error) {
	if setup.Grid == nil || setup.Particles == nil {
		return nil, fmt.Errorf("grid and particles are required: %w", core.ErrInvalidConfig)
	}
	if len(setup.Materials) == 0 {
		return nil, fmt.Errorf("no materials: %w", core.ErrInvalidMaterial)
	}
	if err := setup.Params.Validate(); err != nil {
		return nil, err
	}
	g, parts := setup.Grid, setup.Particles
	for i := range parts.Points {
		p := &parts.Points[i]
		if p.Material < 0 || p.Material >= len(setup.Materials) {
			return nil, fmt.Errorf("particle %d: material %d not in table: %w", i, p.Material, core.ErrInvalidConfig)
		}
		if p.HalfWidth > g.Dx/2 {
			return nil, fmt.Errorf("particle %d: half-width %g exceeds dx/2: %w", i, p.HalfWidth, core.ErrInvalidConfig)
		}
	}

	log := setup.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	g.ResolveBoundaries()
	for a := 0; a < g.Dim; a++ {
		log.V(1).Info("axis boundary", "axis", a, "policy", g.Boundary(a).String())
	}

	s := &Solver{
		grid:     g,
		parts:    parts,
		mats:     setup.Materials,
		params:   setup.Params,
		log:      log,
		pool:     compute.NewPool(setup.Params.Workers),
		stencils: shape.NewStencils(parts.Len(), g.Dim),
		resolver: contact.Resolver{Friction: setup.Params.Friction, Mu: setup.Params.Mu},
	}

	minMass := math.Inf(1)
	for i := range parts.Points {
		minMass = math.Min(minMass, parts.Points[i].Mass)
	}
	if math.IsInf(minMass, 1) {
		minMass = 1
	}
	s.massEps = massEpsFactor * minMass

	slots := g.NumNodes()
	if setup.Params.Contact && len(parts.Bodies()) > 1 {
		s.fields = contact.NewFields(parts.Bodies(), g.NumNodes())
		s.slots = make([]int, parts.Len())
		for i := range parts.Points {
			s.slots[i] = s.fields.Slot(parts.Points[i].Body)
		}
		slots += s.fields.Len()
		log.V(1).Info("contact enabled", "bodies", len(parts.Bodies()), "friction", s.resolver.Friction.String())
	}
	s.scatter = compute.NewScatter(s.pool, slots)

	return s, nil
}

func (s *Solver) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Solver) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Solver) Grid() *grid.Grid               { return s.grid }
func (s *Solver) Particles() *particle.Set       { return s.parts }
func (s *Solver) Materials() material.Table      { return s.mats }
func (s *Solver) Params() Parameters             { return s.params }
func (s *Solver) Time() float64                  { return s.time }
func (s *Solver) StepCount() int                 { return s.step }
func (s *Solver) Dt() float64                    { return s.dt }
func (s *Solver) Contacts() int                  { return s.contacts }
func (s *Solver) Stencils() *shape.Stencils      { return s.stencils }
func (s *Solver) ContactFields() *contact.Fields { return s.fields }

// Frame returns the current state view.
func (s *Solver) Frame() *Frame {
	return &Frame{
		Step:      s.step,
		Time:      s.time,
		Dt:        s.dt,
		Grid:      s.grid,
		Particles: s.parts,
		Gravity:   s.params.Gravity,
		Contacts:  s.contacts,
	}
}

// Step advances the state from time t by one timestep using params. On
// success the solver clock moves to t+dt and step+1. A gather failure still
// advances every particle, but the clock stays at t and the state should be
// treated as failed.
func (s *Solver) Step(t float64, step int, params Parameters) error {
	dt, err := s.timestep(t, step, params)
	if err != nil {
		return err
	}

	s.applyStressConditions(t)
	s.computeStencils()
	s.scatterParticles(t, params)
	s.updateGrid(t, dt, params)
	s.contacts = s.resolveContact()
	s.applyVelocityConditions(t + dt)
	if err := s.gather(t, step, dt, params); err != nil {
		return err
	}

	s.time = t + dt
	s.step = step + 1
	s.dt = dt
	return nil
}

func (s *Solver) done() bool {
	p := s.params
	if p.MaxSteps > 0 && s.step >= p.MaxSteps {
		return true
	}
	if p.TMax > 0 && s.time >= p.TMax*(1-1e-12) {
		return true
	}
	return false
}

// Run steps until tmax or max_steps, the first step error, or ctx is done.
// The partial result is returned alongside any error.
func (s *Solver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{
		History: make(map[string][]float64),
		Metrics: make(map[string]float64),
		DtMin:   math.Inf(1),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	every := s.params.OutputEvery
	if every <= 0 {
		every = 1
	}

	s.observe(result)
	last := s.step
	var runErr error
	for !s.done() {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if err := s.Step(s.time, s.step, s.params); err != nil {
			s.log.Error(err, "step failed", "step", s.step, "time", s.time)
			runErr = err
			break
		}
		result.Contacts += s.contacts
		result.DtMin = math.Min(result.DtMin, s.dt)
		result.DtMax = math.Max(result.DtMax, s.dt)

		if s.step%every == 0 {
			s.observe(result)
			last = s.step
		}
	}
	if last != s.step {
		s.observe(result)
	}

	if math.IsInf(result.DtMin, 1) {
		result.DtMin = 0
	}
	result.Steps = s.step
	result.Time = s.time
	result.Elapsed = time.Since(start)
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, runErr
}

func (s *Solver) observe(r *Result) {
	f := s.Frame()
	r.Times = append(r.Times, f.Time)
	r.Dts = append(r.Dts, f.Dt)
	for _, m := range s.metrics {
		m.Observe(f)
		r.History[m.Name()] = append(r.History[m.Name()], m.Value())
	}
	for _, o := range s.observers {
		o.OnStep(f)
	}
}
