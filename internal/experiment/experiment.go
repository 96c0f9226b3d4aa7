// Package experiment turns a scenario description into a ready solver.
package experiment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/contact"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/sim"
	"github.com/san-kum/mpmsim/internal/tensor"
)

type Experiment struct {
	cfg    *config.Config
	log    logr.Logger
	setup  sim.Setup
	solver *sim.Solver
}

// New builds the grid, materials, particles and boundary conditions of cfg.
// The solver is created by Setup.
func New(cfg *config.Config, log logr.Logger) (*Experiment, error) {
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g, err := BuildGrid(cfg, log)
	if err != nil {
		return nil, err
	}
	mats, err := BuildMaterials(cfg)
	if err != nil {
		return nil, err
	}
	parts, err := BuildParticles(cfg, mats, log)
	if err != nil {
		return nil, err
	}
	if err := ApplyBoundaries(cfg, g, parts); err != nil {
		return nil, err
	}
	params, err := BuildParameters(cfg)
	if err != nil {
		return nil, err
	}

	log.V(1).Info("scenario built", "name", cfg.Name,
		"nodes", g.NumNodes(), "particles", parts.Len(), "bodies", len(parts.Bodies()), "materials", len(mats))

	return &Experiment{
		cfg: cfg,
		log: log,
		setup: sim.Setup{
			Grid:      g,
			Particles: parts,
			Materials: mats,
			Params:    params,
			Log:       log,
		},
	}, nil
}

// Setup creates the solver and attaches metrics.
func (e *Experiment) Setup(metrics []sim.Metric) error {
	s, err := sim.New(e.setup)
	if err != nil {
		return err
	}
	for _, m := range metrics {
		s.AddMetric(m)
	}
	e.solver = s
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.solver == nil {
		return nil, fmt.Errorf("experiment not setup: %w", core.ErrInvalidConfig)
	}
	return e.solver.Run(ctx)
}

// Solver returns the underlying solver for adding observers.
func (e *Experiment) Solver() *sim.Solver { return e.solver }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Params returns the solver parameters; changes apply before Setup only.
func (e *Experiment) Params() *sim.Parameters { return &e.setup.Params }

// Vec pads or truncates xs into a vector.
func Vec(xs []float64) tensor.Vec {
	var v tensor.Vec
	copy(v[:], xs)
	return v
}

// SymOf reads a Voigt-ordered stress (xx, yy, zz, xy, yz, zx).
func SymOf(xs []float64) tensor.Sym {
	var s tensor.Sym
	copy(s[:], xs)
	return s
}

func BuildGrid(cfg *config.Config, log logr.Logger) (*grid.Grid, error) {
	var policy [3]grid.Boundary
	for a, name := range cfg.Grid.Boundary {
		if a >= 3 {
			break
		}
		b, err := grid.ParseBoundary(strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("grid boundary axis %d: %w", a, err)
		}
		policy[a] = b
	}
	return grid.New(cfg.Dim, Vec(cfg.Grid.Origin), Vec(cfg.Grid.Length), cfg.Grid.Dx, policy, log)
}

// MaterialSpec converts a material entry into the library's parameter record.
func MaterialSpec(m config.MaterialConfig) material.Spec {
	s := material.Spec{
		Name:      m.Name,
		Model:     m.Model,
		Density:   m.Density,
		E:         m.E,
		Nu:        m.Nu,
		Bulk:      m.Bulk,
		Viscosity: m.Viscosity,
		Yield:     m.Yield,
		DruckerPragerParams: material.DruckerPragerParams{
			Cohesion:         m.Cohesion,
			Friction:         m.Friction,
			Dilation:         m.Dilation,
			CriticalStrain:   m.CriticalStrain,
			ResidualCohesion: m.ResidualCohesion,
			SofteningStrain:  m.SofteningStrain,
		},
	}
	if m.Damage != nil {
		s.Damage = &material.DamageSpec{M: m.Damage.M, K: m.Damage.K, CrackSpeed: m.Damage.CrackSpeed}
	}
	return s
}

func BuildMaterials(cfg *config.Config) (material.Table, error) {
	specs := make([]material.Spec, len(cfg.Materials))
	for i, m := range cfg.Materials {
		specs[i] = MaterialSpec(m)
	}
	return material.NewTable(specs)
}

// BuildParticles fills every body region. Body ids follow the order of
// cfg.Bodies.
func BuildParticles(cfg *config.Config, mats material.Table, log logr.Logger) (*particle.Set, error) {
	var geom particle.Geometry
	for i, b := range cfg.Bodies {
		mat, ok := mats.Lookup(b.Material)
		if !ok {
			return nil, fmt.Errorf("body %q: unknown material %q: %w", b.Name, b.Material, core.ErrInvalidConfig)
		}
		perCell := b.PerCell
		if perCell <= 0 {
			perCell = config.DefaultPerCell
		}
		n, err := particle.Fill(&geom, particle.Region{
			Shape:    b.Shape,
			Lo:       Vec(b.Lo),
			Hi:       Vec(b.Hi),
			Center:   Vec(b.Center),
			Radius:   b.Radius,
			PerCell:  perCell,
			Density:  mat.Density,
			Material: mat.ID,
			Body:     i,
			Velocity: Vec(b.Velocity),
			Stress:   SymOf(b.Stress),
		}, cfg.Grid.Dx, cfg.Dim)
		if err != nil {
			return nil, fmt.Errorf("body %q: %w", b.Name, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("body %q holds no particles: %w", b.Name, core.ErrInvalidConfig)
		}
		log.V(1).Info("body filled", "body", b.Name, "id", i, "particles", n, "material", mat.Name)
	}
	return particle.NewSet(geom, cfg.Grid.Dx, len(mats), log)
}

var axisNames = map[string]int{"x": 0, "y": 1, "z": 2}

var voigtNames = map[string]int{"xx": 0, "yy": 1, "zz": 2, "xy": 3, "yz": 4, "zx": 5}

// Condition converts one boundary entry into a condition.
func Condition(b config.BoundaryConfig) (bc.Condition, error) {
	kind := strings.ToLower(b.Kind)
	if kind == "stress" {
		var mask [6]bool
		if len(b.Axes) == 0 {
			mask = [6]bool{true, true, true, true, true, true}
		}
		for _, name := range b.Axes {
			i, ok := voigtNames[strings.ToLower(name)]
			if !ok {
				return bc.Condition{}, fmt.Errorf("unknown stress component %q: %w", name, core.ErrInvalidConfig)
			}
			mask[i] = true
		}
		return bc.NewStress(mask, SymOf(b.Value)).WithRamp(b.Ramp), nil
	}

	var mask [3]bool
	if len(b.Axes) == 0 {
		mask = [3]bool{true, true, true}
	}
	for _, name := range b.Axes {
		a, ok := axisNames[strings.ToLower(name)]
		if !ok {
			return bc.Condition{}, fmt.Errorf("unknown axis %q: %w", name, core.ErrInvalidConfig)
		}
		mask[a] = true
	}

	switch kind {
	case "fixed":
		return bc.NewVelocity(mask, tensor.Vec{}), nil
	case "velocity":
		return bc.NewVelocity(mask, Vec(b.Value)).WithRamp(b.Ramp), nil
	case "force":
		return bc.NewForce(mask, Vec(b.Value)).WithRamp(b.Ramp), nil
	}
	return bc.Condition{}, fmt.Errorf("unknown boundary kind %q: %w", b.Kind, core.ErrInvalidConfig)
}

// ApplyBoundaries assigns every boundary entry in order; later entries
// replace earlier ones on shared nodes or particles.
func ApplyBoundaries(cfg *config.Config, g *grid.Grid, parts *particle.Set) error {
	for i, b := range cfg.Boundaries {
		c, err := Condition(b)
		if err != nil {
			return fmt.Errorf("boundary %d: %w", i, err)
		}
		lo, hi := Vec(b.Lo), Vec(b.Hi)

		var table *bc.Table
		var ids []int
		switch strings.ToLower(b.Target) {
		case "", "nodes", "node":
			table, ids = g.BC, g.NodesIn(lo, hi)
		case "particles", "particle":
			if cfg.Dim == 2 {
				lo[2], hi[2] = math.Inf(-1), math.Inf(1)
			}
			table, ids = parts.BC, parts.Select(lo, hi)
		default:
			return fmt.Errorf("boundary %d: unknown target %q: %w", i, b.Target, core.ErrInvalidConfig)
		}

		for _, id := range ids {
			if err := table.Set(id, c); err != nil {
				return fmt.Errorf("boundary %d: %w", i, err)
			}
		}
	}
	return nil
}

func BuildParameters(cfg *config.Config) (sim.Parameters, error) {
	p := cfg.Params
	friction, err := contact.ParseFriction(p.Friction)
	if err != nil {
		return sim.Parameters{}, err
	}
	params := sim.Parameters{
		Gravity:     Vec(p.Gravity),
		Dt:          p.Dt,
		CFL:         p.CFL,
		CFLEvery:    p.CFLEvery,
		Damping:     p.Damping,
		TMax:        p.TMax,
		MaxSteps:    p.MaxSteps,
		Flip:        p.Flip,
		Jaumann:     p.Jaumann,
		Contact:     p.Contact,
		Friction:    friction,
		Mu:          p.Mu,
		OutputEvery: p.OutputEvery,
		Workers:     p.Workers,
	}
	return params, params.Validate()
}
