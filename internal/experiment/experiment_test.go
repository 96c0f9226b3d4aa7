package experiment

import (
	"context"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mpmsim/internal/bc"
	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/contact"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/tensor"
)

func TestNewFreefall(t *testing.T) {
	exp, err := New(config.GetPreset("freefall"), logr.Discard())
	require.NoError(t, err)

	setup := exp.setup
	assert.Equal(t, 41*41, setup.Grid.NumNodes())
	assert.Equal(t, 24*16, setup.Particles.Len())
	assert.Equal(t, []int{0}, setup.Particles.Bodies())
	assert.Len(t, setup.Grid.BC.Active(), 41)
	assert.Equal(t, bc.Velocity, setup.Grid.BC.At(0).Kind)
	assert.InDelta(t, -9.81, setup.Params.Gravity[1], 1e-12)

	p := setup.Particles.Points[0]
	assert.InDelta(t, 0.0125, p.HalfWidth, 1e-12)
	assert.InDelta(t, 1000*0.025*0.025, p.Mass, 1e-12)
}

func TestRunNeedsSetup(t *testing.T) {
	exp, err := New(config.GetPreset("freefall"), logr.Discard())
	require.NoError(t, err)

	_, err = exp.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestRunCollisionSteps(t *testing.T) {
	cfg := config.GetPreset("collision")
	cfg.Params.MaxSteps = 3
	cfg.Params.OutputEvery = 1

	exp, err := New(cfg, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, exp.setup.Particles.Bodies())
	assert.Equal(t, contact.Stick, exp.Params().Friction)

	reg := NewRegistry()
	metrics, err := reg.GetMetrics([]string{"kinetic_energy", "momentum"}, 0)
	require.NoError(t, err)
	require.NoError(t, exp.Setup(metrics))

	result, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Steps)
	assert.Len(t, result.History["kinetic_energy"], 4)
	// equal and opposite discs
	assert.InDelta(t, 0, result.Metrics["momentum"], 1e-9)
}

func TestCondition(t *testing.T) {
	c, err := Condition(config.BoundaryConfig{Kind: "velocity", Axes: []string{"y"}, Value: []float64{0, 2}, Ramp: 1})
	require.NoError(t, err)
	assert.Equal(t, bc.Velocity, c.Kind)
	assert.False(t, c.Constrains(0))
	assert.True(t, c.Constrains(1))
	assert.Equal(t, tensor.Vec{5, 1, 0}, c.Velocity(tensor.Vec{5, 7, 0}, 0.5))

	c, err = Condition(config.BoundaryConfig{Kind: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, tensor.Vec{}, c.Velocity(tensor.Vec{1, 2, 3}, 0))

	c, err = Condition(config.BoundaryConfig{Kind: "stress", Axes: []string{"xx"}, Value: []float64{-5}})
	require.NoError(t, err)
	assert.Equal(t, tensor.Sym{-5, 1, 1}, c.Stress(tensor.Sym{1, 1, 1}, 0))

	_, err = Condition(config.BoundaryConfig{Kind: "velocity", Axes: []string{"w"}})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	_, err = Condition(config.BoundaryConfig{Kind: "traction"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestApplyBoundaries(t *testing.T) {
	cfg := config.GetPreset("freefall")
	cfg.Boundaries = append(cfg.Boundaries,
		// left particle column moves sideways
		config.BoundaryConfig{Target: "particles", Kind: "velocity", Lo: []float64{0.7, 0.8}, Hi: []float64{0.72, 1.2}, Axes: []string{"x"}, Value: []float64{1}},
		// corner node becomes a force node
		config.BoundaryConfig{Target: "nodes", Kind: "force", Lo: []float64{0, 0}, Hi: []float64{0, 0}, Value: []float64{0, 1}},
	)
	exp, err := New(cfg, logr.Discard())
	require.NoError(t, err)

	parts := exp.setup.Particles
	assert.Len(t, parts.BC.Active(), 16)
	assert.Equal(t, bc.Force, exp.setup.Grid.BC.At(0).Kind)
	assert.Equal(t, 1, exp.setup.Grid.BC.Conflicts())

	cfg.Boundaries = []config.BoundaryConfig{{Target: "nodes", Kind: "stress", Lo: []float64{0, 0}, Hi: []float64{2, 0}}}
	_, err = New(cfg, logr.Discard())
	assert.ErrorIs(t, err, core.ErrNodeStressBC)
}

func TestBuildErrors(t *testing.T) {
	cfg := config.GetPreset("freefall")
	cfg.Grid.Boundary = []string{"mirror"}
	_, err := New(cfg, logr.Discard())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	cfg = config.GetPreset("freefall")
	cfg.Grid.Dx = 0.03
	_, err = New(cfg, logr.Discard())
	assert.ErrorIs(t, err, core.ErrCellSize)

	cfg = config.GetPreset("freefall")
	cfg.Materials[0].Nu = 0.5
	_, err = New(cfg, logr.Discard())
	assert.ErrorIs(t, err, core.ErrInvalidMaterial)

	cfg = config.GetPreset("freefall")
	cfg.Params.Friction = "glue"
	_, err = New(cfg, logr.Discard())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestGridBoundaryPolicy(t *testing.T) {
	cfg := config.GetPreset("spall")
	cfg.Grid.Boundary = []string{"clipped", "periodic"}
	g, err := BuildGrid(cfg, logr.Discard())
	require.NoError(t, err)
	assert.Equal(t, grid.Clipped, g.Boundary(0))
	assert.Equal(t, grid.Periodic, g.Boundary(1))
}

func TestSpallDamageMaterial(t *testing.T) {
	mats, err := BuildMaterials(config.GetPreset("spall"))
	require.NoError(t, err)
	require.Len(t, mats, 1)
	assert.Equal(t, "elastic+grady_kipp", mats[0].Model.Name())
}

func TestOverride(t *testing.T) {
	cfg := config.GetPreset("collision")
	require.NoError(t, Override(cfg, "flip", 0.95))
	require.NoError(t, Override(cfg, "max_steps", 12))
	require.NoError(t, Override(cfg, "gravity", 9.81))
	assert.Equal(t, 0.95, cfg.Params.Flip)
	assert.Equal(t, 12, cfg.Params.MaxSteps)
	assert.Equal(t, []float64{0, -9.81, 0}, cfg.Params.Gravity)

	g, err := Value(cfg, "gravity")
	require.NoError(t, err)
	assert.Equal(t, 9.81, g)
	dx, err := Value(cfg, "dx")
	require.NoError(t, err)
	assert.Equal(t, 0.025, dx)
	_, err = Value(cfg, "colour")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	assert.ErrorIs(t, Override(cfg, "colour", 1), core.ErrInvalidConfig)
	assert.Contains(t, Overridable(), "damping")
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"coulomb", "slip", "stick"}, reg.ListFriction())
	assert.Contains(t, reg.ListMetrics(), "stability")
	assert.Contains(t, reg.ListModels(), "elastic_drucker_prager")
	assert.Len(t, reg.ListPresets(), 6)

	a, err := reg.GetMetric("energy", 0)
	require.NoError(t, err)
	b, err := reg.GetMetric("energy", 0)
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	_, err = reg.GetMetric("entropy", 0)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	_, err = reg.GetPreset("nope")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	all, err := reg.GetMetrics(nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, len(reg.ListMetrics()))
}
