package sim

import (
	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/grid"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/tensor"
)

// softElastic has a wave speed of about 11.6 at unit density.
var softElastic = material.Spec{Name: "soft", Model: "elastic", Density: 1, E: 100, Nu: 0.3}

func newGrid2D(size, dx float64, b grid.Boundary, log logr.Logger) *grid.Grid {
	g, err := grid.New(2, tensor.Vec{}, tensor.Vec{size, size, 0}, dx, [3]grid.Boundary{b, b, b}, log)
	if err != nil {
		panic(err)
	}
	return g
}

func newMaterials(specs ...material.Spec) material.Table {
	t, err := material.NewTable(specs)
	if err != nil {
		panic(err)
	}
	return t
}

func newParticles(geom particle.Geometry, dx float64, log logr.Logger) *particle.Set {
	s, err := particle.NewSet(geom, dx, 1, log)
	if err != nil {
		panic(err)
	}
	return s
}

func fillBlock(geom *particle.Geometry, lo, hi, v tensor.Vec, body int, dx float64) {
	_, err := particle.Fill(geom, particle.Region{Lo: lo, Hi: hi, Density: 1, Body: body, Velocity: v, PerCell: 2}, dx, 2)
	if err != nil {
		panic(err)
	}
}

type countingMetric struct {
	seen  int
	steps []int
}

func (m *countingMetric) Name() string { return "count" }
func (m *countingMetric) Observe(f *Frame) {
	m.seen++
	m.steps = append(m.steps, f.Step)
}
func (m *countingMetric) Value() float64 { return float64(m.seen) }
func (m *countingMetric) Reset()         { m.seen = 0; m.steps = nil }
