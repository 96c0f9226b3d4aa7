// Package optim searches scenario parameters for the best metric value.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/experiment"
	"github.com/san-kum/mpmsim/internal/sim"
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	// MaxParallel bounds concurrent runs; zero runs every point at once.
	MaxParallel int
	Log         logr.Logger
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, Log: logr.Discard()}
}

// Point is one evaluated parameter combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Result *sim.Result
	Err    error
}

// Points expands the cartesian product of the ranges in row-major order.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.expand(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*out = append(*out, p)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.expand(depth+1, current, out)
	}
	delete(current, name)
}

// Search runs base once per grid point with the overrides applied and
// returns every point plus the one minimising metricName. Failed runs are
// kept with their error and never win.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) ([]Point, *Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, nil, fmt.Errorf("%d parameters but %d ranges: %w", len(g.paramNames), len(g.ranges), core.ErrInvalidConfig)
	}
	reg := experiment.NewRegistry()

	combos := g.Points()
	points := make([]Point, len(combos))
	ens := sim.NewEnsemble()
	ens.MaxParallel = g.MaxParallel
	index := make([]int, 0, len(combos))

	for i, params := range combos {
		points[i] = Point{Params: params, Value: math.Inf(1)}
		cfg := base.Clone()
		for name, v := range params {
			if err := experiment.Override(cfg, name, v); err != nil {
				return nil, nil, err
			}
		}
		exp, err := experiment.New(cfg, g.Log)
		if err != nil {
			points[i].Err = err
			continue
		}
		m, err := reg.GetMetric(metricName, 0)
		if err != nil {
			return nil, nil, err
		}
		if err := exp.Setup([]sim.Metric{m}); err != nil {
			points[i].Err = err
			continue
		}
		ens.Add(exp.Solver())
		index = append(index, i)
	}

	results, errs := ens.Run(ctx)
	var best *Point
	for j, i := range index {
		p := &points[i]
		p.Result, p.Err = results[j], errs[j]
		if p.Err != nil || p.Result == nil {
			continue
		}
		p.Value = p.Result.Metrics[metricName]
		g.Log.V(1).Info("grid point", "params", p.Params, metricName, p.Value)
		if best == nil || p.Value < best.Value {
			best = p
		}
	}
	if best == nil {
		return points, nil, fmt.Errorf("no grid point completed: %w", firstErr(points))
	}
	return points, best, ctx.Err()
}

func firstErr(points []Point) error {
	for _, p := range points {
		if p.Err != nil {
			return p.Err
		}
	}
	return core.ErrInvalidConfig
}
