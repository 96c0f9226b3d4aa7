package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/contact"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/material"
	"github.com/san-kum/mpmsim/internal/metrics"
	"github.com/san-kum/mpmsim/internal/sim"
)

// Registry names everything a scenario or the command line can refer to.
type Registry struct {
	metrics  map[string]func(threshold float64) sim.Metric
	friction map[string]contact.Friction
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics:  make(map[string]func(float64) sim.Metric),
		friction: make(map[string]contact.Friction),
	}

	for _, m := range metrics.Standard() {
		name := m.Name()
		r.metrics[name] = func(threshold float64) sim.Metric {
			fresh, _ := metrics.ByName(name, threshold)
			return fresh
		}
	}
	r.metrics["stability"] = func(threshold float64) sim.Metric { return metrics.NewStability(threshold) }

	for _, f := range []contact.Friction{contact.Stick, contact.Slip, contact.Coulomb} {
		r.friction[f.String()] = f
	}
	return r
}

func (r *Registry) GetMetric(name string, threshold float64) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q: %w", name, core.ErrInvalidConfig)
	}
	return fn(threshold), nil
}

// GetMetrics resolves names in order; an empty list yields the standard set.
func (r *Registry) GetMetrics(names []string, threshold float64) ([]sim.Metric, error) {
	if len(names) == 0 {
		return r.DefaultMetrics(threshold), nil
	}
	out := make([]sim.Metric, 0, len(names))
	for _, name := range names {
		m, err := r.GetMetric(name, threshold)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Registry) GetPreset(name string) (*config.Config, error) {
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset %q: %w", name, core.ErrInvalidConfig)
	}
	return cfg, nil
}

func (r *Registry) ListModels() []string { return material.Models() }

func (r *Registry) ListPresets() []string { return config.ListPresets() }

func (r *Registry) ListMetrics() []string { return sortedKeys(r.metrics) }

func (r *Registry) ListFriction() []string { return sortedKeys(r.friction) }

// DefaultMetrics is the standard set plus a speed stability check.
func (r *Registry) DefaultMetrics(threshold float64) []sim.Metric {
	return append(metrics.Standard(), metrics.NewStability(threshold))
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
