package experiment

import (
	"fmt"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/core"
)

type scalar struct {
	get func(c *config.Config) float64
	set func(c *config.Config, v float64)
}

// scalars are the scenario fields that can be read and overridden by name,
// from the command line, a parameter sweep or a Monte Carlo study.
var scalars = map[string]scalar{
	"dt": {
		func(c *config.Config) float64 { return c.Params.Dt },
		func(c *config.Config, v float64) { c.Params.Dt = v },
	},
	"cfl": {
		func(c *config.Config) float64 { return c.Params.CFL },
		func(c *config.Config, v float64) { c.Params.CFL = v },
	},
	"damping": {
		func(c *config.Config) float64 { return c.Params.Damping },
		func(c *config.Config, v float64) { c.Params.Damping = v },
	},
	"tmax": {
		func(c *config.Config) float64 { return c.Params.TMax },
		func(c *config.Config, v float64) { c.Params.TMax = v },
	},
	"max_steps": {
		func(c *config.Config) float64 { return float64(c.Params.MaxSteps) },
		func(c *config.Config, v float64) { c.Params.MaxSteps = int(v) },
	},
	"flip": {
		func(c *config.Config) float64 { return c.Params.Flip },
		func(c *config.Config, v float64) { c.Params.Flip = v },
	},
	"mu": {
		func(c *config.Config) float64 { return c.Params.Mu },
		func(c *config.Config, v float64) { c.Params.Mu = v },
	},
	"workers": {
		func(c *config.Config) float64 { return float64(c.Params.Workers) },
		func(c *config.Config, v float64) { c.Params.Workers = int(v) },
	},
	"output_every": {
		func(c *config.Config) float64 { return float64(c.Params.OutputEvery) },
		func(c *config.Config, v float64) { c.Params.OutputEvery = int(v) },
	},
	"dx": {
		func(c *config.Config) float64 { return c.Grid.Dx },
		func(c *config.Config, v float64) { c.Grid.Dx = v },
	},
	// gravity is the downward magnitude along the last axis
	"gravity": {
		func(c *config.Config) float64 {
			if len(c.Params.Gravity) < c.Dim || c.Dim < 1 {
				return 0
			}
			return -c.Params.Gravity[c.Dim-1]
		},
		func(c *config.Config, v float64) {
			g := make([]float64, 3)
			g[c.Dim-1] = -v
			c.Params.Gravity = g
		},
	},
}

func lookup(name string) (scalar, error) {
	s, ok := scalars[name]
	if !ok {
		return scalar{}, fmt.Errorf("unknown parameter %q (have %v): %w", name, Overridable(), core.ErrInvalidConfig)
	}
	return s, nil
}

// Override sets the named scalar on cfg.
func Override(cfg *config.Config, name string, value float64) error {
	s, err := lookup(name)
	if err != nil {
		return err
	}
	s.set(cfg, value)
	return nil
}

// Value reads the named scalar from cfg.
func Value(cfg *config.Config, name string) (float64, error) {
	s, err := lookup(name)
	if err != nil {
		return 0, err
	}
	return s.get(cfg), nil
}

// Overridable lists the parameter names accepted by Override.
func Overridable() []string {
	return sortedKeys(scalars)
}
