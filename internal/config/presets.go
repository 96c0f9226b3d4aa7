package config

import "sort"

var rubber = MaterialConfig{Name: "rubber", Model: "elastic", Density: 1000, E: 1e6, Nu: 0.3}

var Presets = map[string]func() *Config{
	"freefall": func() *Config {
		return &Config{
			Name:        "freefall",
			Description: "elastic block dropped onto a fixed floor",
			Dim:         2,
			Grid:        GridConfig{Origin: []float64{0, 0, 0}, Length: []float64{2, 2, 0}, Dx: 0.05},
			Params:      params(0.5, []float64{0, -9.81, 0}, 0.02),
			Materials:   []MaterialConfig{rubber},
			Bodies: []BodyConfig{
				{Name: "block", Lo: []float64{0.7, 0.8}, Hi: []float64{1.3, 1.2}, Material: "rubber"},
			},
			Boundaries: []BoundaryConfig{floor(2)},
		}
	},
	"collision": func() *Config {
		soft := MaterialConfig{Name: "disc", Model: "elastic", Density: 1000, E: 1000, Nu: 0.3}
		return &Config{
			Name:        "collision",
			Description: "two elastic discs in head-on contact",
			Dim:         2,
			Grid:        GridConfig{Origin: []float64{0, 0, 0}, Length: []float64{1, 1, 0}, Dx: 0.025},
			Params:      params(3, []float64{0, 0, 0}, 0),
			Materials:   []MaterialConfig{soft},
			Bodies: []BodyConfig{
				{Name: "left", Shape: "sphere", Center: []float64{0.25, 0.25}, Radius: 0.2, Material: "disc", Velocity: []float64{0.1, 0.1}},
				{Name: "right", Shape: "sphere", Center: []float64{0.75, 0.75}, Radius: 0.2, Material: "disc", Velocity: []float64{-0.1, -0.1}},
			},
		}
	},
	"column": func() *Config {
		sand := MaterialConfig{Name: "sand", Model: "elastic_drucker_prager", Density: 1800, E: 1e6, Nu: 0.3, Cohesion: 0, Friction: 30, Dilation: 0}
		return &Config{
			Name:        "column",
			Description: "granular column collapse on a rough floor",
			Dim:         2,
			Grid:        GridConfig{Origin: []float64{0, 0, 0}, Length: []float64{1, 0.5, 0}, Dx: 0.02},
			Params:      params(0.5, []float64{0, -9.81, 0}, 0.05),
			Materials:   []MaterialConfig{sand},
			Bodies: []BodyConfig{
				{Name: "column", Lo: []float64{0, 0}, Hi: []float64{0.2, 0.4}, Material: "sand"},
			},
			Boundaries: []BoundaryConfig{floor(1), leftWall(0.5)},
		}
	},
	"dambreak": func() *Config {
		water := MaterialConfig{Name: "water", Model: "newtonian_fluid", Density: 1000, Bulk: 2e6, Viscosity: 1e-3}
		return &Config{
			Name:        "dambreak",
			Description: "weakly compressible water column released in a tank",
			Dim:         2,
			Grid:        GridConfig{Origin: []float64{0, 0, 0}, Length: []float64{1.6, 0.8, 0}, Dx: 0.02},
			Params:      params(0.6, []float64{0, -9.81, 0}, 0),
			Materials:   []MaterialConfig{water},
			Bodies: []BodyConfig{
				{Name: "water", Lo: []float64{0, 0}, Hi: []float64{0.4, 0.4}, Material: "water"},
			},
			Boundaries: []BoundaryConfig{
				{Target: "nodes", Kind: "velocity", Lo: []float64{0, 0}, Hi: []float64{1.6, 0}, Axes: []string{"y"}},
				leftWall(0.8),
				{Target: "nodes", Kind: "velocity", Lo: []float64{1.6, 0}, Hi: []float64{1.6, 0.8}, Axes: []string{"x"}},
			},
		}
	},
	"plastic_impact": func() *Config {
		metal := MaterialConfig{Name: "metal", Model: "elastic_perfect_plastic", Density: 1000, E: 1e8, Nu: 0.3, Yield: 1e6}
		return &Config{
			Name:        "plastic_impact",
			Description: "disc striking a von Mises plate",
			Dim:         2,
			Grid:        GridConfig{Origin: []float64{0, 0, 0}, Length: []float64{1, 1, 0}, Dx: 0.01},
			Params:      params(5e-3, []float64{0, 0, 0}, 0),
			Materials:   []MaterialConfig{metal},
			Bodies: []BodyConfig{
				{Name: "plate", Lo: []float64{0.1, 0.1}, Hi: []float64{0.9, 0.3}, Material: "metal"},
				{Name: "striker", Shape: "sphere", Center: []float64{0.5, 0.42}, Radius: 0.1, Material: "metal", Velocity: []float64{0, -20}},
			},
			Boundaries: []BoundaryConfig{floor(1)},
		}
	},
	"spall": func() *Config {
		rock := MaterialConfig{
			Name: "rock", Model: "elastic", Density: 2700, E: 1e9, Nu: 0.25,
			Damage: &DamageConfig{M: 9, K: 1e30},
		}
		return &Config{
			Name:        "spall",
			Description: "flyer plate impact with Grady-Kipp tensile damage",
			Dim:         2,
			Grid:        GridConfig{Origin: []float64{0, 0, 0}, Length: []float64{0.2, 0.05, 0}, Dx: 0.005},
			Params:      params(2e-4, []float64{0, 0, 0}, 0),
			Materials:   []MaterialConfig{rock},
			Bodies: []BodyConfig{
				{Name: "flyer", Lo: []float64{0.01, 0}, Hi: []float64{0.03, 0.05}, Material: "rock", Velocity: []float64{10, 0}},
				{Name: "target", Lo: []float64{0.035, 0}, Hi: []float64{0.095, 0.05}, Material: "rock"},
			},
		}
	},
}

func params(tmax float64, gravity []float64, damping float64) ParamsConfig {
	return ParamsConfig{
		Gravity:     gravity,
		CFL:         DefaultCFL,
		CFLEvery:    1,
		Damping:     damping,
		TMax:        tmax,
		Flip:        DefaultFlip,
		Contact:     true,
		Friction:    "stick",
		OutputEvery: DefaultOutputEvery,
	}
}

// floor fixes the bottom node row of a domain of the given width.
func floor(width float64) BoundaryConfig {
	return BoundaryConfig{Target: "nodes", Kind: "fixed", Lo: []float64{0, 0}, Hi: []float64{width, 0}}
}

// leftWall is a roller on the x = 0 node column.
func leftWall(height float64) BoundaryConfig {
	return BoundaryConfig{Target: "nodes", Kind: "velocity", Lo: []float64{0, 0}, Hi: []float64{0, height}, Axes: []string{"x"}}
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
