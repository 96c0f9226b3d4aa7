// Package config reads and writes scenario files.
//
// Scenarios are YAML. Material tables may also come from INI files with one
// [material "name"] section per material.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mpmsim/internal/core"
)

const (
	DefaultDim         = 2
	DefaultDx          = 0.1
	DefaultCFL         = 0.5
	DefaultTMax        = 1.0
	DefaultFlip        = 1.0
	DefaultOutputEvery = 10
	DefaultPerCell     = 2
)

type Config struct {
	Name         string           `yaml:"name"`
	Description  string           `yaml:"description,omitempty"`
	Dim          int              `yaml:"dim"`
	Grid         GridConfig       `yaml:"grid"`
	Params       ParamsConfig     `yaml:"params"`
	MaterialFile string           `yaml:"material_file,omitempty"`
	Materials    []MaterialConfig `yaml:"materials,omitempty"`
	Bodies       []BodyConfig     `yaml:"bodies"`
	Boundaries   []BoundaryConfig `yaml:"boundaries,omitempty"`
}

type GridConfig struct {
	Origin   []float64 `yaml:"origin,flow"`
	Length   []float64 `yaml:"length,flow"`
	Dx       float64   `yaml:"dx"`
	Boundary []string  `yaml:"boundary,flow,omitempty"`
}

type ParamsConfig struct {
	Gravity     []float64 `yaml:"gravity,flow"`
	Dt          float64   `yaml:"dt"`
	CFL         float64   `yaml:"cfl"`
	CFLEvery    int       `yaml:"cfl_every"`
	Damping     float64   `yaml:"damping"`
	TMax        float64   `yaml:"tmax"`
	MaxSteps    int       `yaml:"max_steps"`
	Flip        float64   `yaml:"flip"`
	Jaumann     bool      `yaml:"jaumann"`
	Contact     bool      `yaml:"contact"`
	Friction    string    `yaml:"friction"`
	Mu          float64   `yaml:"mu"`
	OutputEvery int       `yaml:"output_every"`
	Workers     int       `yaml:"workers"`
}

type MaterialConfig struct {
	Name             string        `yaml:"name"`
	Model            string        `yaml:"model"`
	Density          float64       `yaml:"density"`
	E                float64       `yaml:"E,omitempty"`
	Nu               float64       `yaml:"nu,omitempty"`
	Bulk             float64       `yaml:"bulk,omitempty"`
	Viscosity        float64       `yaml:"viscosity,omitempty"`
	Yield            float64       `yaml:"yield,omitempty"`
	Cohesion         float64       `yaml:"cohesion,omitempty"`
	Friction         float64       `yaml:"friction,omitempty"`
	Dilation         float64       `yaml:"dilation,omitempty"`
	CriticalStrain   float64       `yaml:"critical_strain,omitempty"`
	ResidualCohesion float64       `yaml:"residual_cohesion,omitempty"`
	SofteningStrain  float64       `yaml:"softening_strain,omitempty"`
	Damage           *DamageConfig `yaml:"damage,omitempty"`
}

type DamageConfig struct {
	M          float64 `yaml:"m"`
	K          float64 `yaml:"k"`
	CrackSpeed float64 `yaml:"crack_speed,omitempty"`
}

type BodyConfig struct {
	Name     string    `yaml:"name"`
	Shape    string    `yaml:"shape,omitempty"`
	Lo       []float64 `yaml:"lo,flow,omitempty"`
	Hi       []float64 `yaml:"hi,flow,omitempty"`
	Center   []float64 `yaml:"center,flow,omitempty"`
	Radius   float64   `yaml:"radius,omitempty"`
	Material string    `yaml:"material"`
	PerCell  int       `yaml:"per_cell,omitempty"`
	Velocity []float64 `yaml:"velocity,flow,omitempty"`
	Stress   []float64 `yaml:"stress,flow,omitempty"`
}

// BoundaryConfig assigns one condition to every node or particle inside
// [Lo, Hi]. Axes lists constrained components by name (x, y, z, xx, yy, zz,
// xy, yz, zx); empty means all.
type BoundaryConfig struct {
	Target string    `yaml:"target"`
	Kind   string    `yaml:"kind"`
	Lo     []float64 `yaml:"lo,flow"`
	Hi     []float64 `yaml:"hi,flow"`
	Axes   []string  `yaml:"axes,flow,omitempty"`
	Value  []float64 `yaml:"value,flow,omitempty"`
	Ramp   float64   `yaml:"ramp,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name: "scenario",
		Dim:  DefaultDim,
		Grid: GridConfig{
			Origin: []float64{0, 0, 0},
			Length: []float64{1, 1, 0},
			Dx:     DefaultDx,
		},
		Params: ParamsConfig{
			CFL:         DefaultCFL,
			CFLEvery:    1,
			TMax:        DefaultTMax,
			Flip:        DefaultFlip,
			Contact:     true,
			Friction:    "stick",
			OutputEvery: DefaultOutputEvery,
		},
	}
}

// Load reads a YAML scenario, or an INI material table into a default
// scenario, depending on the file extension.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".gcfg", ".cfg":
		mats, err := LoadMaterials(path)
		if err != nil {
			return nil, err
		}
		cfg := DefaultConfig()
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		cfg.Materials = mats
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.MaterialFile != "" {
		mf := cfg.MaterialFile
		if !filepath.IsAbs(mf) {
			mf = filepath.Join(filepath.Dir(path), mf)
		}
		mats, err := LoadMaterials(mf)
		if err != nil {
			return nil, err
		}
		cfg.Materials = append(cfg.Materials, mats...)
	}
	return cfg, nil
}

// Parse decodes a YAML scenario over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrInvalidConfig)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy through a YAML round trip.
func (c *Config) Clone() *Config {
	data, err := yaml.Marshal(c)
	if err != nil {
		panic(err)
	}
	out := &Config{}
	if err := yaml.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// MaterialIndex returns the position of the named material.
func (c *Config) MaterialIndex(name string) int {
	for i, m := range c.Materials {
		if m.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks the structural rules that do not need the solver.
func (c *Config) Validate() error {
	if c.Dim != 2 && c.Dim != 3 {
		return fmt.Errorf("dim %d not in {2,3}: %w", c.Dim, core.ErrInvalidConfig)
	}
	if !(c.Grid.Dx > 0) {
		return fmt.Errorf("grid dx %g: %w", c.Grid.Dx, core.ErrCellSize)
	}
	if len(c.Grid.Length) < c.Dim {
		return fmt.Errorf("grid length needs %d components: %w", c.Dim, core.ErrInvalidConfig)
	}
	if len(c.Materials) == 0 {
		return fmt.Errorf("no materials: %w", core.ErrInvalidMaterial)
	}
	seen := map[string]bool{}
	for _, m := range c.Materials {
		if m.Name == "" {
			return fmt.Errorf("material without a name: %w", core.ErrInvalidMaterial)
		}
		if seen[m.Name] {
			return fmt.Errorf("material %q defined twice: %w", m.Name, core.ErrInvalidMaterial)
		}
		seen[m.Name] = true
	}
	if len(c.Bodies) == 0 {
		return fmt.Errorf("no bodies: %w", core.ErrInvalidConfig)
	}
	for i, b := range c.Bodies {
		if !seen[b.Material] {
			return fmt.Errorf("body %d (%s): unknown material %q: %w", i, b.Name, b.Material, core.ErrInvalidConfig)
		}
	}
	for i, b := range c.Boundaries {
		if len(b.Lo) < c.Dim || len(b.Hi) < c.Dim {
			return fmt.Errorf("boundary %d: lo/hi need %d components: %w", i, c.Dim, core.ErrInvalidConfig)
		}
	}
	return nil
}
