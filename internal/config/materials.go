package config

import (
	"fmt"
	"sort"

	"gopkg.in/gcfg.v1"

	"github.com/san-kum/mpmsim/internal/core"
)

// ExampleMaterialFile documents the INI material format.
const ExampleMaterialFile = `# One section per material. Names are referenced by bodies in scenarios.

[material "steel"]
Model = elastic
Density = 7850
E = 200e9
Nu = 0.3

[material "sand"]
Model = elastic_drucker_prager
Density = 1800
E = 10e6
Nu = 0.3
Cohesion = 0
Friction = 30
Dilation = 0

# Damage-M, Damage-K enable Grady-Kipp damage. Crack-Speed defaults to 0.4 of
# the longitudinal wave speed.
[material "basalt"]
Model = elastic
Density = 2700
E = 70e9
Nu = 0.25
Damage-M = 9
Damage-K = 1e28
`

type iniMaterial struct {
	Model            string
	Density          float64
	E                float64
	Nu               float64
	Bulk             float64
	Viscosity        float64
	Yield            float64
	Cohesion         float64
	Friction         float64
	Dilation         float64
	CriticalStrain   float64 `gcfg:"critical-strain"`
	ResidualCohesion float64 `gcfg:"residual-cohesion"`
	SofteningStrain  float64 `gcfg:"softening-strain"`
	DamageM          float64 `gcfg:"damage-m"`
	DamageK          float64 `gcfg:"damage-k"`
	CrackSpeed       float64 `gcfg:"crack-speed"`
}

type iniFile struct {
	Material map[string]*iniMaterial
}

func (m *iniMaterial) config(name string) MaterialConfig {
	mc := MaterialConfig{
		Name:             name,
		Model:            m.Model,
		Density:          m.Density,
		E:                m.E,
		Nu:               m.Nu,
		Bulk:             m.Bulk,
		Viscosity:        m.Viscosity,
		Yield:            m.Yield,
		Cohesion:         m.Cohesion,
		Friction:         m.Friction,
		Dilation:         m.Dilation,
		CriticalStrain:   m.CriticalStrain,
		ResidualCohesion: m.ResidualCohesion,
		SofteningStrain:  m.SofteningStrain,
	}
	if m.DamageM != 0 || m.DamageK != 0 {
		mc.Damage = &DamageConfig{M: m.DamageM, K: m.DamageK, CrackSpeed: m.CrackSpeed}
	}
	return mc
}

func materialsFrom(f *iniFile) ([]MaterialConfig, error) {
	if len(f.Material) == 0 {
		return nil, fmt.Errorf("no [material] sections: %w", core.ErrInvalidMaterial)
	}
	names := make([]string, 0, len(f.Material))
	for name := range f.Material {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]MaterialConfig, 0, len(names))
	for _, name := range names {
		out = append(out, f.Material[name].config(name))
	}
	return out, nil
}

// LoadMaterials reads an INI material table. Materials are returned sorted
// by name.
func LoadMaterials(path string) ([]MaterialConfig, error) {
	f := iniFile{}
	if err := gcfg.ReadFileInto(&f, path); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, core.ErrInvalidConfig)
	}
	return materialsFrom(&f)
}

// ParseMaterials reads an INI material table from a string.
func ParseMaterials(text string) ([]MaterialConfig, error) {
	f := iniFile{}
	if err := gcfg.ReadStringInto(&f, text); err != nil {
		return nil, fmt.Errorf("%v: %w", err, core.ErrInvalidConfig)
	}
	return materialsFrom(&f)
}
