package material

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/mpmsim/internal/core"
)

// Spec is the parameter record of one material.
type Spec struct {
	Name      string
	Model     string
	Density   float64
	E, Nu     float64
	Bulk      float64
	Viscosity float64
	Yield     float64
	DruckerPragerParams
	Damage *DamageSpec
}

// DamageSpec enables Grady-Kipp damage on top of the base model.
type DamageSpec struct {
	M, K       float64
	CrackSpeed float64
}

// Material is a validated model with its reference density.
type Material struct {
	ID      int
	Name    string
	Density float64
	Model   Model
}

// WaveSpeed returns the model wave speed at the reference density.
func (m *Material) WaveSpeed() float64 { return m.Model.WaveSpeed(m.Density) }

var allocators = map[string]func(Spec) (Model, error){
	"elastic": func(s Spec) (Model, error) {
		return NewElastic(s.E, s.Nu)
	},
	"newtonian_fluid": func(s Spec) (Model, error) {
		return NewNewtonianFluid(s.Bulk, s.Viscosity)
	},
	"elastic_perfect_plastic": func(s Spec) (Model, error) {
		return NewPerfectPlastic(s.E, s.Nu, s.Yield)
	},
	"elastic_drucker_prager": func(s Spec) (Model, error) {
		return NewDruckerPrager(s.E, s.Nu, s.DruckerPragerParams)
	},
}

var aliases = map[string]string{
	"fluid":          "newtonian_fluid",
	"plastic":        "elastic_perfect_plastic",
	"von_mises":      "elastic_perfect_plastic",
	"drucker_prager": "elastic_drucker_prager",
	"dp":             "elastic_drucker_prager",
}

// Models lists the registered model names.
func Models() []string {
	names := make([]string, 0, len(allocators))
	for n := range allocators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New validates spec and builds its model.
func New(id int, spec Spec) (*Material, error) {
	name := strings.ToLower(strings.TrimSpace(spec.Model))
	if a, ok := aliases[name]; ok {
		name = a
	}
	alloc, ok := allocators[name]
	if !ok {
		return nil, fmt.Errorf("material %q: unknown model %q: %w", spec.Name, spec.Model, core.ErrInvalidMaterial)
	}
	if !(spec.Density > 0) || math.IsInf(spec.Density, 0) {
		return nil, fmt.Errorf("material %q: density %g must be positive: %w", spec.Name, spec.Density, core.ErrInvalidMaterial)
	}
	model, err := alloc(spec)
	if err != nil {
		return nil, fmt.Errorf("material %q: %w", spec.Name, err)
	}
	if spec.Damage != nil {
		model, err = NewGradyKipp(model, spec.Damage.M, spec.Damage.K, spec.Damage.CrackSpeed, spec.Density)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", spec.Name, err)
		}
	}
	return &Material{ID: id, Name: spec.Name, Density: spec.Density, Model: model}, nil
}

// Table is the material library indexed by id.
type Table []*Material

// NewTable builds every spec; ids follow slice order.
func NewTable(specs []Spec) (Table, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no materials defined: %w", core.ErrInvalidMaterial)
	}
	t := make(Table, len(specs))
	for i, s := range specs {
		m, err := New(i, s)
		if err != nil {
			return nil, err
		}
		t[i] = m
	}
	return t, nil
}

// Lookup returns the material with the given name.
func (t Table) Lookup(name string) (*Material, bool) {
	for _, m := range t {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// MaxWaveSpeed returns the largest reference wave speed in the table.
func (t Table) MaxWaveSpeed() float64 {
	c := 0.0
	for _, m := range t {
		c = math.Max(c, m.WaveSpeed())
	}
	return c
}
