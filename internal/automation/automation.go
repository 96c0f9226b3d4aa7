// Package automation runs scripted batches of scenarios and Monte Carlo
// studies over perturbed scenario parameters.
package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/core"
	"github.com/san-kum/mpmsim/internal/experiment"
	"github.com/san-kum/mpmsim/internal/sim"
	"github.com/san-kum/mpmsim/internal/storage"
)

// Batch is a scripted sequence of runs.
type Batch struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Runs        []BatchRun `yaml:"runs"`
}

// BatchRun names a preset or a scenario file plus parameter overrides.
type BatchRun struct {
	Preset string             `yaml:"preset,omitempty"`
	Config string             `yaml:"config,omitempty"`
	Set    map[string]float64 `yaml:"set,omitempty"`
	SaveAs string             `yaml:"save_as,omitempty"`
}

// BatchResult is the outcome of one batch run. RunID is empty when the run
// was not stored.
type BatchResult struct {
	Name   string
	RunID  string
	Result *sim.Result
	Err    error
}

// LoadBatch reads a batch file. Relative scenario paths are resolved
// against the batch file's directory.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, core.ErrInvalidConfig)
	}
	if len(b.Runs) == 0 {
		return nil, fmt.Errorf("%s: no runs: %w", path, core.ErrInvalidConfig)
	}
	for i := range b.Runs {
		if c := b.Runs[i].Config; c != "" && !filepath.IsAbs(c) {
			b.Runs[i].Config = filepath.Join(filepath.Dir(path), c)
		}
	}
	return &b, nil
}

// Scenario resolves the run's scenario with its overrides applied.
// Overrides are applied in name order.
func (r BatchRun) Scenario() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case r.Config != "":
		loaded, err := config.Load(r.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case r.Preset != "":
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q: %w", r.Preset, core.ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("run needs a preset or a config: %w", core.ErrInvalidConfig)
	}

	names := make([]string, 0, len(r.Set))
	for name := range r.Set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := experiment.Override(cfg, name, r.Set[name]); err != nil {
			return nil, err
		}
	}
	if r.SaveAs != "" {
		cfg.Name = r.SaveAs
	}
	return cfg, nil
}

// RunBatch executes the runs in order, storing each in st when st is not
// nil. A failed run is recorded and the batch moves on; only cancellation
// of ctx stops it early.
func RunBatch(ctx context.Context, b *Batch, st *storage.Store, threshold float64, log logr.Logger) ([]BatchResult, error) {
	reg := experiment.NewRegistry()
	results := make([]BatchResult, 0, len(b.Runs))

	for i, run := range b.Runs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		br := BatchResult{Name: fmt.Sprintf("run %d", i+1)}

		cfg, err := run.Scenario()
		if err != nil {
			br.Err = err
			results = append(results, br)
			continue
		}
		br.Name = cfg.Name
		log.Info("batch run", "index", i+1, "of", len(b.Runs), "scenario", cfg.Name)

		exp, err := experiment.New(cfg, log.WithValues("scenario", cfg.Name))
		if err == nil {
			err = exp.Setup(reg.DefaultMetrics(threshold))
		}
		if err != nil {
			br.Err = err
			results = append(results, br)
			continue
		}

		br.Result, br.Err = exp.Run(ctx)
		if st != nil && br.Result != nil {
			id, err := st.Save(cfg, br.Result, exp.Solver().Particles(), br.Err)
			if err != nil {
				return results, err
			}
			br.RunID = id
		}
		results = append(results, br)
	}
	return results, ctx.Err()
}

// MonteCarloConfig perturbs scenario parameters around their base values.
type MonteCarloConfig struct {
	Base *config.Config
	// Perturb maps a parameter name to its relative half-width p: each
	// trial draws base*(1+u*p) with u uniform in [-1, 1].
	Perturb map[string]float64
	Trials  int
	// Seed zero seeds from the clock.
	Seed int64
	// Metric is recorded per trial; Threshold is the stability speed limit.
	Metric      string
	Threshold   float64
	MaxParallel int
	Log         logr.Logger
}

// MonteCarloResult is one trial.
type MonteCarloResult struct {
	Trial  int
	Params map[string]float64
	Value  float64
	Stable bool
	Err    error
}

// RunMonteCarlo runs the trials concurrently. A trial is stable when it
// finishes without error and no particle exceeded the threshold speed.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.Base == nil || cfg.Trials <= 0 {
		return nil, fmt.Errorf("monte carlo needs a base scenario and trials > 0: %w", core.ErrInvalidConfig)
	}
	log := cfg.Log
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	names := make([]string, 0, len(cfg.Perturb))
	base := make(map[string]float64, len(cfg.Perturb))
	for name := range cfg.Perturb {
		v, err := experiment.Value(cfg.Base, name)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		base[name] = v
	}
	sort.Strings(names)

	reg := experiment.NewRegistry()
	results := make([]MonteCarloResult, cfg.Trials)
	ens := sim.NewEnsemble()
	ens.MaxParallel = cfg.MaxParallel
	var index []int
	stability := make(map[int]sim.Metric)
	value := make(map[int]sim.Metric)

	for trial := range results {
		r := &results[trial]
		r.Trial = trial
		r.Params = make(map[string]float64, len(names))
		r.Value = math.NaN()

		c := cfg.Base.Clone()
		for _, name := range names {
			v := base[name] * (1 + (rng.Float64()*2-1)*cfg.Perturb[name])
			r.Params[name] = v
			if err := experiment.Override(c, name, v); err != nil {
				return nil, err
			}
		}

		exp, err := experiment.New(c, log)
		if err != nil {
			r.Err = err
			continue
		}
		stab, err := reg.GetMetric("stability", cfg.Threshold)
		if err != nil {
			return nil, err
		}
		ms := []sim.Metric{stab}
		if cfg.Metric != "" && cfg.Metric != "stability" {
			m, err := reg.GetMetric(cfg.Metric, cfg.Threshold)
			if err != nil {
				return nil, err
			}
			ms = append(ms, m)
			value[trial] = m
		} else {
			value[trial] = stab
		}
		if err := exp.Setup(ms); err != nil {
			r.Err = err
			continue
		}
		stability[trial] = stab
		ens.Add(exp.Solver())
		index = append(index, trial)
	}

	_, errs := ens.Run(ctx)
	for j, trial := range index {
		r := &results[trial]
		r.Err = errs[j]
		r.Value = value[trial].Value()
		r.Stable = r.Err == nil && stability[trial].Value() == 1
		log.V(1).Info("trial", "trial", trial, "params", r.Params, "stable", r.Stable)
	}
	return results, ctx.Err()
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

// MetricSummary returns the mean and standard deviation of the recorded
// metric over trials that completed.
func MetricSummary(results []MonteCarloResult) (mean, std float64, n int) {
	var xs []float64
	for _, r := range results {
		if r.Err == nil && !math.IsNaN(r.Value) {
			xs = append(xs, r.Value)
		}
	}
	if len(xs) == 0 {
		return math.NaN(), math.NaN(), 0
	}
	if len(xs) == 1 {
		return xs[0], 0, 1
	}
	mean, std = stat.MeanStdDev(xs, nil)
	return mean, std, len(xs)
}
