package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/experiment"
	"github.com/san-kum/mpmsim/internal/storage"
	"github.com/san-kum/mpmsim/internal/viz"
)

// loadScenario resolves the --config file or the preset named in args, then
// applies flags the user set explicitly and any --set overrides.
func loadScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case len(args) == 1:
		preset, err := experiment.NewRegistry().GetPreset(args[0])
		if err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, config.ListPresets())
		}
		cfg = preset
	default:
		return nil, fmt.Errorf("need a preset name or --config (presets: %v)", config.ListPresets())
	}

	flags := cmd.Flags()
	changed := func(name string) bool { return flags.Lookup(name) != nil && flags.Changed(name) }
	if changed("dt") {
		cfg.Params.Dt = dt
	}
	if changed("tmax") {
		cfg.Params.TMax = tmax
	}
	if changed("max-steps") {
		cfg.Params.MaxSteps = maxSteps
	}
	if changed("workers") {
		cfg.Params.Workers = workers
	}
	if changed("flip") {
		cfg.Params.Flip = flip
	}
	for _, s := range sets {
		name, raw, err := splitPair(s)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", name, err)
		}
		if err := experiment.Override(cfg, name, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	log := newLogger()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}
	metrics, err := experiment.NewRegistry().GetMetrics(metricList, threshold)
	if err != nil {
		return err
	}
	if err := exp.Setup(metrics); err != nil {
		return err
	}

	solver := exp.Solver()
	g := solver.Grid()
	fmt.Printf("running %s: %dD, %d nodes, %d particles, %d bodies\n",
		cfg.Name, g.Dim, g.NumNodes(), solver.Particles().Len(), len(solver.Particles().Bodies()))

	var bar *viz.Progress
	if progress {
		bar = viz.NewProgress(os.Stderr, cfg.Name, *exp.Params(), frameRate)
		solver.AddObserver(bar)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, runErr := exp.Run(ctx)
	if bar != nil {
		bar.Done()
	}

	parts := solver.Particles()
	if noSnapshot {
		parts = nil
	}
	runID, err := st.Save(cfg, result, parts, runErr)
	if err != nil {
		return err
	}

	fmt.Printf("completed %d steps to t=%s in %v\n", result.Steps, viz.FormatSI(result.Time, "s"), result.Elapsed.Round(time.Millisecond))
	fmt.Printf("dt range: %s .. %s\n", viz.FormatSI(result.DtMin, "s"), viz.FormatSI(result.DtMax, "s"))
	fmt.Printf("run id: %s\n", runID)
	fmt.Println("\nmetrics:")
	for _, name := range sortedMetricNames(result.Metrics) {
		fmt.Printf("  %-16s %.6g\n", name, result.Metrics[name])
	}

	if runErr != nil {
		return fmt.Errorf("run stopped at step %d: %w", result.Steps, runErr)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, newLogger())
	if err != nil {
		return err
	}
	if err := exp.Setup(nil); err != nil {
		return err
	}

	m := viz.NewModel(exp.Solver(), cfg.Name, stepsPerFrame)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
