package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/mpmsim/internal/automation"
	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/experiment"
	"github.com/san-kum/mpmsim/internal/optim"
	"github.com/san-kum/mpmsim/internal/storage"
	"github.com/san-kum/mpmsim/internal/viz"
)

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDIM\tBODIES\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%dD\t%d\t%s\n", name, cfg.Dim, len(cfg.Bodies), cfg.Description)
	}
	return w.Flush()
}

func listMaterials(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	s := viz.Current()

	fmt.Println(s.Title.Render("material models"))
	for _, m := range reg.ListModels() {
		fmt.Printf("  %s\n", m)
	}
	fmt.Println()
	fmt.Println(s.Title.Render("contact friction"))
	for _, f := range reg.ListFriction() {
		fmt.Printf("  %s\n", f)
	}
	fmt.Println()
	fmt.Println(s.Title.Render("metrics"))
	for _, m := range reg.ListMetrics() {
		fmt.Printf("  %s\n", m)
	}
	fmt.Println()
	fmt.Println(s.Title.Render("overridable parameters"))
	fmt.Printf("  %s\n\n", strings.Join(experiment.Overridable(), ", "))
	fmt.Println(s.Title.Render("example material file"))
	fmt.Print(config.ExampleMaterialFile)
	return nil
}

func benchScenario(cmd *cobra.Command, args []string) error {
	base, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if benchSteps <= 0 {
		return fmt.Errorf("--steps must be positive")
	}

	fmt.Printf("benchmarking %s (%d steps)\n\n", base.Name, benchSteps)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKERS\tPARTICLES\tSTEPS\tTIME\tSTEPS/SEC\tPARTICLE-STEPS/SEC")

	for _, n := range benchWorkers {
		cfg := base.Clone()
		cfg.Params.Workers = n
		cfg.Params.MaxSteps = benchSteps
		cfg.Params.TMax = 0

		exp, err := experiment.New(cfg, newLogger())
		if err != nil {
			return err
		}
		if err := exp.Setup(nil); err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		np := exp.Solver().Particles().Len()
		stepsPerSec := float64(result.Steps) / elapsed.Seconds()
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%.0f\t%.3g\n",
			n, np, result.Steps, elapsed.Round(time.Microsecond), stepsPerSec, stepsPerSec*float64(np))
	}

	return w.Flush()
}

// parseRange reads "name=v1,v2,..." or "name=lo:hi:n".
func parseRange(s string) (string, []float64, error) {
	name, raw, err := splitPair(s)
	if err != nil {
		return "", nil, err
	}
	if parts := strings.Split(raw, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return "", nil, fmt.Errorf("bad range %q for %s", raw, name)
		}
		vals := make([]float64, n)
		for i := range vals {
			if n == 1 {
				vals[i] = lo
				continue
			}
			vals[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		return name, vals, nil
	}
	var vals []float64
	for _, f := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", name, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

func sweepScenario(cmd *cobra.Command, args []string) error {
	base, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if len(sweepParams) == 0 {
		return fmt.Errorf("need at least one --param (have %v)", experiment.Overridable())
	}

	var names []string
	var ranges [][]float64
	for _, p := range sweepParams {
		name, vals, err := parseRange(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	gs := optim.NewGridSearch(names, ranges)
	gs.MaxParallel = parallel
	gs.Log = newLogger()

	fmt.Printf("sweeping %s over %d points, minimising %s\n\n", base.Name, len(gs.Points()), sweepMetric)
	points, best, err := gs.Search(context.Background(), base, sweepMetric)
	if err != nil && best == nil {
		return err
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Value < points[j].Value })
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tSTATUS\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(sweepMetric))
	for _, p := range points {
		cols := make([]string, len(names))
		for i, name := range names {
			cols[i] = strconv.FormatFloat(p.Params[name], 'g', 6, 64)
		}
		status := "ok"
		if p.Err != nil {
			status = p.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%.6g\t%s\n", strings.Join(cols, "\t"), p.Value, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest: %v -> %s = %.6g\n", best.Params, sweepMetric, best.Value)
	return err
}

func runBatch(cmd *cobra.Command, args []string) error {
	b, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("batch %s: %d runs\n\n", b.Name, len(b.Runs))
	results, runErr := automation.RunBatch(ctx, b, st, threshold, newLogger())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSCENARIO\tRUN ID\tSTEPS\tT\tSTATUS")
	failed := 0
	for i, r := range results {
		steps, t := 0, 0.0
		if r.Result != nil {
			steps, t = r.Result.Steps, r.Result.Time
		}
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", i+1, r.Name, r.RunID, steps, viz.FormatSI(t, "s"), status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	if len(perturb) == 0 {
		return fmt.Errorf("need at least one --perturb (have %v)", experiment.Overridable())
	}
	widths := make(map[string]float64, len(perturb))
	for _, p := range perturb {
		name, raw, err := splitPair(p)
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("--perturb %s: %w", name, err)
		}
		widths[name] = v
	}

	mc := &automation.MonteCarloConfig{
		Base:        base,
		Perturb:     widths,
		Trials:      trials,
		Seed:        seed,
		Metric:      mcMetric,
		Threshold:   threshold,
		MaxParallel: parallel,
		Log:         newLogger(),
	}
	fmt.Printf("monte carlo %s: %d trials\n\n", base.Name, trials)
	results, err := automation.RunMonteCarlo(context.Background(), mc)
	if err != nil {
		return err
	}

	s := viz.Current()
	stable, unstable := automation.MonteCarloStats(results)
	mean, std, n := automation.MetricSummary(results)
	fmt.Print(s.Row("stable", fmt.Sprintf("%d", stable)))
	fmt.Print(s.Row("unstable", fmt.Sprintf("%d", unstable)))
	if n > 0 {
		fmt.Print(s.Row(mcMetric, fmt.Sprintf("%.6g ± %.3g (n=%d)", mean, std, n)))
	}
	return nil
}
