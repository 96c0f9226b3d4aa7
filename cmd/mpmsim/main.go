package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	verbosity  int
	configFile string
	dt         float64
	tmax       float64
	maxSteps   int
	workers    int
	flip       float64
	sets       []string
	metricList []string
	threshold  float64
	frameRate  int
	progress   bool
	noSnapshot bool
	// live view
	stepsPerFrame int
	// plot/analyze
	plotMetric    string
	analyzeMetric string
	particles     bool
	outPath       string
	// bench
	benchSteps   int
	benchWorkers []int
	// sweep
	sweepParams []string
	sweepMetric string
	parallel    int
	// montecarlo
	perturb  []string
	trials   int
	seed     int64
	mcMetric string
	// svg output
	svgPath string
)

// main registers the mpmsim commands and exits with status 1 if the
// selected command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "mpmsim",
		Short:         "material point method simulation lab",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mpmsim", "data directory")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	scenarioFlags(runCmd)
	runCmd.Flags().StringSliceVar(&metricList, "metrics", nil, "metrics to record (default: all)")
	runCmd.Flags().Float64Var(&threshold, "threshold", 100, "speed limit for the stability metric")
	runCmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar")
	runCmd.Flags().IntVar(&frameRate, "fps", 10, "progress updates per second")
	runCmd.Flags().BoolVar(&noSnapshot, "no-particles", false, "skip the final particle snapshot")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scenario in the terminal viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	scenarioFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 5, "solver steps per frame")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot metric history or the final particle positions",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotMetric, "metric", "", "metric to plot (default: all)")
	plotCmd.Flags().BoolVar(&particles, "particles", false, "scatter plot the final particle positions")
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the plot to an SVG file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum, period and growth rate of a metric",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&analyzeMetric, "metric", "kinetic_energy", "metric to analyze")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "output", "o", "-", "output file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		RunE:  listPresets,
	}

	materialsCmd := &cobra.Command{
		Use:   "materials",
		Short: "list material models and an example material file",
		RunE:  listMaterials,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "measure solver throughput per worker count",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}
	benchCmd.Flags().StringVar(&configFile, "config", "", "scenario file")
	benchCmd.Flags().IntVar(&benchSteps, "steps", 50, "steps per measurement")
	benchCmd.Flags().IntSliceVar(&benchWorkers, "workers", []int{1, 2, 4}, "worker counts")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "grid search over scenario parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepScenario,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "scenario file")
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "energy_drift", "metric to minimise")
	sweepCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0: GOMAXPROCS)")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run every scenario listed in a batch file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().Float64Var(&threshold, "threshold", 100, "speed limit for the stability metric")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "stability of a scenario under random parameter perturbations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	monteCarloCmd.Flags().StringVar(&configFile, "config", "", "scenario file")
	monteCarloCmd.Flags().StringArrayVar(&sets, "set", nil, "name=value parameter override (repeatable)")
	monteCarloCmd.Flags().StringArrayVar(&perturb, "perturb", nil, "name=relative half-width (repeatable)")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0: clock)")
	monteCarloCmd.Flags().StringVar(&mcMetric, "metric", "energy_drift", "metric to summarise")
	monteCarloCmd.Flags().Float64Var(&threshold, "threshold", 100, "speed limit for stability")
	monteCarloCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs (0: all)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd, materialsCmd, benchCmd, sweepCmd, batchCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func scenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (YAML, or INI material table)")
	cmd.Flags().Float64Var(&dt, "dt", 0, "fixed timestep (0: CFL)")
	cmd.Flags().Float64Var(&tmax, "tmax", 0, "end time")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "step limit")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0: GOMAXPROCS)")
	cmd.Flags().Float64Var(&flip, "flip", 1, "FLIP fraction of the velocity update")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "name=value parameter override (repeatable)")
}

func newLogger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(os.Stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}

func splitPair(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", s)
	}
	return strings.TrimSpace(name), strings.TrimSpace(value), nil
}
