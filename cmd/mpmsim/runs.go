package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/mpmsim/internal/analysis"
	"github.com/san-kum/mpmsim/internal/export"
	"github.com/san-kum/mpmsim/internal/storage"
	"github.com/san-kum/mpmsim/internal/viz"
)

const maxPlots = 6

func sortedMetricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDIM\tPARTICLES\tSTEPS\tT\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dD\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Dim,
			run.Particles,
			run.Steps,
			viz.FormatSI(run.Time, "s"),
			status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n\n", meta.Scenario)

	if particles {
		return plotParticles(st, runID)
	}

	h, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	if len(h.Times) == 0 {
		return fmt.Errorf("no data to plot")
	}

	names := h.Names
	if plotMetric != "" {
		if _, ok := h.Series[plotMetric]; !ok {
			return fmt.Errorf("metric %q not recorded (have %v)", plotMetric, h.Names)
		}
		names = []string{plotMetric}
	}
	if len(names) > maxPlots {
		names = names[:maxPlots]
	}

	if svgPath != "" {
		if err := writeSVG(svgPath, func(w io.Writer) error {
			return export.SeriesSVG(w, h.Times, h.Series[names[0]], 800, 400, "#00ff00")
		}); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%s)\n\n", svgPath, names[0])
	}

	for _, name := range names {
		data := h.Series[name]
		if len(data) == 0 {
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s vs time (0 .. %s)", name, viz.FormatSI(h.Times[len(h.Times)-1], "s"))),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func plotParticles(st *storage.Store, runID string) error {
	recs, err := st.LoadParticles(runID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("run has no particle snapshot")
	}
	xs := make([]float64, len(recs))
	ys := make([]float64, len(recs))
	damaged := 0
	for i, r := range recs {
		xs[i], ys[i] = r.Position[0], r.Position[1]
		if r.Damage >= 0.5 {
			damaged++
		}
	}
	fmt.Println(analysis.NewScatter(xs, ys).ToASCII(80, 24))
	fmt.Printf("%d particles, %d damaged\n", len(recs), damaged)

	if svgPath == "" {
		return nil
	}
	pts := make([]export.Particle, len(recs))
	for i, r := range recs {
		pts[i] = export.Particle{X: r.Position[0], Y: r.Position[1], Body: r.Body, Damage: r.Damage}
	}
	if err := writeSVG(svgPath, func(w io.Writer) error {
		return export.ParticlesSVG(w, pts, 800, 0.5)
	}); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgPath)
	return nil
}

func writeSVG(path string, draw func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := draw(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	h, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	data, ok := h.Series[analyzeMetric]
	if !ok || len(data) < 4 {
		return fmt.Errorf("metric %q has too few samples in %s", analyzeMetric, runID)
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("metric: %s (%d samples)\n\n", analyzeMetric, len(data))

	freqs, power := analysis.Spectrum(h.Times, data, 256)
	if len(power) > 1 {
		plotData := power[:max(2, len(power)/4)]
		graph := asciigraph.Plot(plotData,
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (%s, 0 .. %.3g hz)", analyzeMetric, freqs[len(plotData)-1])),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	s := viz.Current()
	freq, amp := analysis.DominantFrequency(h.Times, data)
	fmt.Print(s.Row("dominant", fmt.Sprintf("%.4g hz (power %.3g)", freq, amp)))
	if p := analysis.Period(h.Times, data); p > 0 {
		fmt.Print(s.Row("period", viz.FormatSI(p, "s")))
	} else {
		fmt.Print(s.Row("period", "n/a"))
	}
	if rate, ok := analysis.GrowthRate(h.Times, data); ok {
		fmt.Print(s.Row("growth rate", fmt.Sprintf("%.4g /s", rate)))
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.ExportJSON(args[0], outPath); err != nil {
		return err
	}
	if outPath != "-" {
		fmt.Printf("exported %s to %s\n", args[0], outPath)
	}
	return nil
}
