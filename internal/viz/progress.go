package viz

import (
	"fmt"
	"io"
	"time"

	"github.com/san-kum/mpmsim/internal/sim"
)

// Progress is an observer printing a throttled one-line status to a
// terminal, for runs without the full live view.
type Progress struct {
	out       io.Writer
	name      string
	tmax      float64
	maxSteps  int
	interval  time.Duration
	lastFrame time.Time
}

// NewProgress reports at most frameRate lines per second.
func NewProgress(out io.Writer, name string, params sim.Parameters, frameRate int) *Progress {
	if frameRate <= 0 {
		frameRate = 10
	}
	return &Progress{
		out:      out,
		name:     name,
		tmax:     params.TMax,
		maxSteps: params.MaxSteps,
		interval: time.Second / time.Duration(frameRate),
	}
}

// Fraction returns how far f is through the run.
func (p *Progress) Fraction(f *sim.Frame) float64 {
	frac := 0.0
	if p.tmax > 0 {
		frac = f.Time / p.tmax
	}
	if p.maxSteps > 0 {
		frac = max(frac, float64(f.Step)/float64(p.maxSteps))
	}
	return min(frac, 1)
}

func (p *Progress) OnStep(f *sim.Frame) {
	frac := p.Fraction(f)
	if frac < 1 && time.Since(p.lastFrame) < p.interval {
		return
	}
	p.lastFrame = time.Now()

	fmt.Fprintf(p.out, "\r  %s %s %3.0f%%  t=%-10s step %-7d KE %.4g   ",
		p.name, ProgressBar(frac, 24), frac*100, FormatSI(f.Time, "s"), f.Step, f.Particles.KineticEnergy())
	if frac >= 1 {
		fmt.Fprintln(p.out)
	}
}

// Done terminates the status line.
func (p *Progress) Done() { fmt.Fprintln(p.out) }
