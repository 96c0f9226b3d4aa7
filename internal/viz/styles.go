package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles of one theme.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Active  lipgloss.Style
	Muted   lipgloss.Style
	Good    lipgloss.Style
	Warn    lipgloss.Style
	Bad     lipgloss.Style
	Panel   lipgloss.Style
	Stats   lipgloss.Style
	Graph   lipgloss.Style
	KeyHint lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).MarginBottom(1),
		Label:  lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		Value:  lipgloss.NewStyle().Foreground(t.Text),
		Active: lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Muted:  lipgloss.NewStyle().Foreground(t.Muted),
		Good:   lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Bad:    lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Stats: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Border).
			Padding(1, 2).
			Width(46),
		Graph:   lipgloss.NewStyle().Foreground(t.Primary).Padding(1, 0),
		KeyHint: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
	}
}

// Current returns the styles of the current theme.
func Current() Styles { return NewStyles(CurrentTheme) }

// Row renders a label/value line.
func (s Styles) Row(label, value string) string {
	return s.Label.Render(label) + s.Value.Render(value) + "\n"
}

// AnimatedSpinner returns frame of animated spinner
func AnimatedSpinner(frame int) string {
	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	return spinners[frame%len(spinners)]
}

// ProgressBar renders a fraction in [0, 1] as a bar of the given width.
func ProgressBar(fraction float64, width int) string {
	s := Current()
	filled := int(math.Round(fraction * float64(width)))
	filled = max(0, min(width, filled))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case fraction >= 1:
		return s.Good.Render(bar)
	case fraction > 0.4:
		return s.Warn.Render(bar)
	}
	return s.Muted.Render(bar)
}

// Sparkline renders values as block characters, sampled to width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := max(1, len(values)/width)
	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / rng
		idx := max(0, min(len(chars)-1, int(norm*float64(len(chars)-1))))
		b.WriteRune(chars[idx])
	}
	return b.String()
}

// Separator is a muted horizontal rule.
func Separator(width int) string {
	return Current().Muted.Render(strings.Repeat("─", max(width, 0)))
}

// FormatSI prints v with three significant digits and an SI prefix.
func FormatSI(v float64, unit string) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%g %s", v, unit)
	}
	prefixes := []struct {
		exp    int
		prefix string
	}{
		{9, "G"}, {6, "M"}, {3, "k"}, {0, ""}, {-3, "m"}, {-6, "µ"}, {-9, "n"},
	}
	e := int(math.Floor(math.Log10(math.Abs(v))))
	for _, p := range prefixes {
		if e >= p.exp {
			return fmt.Sprintf("%.3g %s%s", v/math.Pow10(p.exp), p.prefix, unit)
		}
	}
	return fmt.Sprintf("%.3g %s", v, unit)
}
