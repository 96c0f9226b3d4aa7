// Package export renders stored runs as standalone SVG documents.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Particle is one marker of a particle plot.
type Particle struct {
	X, Y   float64
	Body   int
	Damage float64
}

var bodyColors = []string{"#00d7ff", "#ffaf00", "#87ff5f", "#d787ff", "#ff87af", "#5fafff"}

const damagedColor = "#ff3030"

// bounds is a padded data box mapped onto a width x height image with y up.
type bounds struct {
	minX, minY, rangeX, rangeY float64
	width, height              int
}

func newBounds(xs, ys []float64, width, height int, pad float64) bounds {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i := range xs {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * pad
	minY -= rangeY * pad
	return bounds{
		minX: minX, minY: minY,
		rangeX: rangeX * (1 + 2*pad), rangeY: rangeY * (1 + 2*pad),
		width: width, height: height,
	}
}

func (b bounds) at(x, y float64) (float64, float64) {
	px := (x - b.minX) / b.rangeX * float64(b.width)
	py := float64(b.height) - (y-b.minY)/b.rangeY*float64(b.height)
	return px, py
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

// ParticlesSVG draws one circle per particle, coloured by body. Particles
// with damage at or above damaged are drawn red. Plot aspect follows the
// data so bodies keep their shape.
func ParticlesSVG(w io.Writer, pts []Particle, width int, damaged float64) error {
	if len(pts) == 0 {
		return fmt.Errorf("no particles to draw")
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	b := newBounds(xs, ys, width, width, 0.05)
	height := int(math.Round(float64(width) * b.rangeY / b.rangeX))
	if height < 1 {
		height = 1
	}
	b.height = height

	r := math.Max(1, 0.6*float64(width)/math.Sqrt(float64(len(pts)))/4)

	var sb strings.Builder
	header(&sb, width, height)
	for _, p := range pts {
		color := bodyColors[p.Body%len(bodyColors)]
		if damaged > 0 && p.Damage >= damaged {
			color = damagedColor
		}
		cx, cy := b.at(p.X, p.Y)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, cx, cy, r, color)
	}
	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesSVG draws values against times as a single polyline.
func SeriesSVG(w io.Writer, times, values []float64, width, height int, stroke string) error {
	n := min(len(times), len(values))
	if n < 2 {
		return fmt.Errorf("series needs at least 2 samples, got %d", n)
	}
	b := newBounds(times[:n], values[:n], width, height, 0.1)

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, stroke)
	for i := 0; i < n; i++ {
		x, y := b.at(times[i], values[i])
		if i == 0 {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
