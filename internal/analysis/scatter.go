package analysis

import "strings"

type Point struct{ X, Y float64 }

// Scatter is a set of paired values for a terminal plot.
type Scatter struct {
	Points []Point
}

// NewScatter pairs xs and ys up to the shorter length.
func NewScatter(xs, ys []float64) *Scatter {
	n := min(len(xs), len(ys))
	s := &Scatter{Points: make([]Point, n)}
	for i := 0; i < n; i++ {
		s.Points[i] = Point{xs[i], ys[i]}
	}
	return s
}

// ToASCII renders the points on a width x height character canvas with
// 10% padding. Axes are drawn where zero is visible.
func (s *Scatter) ToASCII(width, height int) string {
	if s == nil || len(s.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := s.Points[0].X, s.Points[0].X
	minY, maxY := s.Points[0].Y, s.Points[0].Y
	for _, p := range s.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range s.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
