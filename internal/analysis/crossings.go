package analysis

// Crossings returns the interpolated times at which values rises through
// level.
func Crossings(times, values []float64, level float64) []float64 {
	var out []float64
	m := min(len(times), len(values))
	for i := 1; i < m; i++ {
		a, b := values[i-1], values[i]
		if a < level && b >= level {
			frac := (level - a) / (b - a)
			out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
		}
	}
	return out
}

// Period estimates the oscillation period of values about its mean from the
// spacing of mean up-crossings. It returns 0 with fewer than two crossings.
func Period(times, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	c := Crossings(times, values, mean)
	if len(c) < 2 {
		return 0
	}
	return (c[len(c)-1] - c[0]) / float64(len(c)-1)
}
