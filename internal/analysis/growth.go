package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// GrowthRate fits ln|v| = a + r·t over the samples with non-zero values
// and returns r. A clearly positive rate on total energy marks a run that
// is going unstable. ok is false with fewer than three usable samples.
func GrowthRate(times, values []float64) (rate float64, ok bool) {
	var ts, logs []float64
	for i := 0; i < min(len(times), len(values)); i++ {
		v := math.Abs(values[i])
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		ts = append(ts, times[i])
		logs = append(logs, math.Log(v))
	}
	if len(ts) < 3 {
		return 0, false
	}
	_, rate = stat.LinearRegression(ts, logs, nil, false)
	return rate, !math.IsNaN(rate)
}
