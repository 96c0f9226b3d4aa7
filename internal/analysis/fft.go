package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Resample linearly interpolates (times, values) onto n uniform samples
// over [times[0], times[len-1]] and returns them with the sample spacing.
func Resample(times, values []float64, n int) ([]float64, float64) {
	m := min(len(times), len(values))
	if m < 2 || n < 2 {
		return nil, 0
	}
	t0, t1 := times[0], times[m-1]
	if !(t1 > t0) {
		return nil, 0
	}
	dt := (t1 - t0) / float64(n-1)

	out := make([]float64, n)
	j := 0
	for i := range out {
		t := t0 + float64(i)*dt
		for j < m-2 && times[j+1] < t {
			j++
		}
		span := times[j+1] - times[j]
		f := 0.0
		if span > 0 {
			f = math.Min(1, math.Max(0, (t-times[j])/span))
		}
		out[i] = values[j] + f*(values[j+1]-values[j])
	}
	return out, dt
}

func FFT(data []float64) []complex128 {
	return fft.FFTReal(data)
}

// PowerSpectrum returns the one-sided amplitude spectrum of data after
// removing the mean and applying a Hann window.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	x := make([]float64, n)
	for i, v := range data {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	spec := FFT(x)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// Spectrum resamples a series onto n points and returns the bin
// frequencies with their amplitudes.
func Spectrum(times, values []float64, n int) (freqs, power []float64) {
	x, dt := Resample(times, values, n)
	if x == nil {
		return nil, nil
	}
	power = PowerSpectrum(x)
	freqs = make([]float64, len(power))
	for k := range freqs {
		freqs[k] = float64(k) / (float64(n) * dt)
	}
	return freqs, power
}

// DominantFrequency returns the frequency of the strongest non-DC bin.
func DominantFrequency(times, values []float64) (freq, amplitude float64) {
	n := 256
	if len(times) > n {
		n = len(times)
	}
	freqs, power := Spectrum(times, values, n)
	for k := 1; k < len(power); k++ {
		if power[k] > amplitude {
			freq, amplitude = freqs[k], power[k]
		}
	}
	return freq, amplitude
}
