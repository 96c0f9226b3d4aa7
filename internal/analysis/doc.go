// Package analysis post-processes diagnostic series recorded by a run.
//
//   - [PowerSpectrum], [DominantFrequency]: spectrum of a series resampled
//     onto a uniform time base
//   - [Crossings], [Period]: interpolated up-crossings of a level
//   - [GrowthRate]: exponential growth rate from a log-linear fit, used to
//     flag runaway energy
//   - [Scatter]: ASCII scatter of paired values, e.g. particle positions
//
// Runs with a CFL-derived timestep record frames at uneven times, so every
// spectral routine resamples first:
//
//	freq, power := analysis.DominantFrequency(h.Times, h.Series["kinetic_energy"])
package analysis
