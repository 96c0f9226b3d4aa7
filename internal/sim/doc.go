// Package sim drives the explicit MPM timestep.
//
// One Step runs, in order: particle stress conditions, GIMP stencils,
// particle-to-grid scatter, the leap-frog grid update, contact between
// bodies, node velocity conditions, and the grid-to-particle gather with the
// constitutive update. The Solver owns the grid and particle arenas for the
// lifetime of a run; phases receive them by reference.
//
// Run repeats Step until tmax or max_steps, feeding Metrics and Observers
// every output_every steps. A numerical failure stops the run and comes
// back as a *core.StepError naming the step, time, quantity and index.
package sim
