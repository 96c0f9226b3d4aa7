// Package compute provides the shared-memory parallel primitives of the
// solver.
//
//   - Pool: splits index ranges into contiguous chunks, one goroutine each
//   - Scatter: per-worker node buffers reduced in worker order, so the
//     particle-to-grid transfer is race free and bitwise reproducible for a
//     fixed worker count
package compute
