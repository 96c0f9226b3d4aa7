// Package viz renders running and finished simulations in the terminal.
//
//   - [Model]: Bubble Tea view that steps a solver, draws its particles on a
//     braille [Canvas] and plots kinetic energy with asciigraph
//   - [Progress]: single-line observer for non-interactive runs
//   - [Camera], [Scene]: perspective projection for 3-D grids
//   - [Theme], [Styles]: lipgloss palettes shared with the CLI
//
// # Key Bindings
//
//	Space - Pause/Resume
//	Tab   - Select parameter, Up/Down to tune it
//	+/-   - Solver steps per frame
//	[ ]   - Replay recorded frames
//	D     - Show damaged particles only
//	G     - Toggle GIF recording
//	T     - Cycle themes
//	?     - Help overlay
package viz
