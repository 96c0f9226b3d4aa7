package core

import (
	"errors"
	"fmt"
)

// Setup errors.
var (
	// ErrInvalidConfig indicates a malformed scenario or parameter record.
	ErrInvalidConfig = errors.New("mpm: invalid configuration")

	// ErrInvalidMaterial indicates a material parameter outside its valid range.
	ErrInvalidMaterial = errors.New("mpm: invalid material parameters")

	// ErrCellSize indicates a non-positive cell size or a domain length that is
	// not an integer number of cells.
	ErrCellSize = errors.New("mpm: invalid cell size")

	// ErrLengthMismatch indicates geometry arrays of different lengths.
	ErrLengthMismatch = errors.New("mpm: mismatched array lengths")

	// ErrNodeStressBC indicates a prescribed-stress condition assigned to a node.
	ErrNodeStressBC = errors.New("mpm: stress boundary conditions apply to particles only")
)

// Step errors.
var (
	// ErrCFL indicates the timestep exceeds the CFL stability limit.
	ErrCFL = errors.New("mpm: timestep violates CFL condition")

	// ErrNonFinite indicates NaN or Inf in a particle velocity, position or stress.
	ErrNonFinite = errors.New("mpm: non-finite value detected")

	// ErrMassUnderflow indicates a particle lost all grid support.
	ErrMassUnderflow = errors.New("mpm: node mass underflow")
)

// StepError wraps a step failure with the context needed to locate it.
type StepError struct {
	Step     int
	Time     float64
	Quantity string
	Index    int
	Wrapped  error
}

func (e *StepError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("step %d (t=%.6g): %s[%d]: %v", e.Step, e.Time, e.Quantity, e.Index, e.Wrapped)
	}
	return fmt.Sprintf("step %d (t=%.6g): %s: %v", e.Step, e.Time, e.Quantity, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
