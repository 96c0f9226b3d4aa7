// Package core holds the error vocabulary shared by every stage of the
// material point solver.
//
// Errors fall into two groups:
//
//   - setup errors ([ErrInvalidConfig], [ErrInvalidMaterial], [ErrCellSize],
//     [ErrLengthMismatch], [ErrNodeStressBC]) are returned before the first
//     step and mean the run must not start;
//   - step errors ([ErrCFL], [ErrNonFinite], [ErrMassUnderflow]) are wrapped
//     in a [StepError] carrying the failing step, time, quantity and entity.
//
// Callers match either group with [errors.Is]:
//
//	if errors.Is(err, core.ErrNonFinite) {
//	    var se *core.StepError
//	    errors.As(err, &se)
//	    log.Printf("blew up at step %d on %s", se.Step, se.Quantity)
//	}
package core
