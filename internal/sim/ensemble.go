package sim

import (
	"context"
	"sync"
)

// Ensemble runs independent solvers concurrently, e.g. a parameter sweep
// over one scenario.
type Ensemble struct {
	solvers []*Solver
	// MaxParallel bounds the number of concurrent runs; zero runs all at once.
	MaxParallel int
}

func NewEnsemble(solvers ...*Solver) *Ensemble {
	return &Ensemble{solvers: solvers}
}

func (e *Ensemble) Add(s *Solver) { e.solvers = append(e.solvers, s) }

func (e *Ensemble) Len() int { return len(e.solvers) }

// Run runs every solver and returns the results in insertion order. Results
// of failed runs are partial; errs[i] holds the error of run i.
func (e *Ensemble) Run(ctx context.Context) (results []*Result, errs []error) {
	results = make([]*Result, len(e.solvers))
	errs = make([]error, len(e.solvers))

	limit := e.MaxParallel
	if limit <= 0 {
		limit = len(e.solvers)
	}
	sem := make(chan struct{}, max(limit, 1))

	var wg sync.WaitGroup
	for i, s := range e.solvers {
		wg.Add(1)
		go func(idx int, s *Solver) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx], errs[idx] = s.Run(ctx)
		}(i, s)
	}

	wg.Wait()
	return results, errs
}

// FirstError returns the first non-nil error of errs.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
