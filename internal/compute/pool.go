package compute

import (
	"runtime"
	"sync"
)

// DefaultMinChunk is the smallest range handed to a goroutine.
const DefaultMinChunk = 256

type Pool struct {
	workers  int
	minChunk int
}

// NewPool returns a pool of the given width; workers <= 0 uses every CPU.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers, minChunk: DefaultMinChunk}
}

func (p *Pool) Workers() int { return p.workers }

// WithMinChunk sets the serial cutoff and returns p.
func (p *Pool) WithMinChunk(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p.minChunk = n
	return p
}

// chunks returns the number of goroutines used for n items.
func (p *Pool) chunks(n int) int {
	if n <= p.minChunk || p.workers <= 1 {
		return 1
	}
	w := p.workers
	if n/p.minChunk < w {
		w = n / p.minChunk
	}
	if w < 1 {
		w = 1
	}
	return w
}

// ParallelFor runs fn over [0, n) split into contiguous chunks. worker is the
// chunk number, always below Workers().
func (p *Pool) ParallelFor(n int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	workers := p.chunks(n)
	if workers == 1 {
		fn(0, 0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(worker, s, e int) {
			defer wg.Done()
			fn(worker, s, e)
		}(w, start, end)
	}

	wg.Wait()
}

// ParallelReduce runs fn over chunks of [0, n) and returns the per-worker
// partial results in worker order.
func ParallelReduce[T any](p *Pool, n int, fn func(start, end int) T) []T {
	parts := make([]T, p.Workers())
	used := make([]bool, p.Workers())
	p.ParallelFor(n, func(worker, start, end int) {
		parts[worker] = fn(start, end)
		used[worker] = true
	})
	out := parts[:0]
	for w, ok := range used {
		if ok {
			out = append(out, parts[w])
		}
	}
	return out
}
