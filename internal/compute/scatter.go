package compute

import "github.com/san-kum/mpmsim/internal/tensor"

// Buffer is one set of node accumulators.
type Buffer struct {
	Mass     []float64
	Momentum []tensor.Vec
	Force    []tensor.Vec
	Normal   []tensor.Vec
}

func NewBuffer(n int) *Buffer {
	return &Buffer{
		Mass:     make([]float64, n),
		Momentum: make([]tensor.Vec, n),
		Force:    make([]tensor.Vec, n),
		Normal:   make([]tensor.Vec, n),
	}
}

func (b *Buffer) Len() int { return len(b.Mass) }

func (b *Buffer) resetRange(start, end int) {
	for i := start; i < end; i++ {
		b.Mass[i] = 0
		b.Momentum[i] = tensor.Vec{}
		b.Force[i] = tensor.Vec{}
		b.Normal[i] = tensor.Vec{}
	}
}

// Scatter owns one Buffer per worker plus the reduced totals.
type Scatter struct {
	pool  *Pool
	local []*Buffer
	Total *Buffer
}

// NewScatter allocates buffers of n slots for every worker of pool.
func NewScatter(pool *Pool, n int) *Scatter {
	s := &Scatter{pool: pool, local: make([]*Buffer, pool.Workers()), Total: NewBuffer(n)}
	for w := range s.local {
		s.local[w] = NewBuffer(n)
	}
	return s
}

// Run accumulates items into the worker buffers with fn, then sums the
// buffers into Total in worker order.
func (s *Scatter) Run(items int, fn func(buf *Buffer, start, end int)) {
	n := s.Total.Len()
	used := make([]bool, len(s.local))

	s.pool.ParallelFor(items, func(worker, start, end int) {
		buf := s.local[worker]
		buf.resetRange(0, n)
		used[worker] = true
		fn(buf, start, end)
	})

	s.pool.ParallelFor(n, func(_, start, end int) {
		s.Total.resetRange(start, end)
		for w, buf := range s.local {
			if !used[w] {
				continue
			}
			for i := start; i < end; i++ {
				s.Total.Mass[i] += buf.Mass[i]
				s.Total.Momentum[i] = s.Total.Momentum[i].Add(buf.Momentum[i])
				s.Total.Force[i] = s.Total.Force[i].Add(buf.Force[i])
				s.Total.Normal[i] = s.Total.Normal[i].Add(buf.Normal[i])
			}
		}
	})
}
