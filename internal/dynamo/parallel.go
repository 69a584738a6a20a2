package dynamo

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers leaves one core for the control goroutine.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Pool runs independent index-addressed tasks on a bounded number of
// goroutines. Results are written to per-index slots, so the caller sees them
// in index order regardless of completion order.
type Pool struct {
	workers int
}

// NewPool creates a pool. workers <= 0 selects DefaultWorkers; 1 runs tasks
// sequentially on the calling goroutine.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Pool{workers: workers}
}

func (p *Pool) Workers() int { return p.workers }

// Run calls fn for every index in [0, n) and blocks until all calls return.
// A failing or panicking task never cancels its siblings; its slot in the
// returned slice holds a *WorkerError and every other slot is nil.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	if p.workers == 1 || n == 1 {
		for i := 0; i < n; i++ {
			errs[i] = call(ctx, i, fn)
		}
		return errs
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			errs[idx] = call(ctx, idx, fn)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

func call(ctx context.Context, i int, fn func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerError{Index: i, Wrapped: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := fn(ctx, i); err != nil {
		return &WorkerError{Index: i, Wrapped: err}
	}
	return nil
}
