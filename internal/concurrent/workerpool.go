// Package concurrent runs independent units of work with bounded parallelism.
package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool runs functions on at most workerCount goroutines.
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{workerCount: workerCount}
}

// Workers returns the concurrency limit.
func (wp *WorkerPool) Workers() int {
	return wp.workerCount
}

// RunEach executes every function without cancelling the others on failure.
// The returned slice is aligned with functions; entries are nil on success.
// Functions not yet started when ctx is cancelled report ctx.Err().
func (wp *WorkerPool) RunEach(ctx context.Context, functions ...func(context.Context) error) []error {
	if len(functions) == 0 {
		return nil
	}

	errs := make([]error, len(functions))
	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for i, fn := range functions {
		i, fn := i, fn
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(ctx)
			return nil
		})
	}

	_ = g.Wait()
	return errs
}
