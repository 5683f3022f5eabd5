// Package dispatcher runs a fixed pool of crawl workers.
package dispatcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Runner is one execution unit of the pool.
type Runner interface {
	Run(ctx context.Context) error
}

// Dispatcher fans a crawl out to a pool of workers.
type Dispatcher struct {
	workers []Runner
}

// New creates a Dispatcher over the given workers.
func New(workers []Runner) *Dispatcher {
	return &Dispatcher{workers: workers}
}

// Size reports the number of workers in the pool.
func (d *Dispatcher) Size() int {
	return len(d.workers)
}

// Run starts all workers and blocks until every one has returned. The first
// worker error cancels the others and is returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	if len(d.workers) == 0 {
		return fmt.Errorf("dispatcher has no workers")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range d.workers {
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	return nil
}
