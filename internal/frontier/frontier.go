// Package frontier provides the in-memory crawl task queue and the pending
// counter used to detect crawl completion.
package frontier

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/sitesoft/internal/crawler"
	"github.com/JakeFAU/sitesoft/internal/metrics"
)

// Frontier is an unbounded task queue. Every Submit increments the pending
// counter and every MarkDone decrements it; when the counter returns to zero
// the Frontier closes itself, which releases blocked takers and unblocks
// AwaitCompletion.
//
// Workers must submit all follow-up tasks for a task before calling MarkDone
// for it, otherwise the counter can reach zero while descendants are still
// being discovered.
type Frontier struct {
	mu        sync.Mutex
	items     []crawler.Task
	pending   int64
	active    int64
	submitted int64
	completed int64
	closed    bool

	wake chan struct{}
	done chan struct{}
}

// New constructs an empty Frontier.
func New() *Frontier {
	return &Frontier{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Submit enqueues a task.
func (f *Frontier) Submit(task crawler.Task) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return fmt.Errorf("submit %s: %w", task.URL, crawler.ErrFrontierClosed)
	}
	f.items = append(f.items, task)
	f.pending++
	f.submitted++
	f.mu.Unlock()
	metrics.ObserveSubmit()
	f.signal()
	return nil
}

// Take blocks until a task is available, the Frontier closes, or ctx ends.
func (f *Frontier) Take(ctx context.Context) (crawler.Task, error) {
	for {
		f.mu.Lock()
		if n := len(f.items); n > 0 {
			task := f.items[n-1]
			f.items[n-1] = crawler.Task{}
			f.items = f.items[:n-1]
			f.active++
			more := len(f.items) > 0
			f.mu.Unlock()
			if more {
				// Pass the wakeup on to the next waiter.
				f.signal()
			}
			return task, nil
		}
		if f.closed {
			f.mu.Unlock()
			return crawler.Task{}, crawler.ErrFrontierClosed
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return crawler.Task{}, fmt.Errorf("take canceled: %w", ctx.Err())
		case <-f.done:
		case <-f.wake:
		}
	}
}

// MarkDone records that one taken task has finished.
func (f *Frontier) MarkDone() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == 0 || f.pending == 0 {
		return crawler.ErrUnmatchedDone
	}
	f.active--
	f.pending--
	f.completed++
	metrics.ObserveDone()
	if f.pending == 0 {
		f.closed = true
		close(f.done)
	}
	return nil
}

// AwaitCompletion blocks until the pending counter reaches zero or ctx ends.
func (f *Frontier) AwaitCompletion(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("await completion: %w", ctx.Err())
	}
}

// Stats returns the current accounting counters.
func (f *Frontier) Stats() crawler.FrontierStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return crawler.FrontierStats{
		Submitted: f.submitted,
		Completed: f.completed,
		Pending:   f.pending,
	}
}

func (f *Frontier) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}
