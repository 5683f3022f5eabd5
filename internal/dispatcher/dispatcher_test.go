package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs *atomic.Int32
}

func (r countingRunner) Run(context.Context) error {
	r.runs.Add(1)
	return nil
}

type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

type failingRunner struct{ err error }

func (r failingRunner) Run(context.Context) error { return r.err }

func TestDispatcherRunsEveryWorker(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	workers := make([]Runner, 5)
	for i := range workers {
		workers[i] = countingRunner{runs: &runs}
	}
	d := New(workers)

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, int32(5), runs.Load())
	assert.Equal(t, 5, d.Size())
}

func TestDispatcherErrorCancelsPool(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	d := New([]Runner{blockingRunner{}, blockingRunner{}, failingRunner{err: boom}})

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after worker error")
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	t.Parallel()

	d := New([]Runner{blockingRunner{}, blockingRunner{}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}

func TestDispatcherWithoutWorkers(t *testing.T) {
	t.Parallel()

	require.Error(t, New(nil).Run(context.Background()))
}
