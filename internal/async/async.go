// Package async provides the bounded-concurrency primitives the mesher's
// pipeline is built on: a throttler limiting how many geometry jobs run at
// once, and a single-shot task wrapper around a job's result.
package async

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Throttler bounds the number of concurrently running jobs using a
// weighted semaphore, and lets callers cancel every job still waiting to
// start.
type Throttler struct {
	sem *semaphore.Weighted

	mu     sync.Mutex
	cancel context.CancelFunc
	ctx    context.Context
}

// NewThrottler builds a Throttler allowing at most maxConcurrent jobs to
// run at the same time. A maxConcurrent below 1 is raised to 1; it is not
// rejected.
func NewThrottler(maxConcurrent int64) *Throttler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Throttler{sem: semaphore.NewWeighted(maxConcurrent), ctx: ctx, cancel: cancel}
}

// TryAcquire attempts to reserve a slot without blocking, returning false
// if the throttler is saturated.
func (t *Throttler) TryAcquire() bool {
	return t.sem.TryAcquire(1)
}

// Acquire blocks until a slot is free or the throttler's context (or the
// supplied one) is cancelled, whichever comes first.
func (t *Throttler) Acquire(ctx context.Context) error {
	t.mu.Lock()
	internal := t.ctx
	t.mu.Unlock()

	merged, stop := mergeCancel(ctx, internal)
	defer stop()
	return t.sem.Acquire(merged, 1)
}

// Release frees a previously acquired slot.
func (t *Throttler) Release() {
	t.sem.Release(1)
}

// CancelAll cancels every job currently blocked in Acquire, waiting for a
// free slot. Jobs that already acquired a slot and are running are left to
// finish; CancelAll only unblocks queued waiters.
func (t *Throttler) CancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel()
	t.ctx, t.cancel = context.WithCancel(context.Background())
}

func mergeCancel(a, b context.Context) (context.Context, func()) {
	merged, cancel := context.WithCancel(a)
	stop := make(chan struct{})
	go func() {
		select {
		case <-b.Done():
			cancel()
		case <-stop:
		}
	}()
	return merged, func() {
		close(stop)
		cancel()
	}
}

// state is a Task's lifecycle stage.
type state int

const (
	unstarted state = iota
	started
	finished
)

// Task wraps a single job so it runs at most once, with its result
// memoised for every caller awaiting it.
type Task[T any] struct {
	mu    sync.Mutex
	state state
	done  chan struct{}

	job func(ctx context.Context) (T, error)

	result T
	err    error
}

// NewTask builds a Task around job. The job does not run until Start is
// called.
func NewTask[T any](job func(ctx context.Context) (T, error)) *Task[T] {
	return &Task[T]{job: job, done: make(chan struct{})}
}

// Start begins the job exactly once; subsequent calls are no-ops. It
// returns immediately, the job runs asynchronously.
func (t *Task[T]) Start(ctx context.Context) {
	t.mu.Lock()
	if t.state != unstarted {
		t.mu.Unlock()
		return
	}
	t.state = started
	t.mu.Unlock()

	go func() {
		res, err := t.job(ctx)
		t.mu.Lock()
		t.result = res
		t.err = err
		t.state = finished
		t.mu.Unlock()
		close(t.done)
	}()
}

// AwaitResult blocks until the task finishes (starting it first if
// necessary) or ctx is cancelled.
func (t *Task[T]) AwaitResult(ctx context.Context) (T, error) {
	t.Start(ctx)
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("async: task cancelled: %w", ctx.Err())
	}
}

// GetResultSync returns the task's result if it has already finished,
// without blocking or starting it.
func (t *Task[T]) GetResultSync() (result T, err error, ready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != finished {
		return result, nil, false
	}
	return t.result, t.err, true
}

// IsStarted reports whether Start has been called.
func (t *Task[T]) IsStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state != unstarted
}

// IsFinished reports whether the job has completed.
func (t *Task[T]) IsFinished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == finished
}
