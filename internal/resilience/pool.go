package resilience

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"
)

// JobObserver is notified when a job takes and releases a worker slot
type JobObserver interface {
	JobStarted()
	JobFinished()
}

// Pool bounds how many CPU-bound analytics jobs run at once and gives each a deadline
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	timeout  time.Duration
	observer JobObserver
}

// NewPool creates a pool of size workers. size <= 0 uses GOMAXPROCS,
// timeout <= 0 disables the per-job deadline. observer may be nil.
func NewPool(size int, timeout time.Duration, observer JobObserver) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:      semaphore.NewWeighted(int64(size)),
		size:     size,
		timeout:  timeout,
		observer: observer,
	}
}

func (p *Pool) Size() int { return p.size }

// Do waits for a free slot and runs fn with the job deadline applied.
// It returns ctx.Err() if ctx ends while waiting.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	if p.observer != nil {
		p.observer.JobStarted()
		defer p.observer.JobFinished()
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	return fn(ctx)
}

// Submit runs fn in the pool and returns its result
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
