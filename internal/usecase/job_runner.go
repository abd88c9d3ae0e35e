package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
)

const defaultJobWorkers = 2

var ErrRunnerClosed = errors.New("job runner is shut down")

// JobRunner runs background jobs on a bounded ants pool. Jobs receive a
// context that is cancelled only when Shutdown runs out of time.
type JobRunner struct {
	pool   *ants.Pool
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
	closed atomic.Bool
	logger *logging.Logger
}

func NewJobRunner(workers int, logger *logging.Logger) (*JobRunner, error) {
	if workers <= 0 {
		workers = defaultJobWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create job pool: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &JobRunner{
		pool:   pool,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}, nil
}

// Submit queues fn and returns a channel closed once fn has returned. It
// fails fast when every worker is busy.
func (r *JobRunner) Submit(name string, fn func(ctx context.Context)) (<-chan struct{}, error) {
	if r.closed.Load() {
		return nil, ErrRunnerClosed
	}

	done := make(chan struct{})
	r.jobs.Add(1)
	if err := r.pool.Submit(func() {
		defer r.jobs.Done()
		defer close(done)
		defer func() {
			if recovered := recover(); recovered != nil {
				r.logger.Error("background job panicked", "job", name, "panic", fmt.Sprint(recovered))
			}
		}()
		fn(r.ctx)
	}); err != nil {
		r.jobs.Done()
		if errors.Is(err, ants.ErrPoolOverload) {
			return nil, fmt.Errorf("%w: job runner at capacity", ErrDependencyUnavailable)
		}
		if errors.Is(err, ants.ErrPoolClosed) {
			return nil, ErrRunnerClosed
		}
		return nil, fmt.Errorf("submit job %s: %w", name, err)
	}
	return done, nil
}

func (r *JobRunner) Running() int {
	return r.pool.Running()
}

// Shutdown stops accepting jobs and waits for in-flight ones. When ctx ends
// first the remaining jobs are cancelled and ctx.Err() is returned.
func (r *JobRunner) Shutdown(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	drained := make(chan struct{})
	go func() {
		r.jobs.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		r.logger.Warn("job runner shutdown deadline reached, cancelling jobs", "running", r.pool.Running())
		r.cancel()
	}
	r.cancel()
	r.pool.Release()
	return err
}
