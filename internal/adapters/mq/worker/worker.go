// Package worker runs the rank index rebuild workers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/adapters/mq/queue"
	"github.com/rparrett/jornet/pkg/logger"
	"github.com/rparrett/jornet/pkg/metrics"
)

const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Rebuilder reloads one board's rank index from the stored projection.
type Rebuilder interface {
	Rebuild(ctx context.Context, boardID uuid.UUID, reason string) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes rebuild jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	rebuilder Rebuilder
	name      string

	shutdown chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, rebuilder Rebuilder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		rebuilder: rebuilder,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "rebuild failed",
					logger.String("leaderboard", job.LeaderboardID.String()),
					logger.String("reason", job.Reason),
					logger.Error(err),
				)
			}
		}
	}
}

// signalStop closes the shutdown channel exactly once, so Shutdown and
// Pool.Stop can overlap.
func (w *InMemoryWorker) signalStop() {
	w.stopOnce.Do(func() { close(w.shutdown) })
}

// Shutdown gracefully stops the worker. Safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.signalStop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob rebuilds one board.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error {
	start := time.Now()
	if err := w.rebuilder.Rebuild(ctx, job.LeaderboardID, job.Reason); err != nil {
		metrics.RecordErrorByComponent("rebuild_worker", "rebuild_error")
		return fmt.Errorf("rebuild leaderboard %s: %w", job.LeaderboardID, err)
	}
	metrics.RecordRebuild(float64(time.Since(start).Milliseconds()))
	w.logger.Info(ctx, "rank index rebuilt",
		logger.String("leaderboard", job.LeaderboardID.String()),
		logger.String("reason", job.Reason),
		logger.Int64("queue_wait_ms", time.Since(job.EnqueuedAt).Milliseconds()),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount falls back to
// the number of CPUs.
func NewPool(workerCount int, q Queue, rebuilder Rebuilder) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, rebuilder, WithName("worker-"+strconv.Itoa(i)))
	}
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers without draining the queue. Safe to call more
// than once and alongside per-worker Shutdown.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.shutdown) })
	for _, w := range p.workers {
		w.signalStop()
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for all workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
