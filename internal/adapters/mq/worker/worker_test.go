package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rparrett/jornet/internal/adapters/mq/queue"
)

type fakeRebuilder struct {
	mu     sync.Mutex
	boards []uuid.UUID
	err    error
}

func (f *fakeRebuilder) Rebuild(_ context.Context, boardID uuid.UUID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.boards = append(f.boards, boardID)
	return nil
}

func (f *fakeRebuilder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.boards)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerProcessesJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemoryTestQueue()
	rb := &fakeRebuilder{}
	w := NewInMemoryWorker(q, rb, WithName("test-worker"))
	go w.Run(ctx)

	q.Enqueue(ctx, queue.Job{LeaderboardID: uuid.New(), Reason: "startup"})
	q.Enqueue(ctx, queue.Job{LeaderboardID: uuid.New(), Reason: "inconsistency"})

	waitFor(t, func() bool { return rb.count() == 2 })

	sctx, scancel := context.WithTimeout(ctx, time.Second)
	defer scancel()
	if err := w.Shutdown(sctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestWorkerSurvivesRebuildErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemoryTestQueue()
	rb := &fakeRebuilder{err: errors.New("projection unavailable")}
	w := NewInMemoryWorker(q, rb)
	go w.Run(ctx)

	q.Enqueue(ctx, queue.Job{LeaderboardID: uuid.New()})

	// The failing job must not kill the loop; a subsequent good job runs.
	rb.mu.Lock()
	rb.err = nil
	rb.mu.Unlock()
	q.Enqueue(ctx, queue.Job{LeaderboardID: uuid.New()})

	waitFor(t, func() bool { return rb.count() >= 1 })
}

func TestPoolDrainsQueueOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemoryTestQueue()
	rb := &fakeRebuilder{}
	pool := NewPool(3, q, rb)
	pool.Start(ctx)

	const jobs = 10
	for i := 0; i < jobs; i++ {
		q.Enqueue(ctx, queue.Job{LeaderboardID: uuid.New()})
	}

	waitFor(t, func() bool { return rb.count() == jobs })

	if err := pool.Shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if !q.IsClosed() {
		t.Error("pool shutdown should close the queue")
	}
}

func TestPoolStopIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemoryTestQueue()
	rb := &fakeRebuilder{}
	pool := NewPool(2, q, rb)
	pool.Start(ctx)

	pool.Stop()
	pool.Stop()

	sctx, scancel := context.WithTimeout(ctx, time.Second)
	defer scancel()
	for _, w := range pool.workers {
		if err := w.Shutdown(sctx); err != nil {
			t.Errorf("shutdown after stop: %v", err)
		}
	}
}

// NewInMemoryTestQueue builds a small queue suitable for tests.
func NewInMemoryTestQueue() *queue.InMemoryQueue {
	return queue.NewInMemoryQueue(queue.WithCapacity(64), queue.WithBufferSize(64))
}
