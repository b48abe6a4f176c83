package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/transfer-antifraud-saga/internal/domain/events"
)

// QueueObserver is told how many tasks are waiting for a worker
type QueueObserver interface {
	WorkerQueueDepth(waiting int)
}

// WorkerPoolCoordinator bounds how many verdicts are applied concurrently.
// Callers block until their verdict has been applied.
type WorkerPoolCoordinator struct {
	base     StatusCoordinator
	pool     *ants.Pool
	observer QueueObserver
	logger   *slog.Logger
}

type verdictOutcome struct {
	applied Applied
	err     error
}

func NewWorkerPoolCoordinator(base StatusCoordinator, size int, observer QueueObserver, logger *slog.Logger) (*WorkerPoolCoordinator, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolCoordinator{
		base:     base,
		pool:     pool,
		observer: observer,
		logger:   logger,
	}, nil
}

func (w *WorkerPoolCoordinator) ApplyVerdict(ctx context.Context, event events.TransactionStatusUpdatedEvent) (Applied, error) {
	done := make(chan verdictOutcome, 1)

	if w.observer != nil {
		w.observer.WorkerQueueDepth(w.pool.Waiting())
	}

	err := w.pool.Submit(func() {
		applied, err := w.base.ApplyVerdict(ctx, event)
		done <- verdictOutcome{applied: applied, err: err}
	})
	if err != nil {
		w.logger.Error("Failed to submit verdict to worker pool",
			"transaction_id", event.TransactionExternalID.String(),
			"error", err,
		)
		return false, err
	}

	select {
	case out := <-done:
		return out.applied, out.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Shutdown waits up to timeout for running verdicts, then releases the pool
func (w *WorkerPoolCoordinator) Shutdown(timeout time.Duration) {
	w.logger.Info("Shutting down worker pool", "running_workers", w.pool.Running())
	if err := w.pool.ReleaseTimeout(timeout); err != nil {
		w.logger.Warn("Worker pool did not drain before timeout", "error", err)
	}
}

func (w *WorkerPoolCoordinator) Running() int {
	return w.pool.Running()
}

func (w *WorkerPoolCoordinator) Capacity() int {
	return w.pool.Cap()
}
