package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/domain/transaction"
	"github.com/transfer-antifraud-saga/internal/platform/persistence"
)

type StatusCoordinatorImpl struct {
	db       persistence.TxRunner
	repo     transaction.Repository
	refs     transaction.ReferenceRepository
	cache    transaction.Cache
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

func NewStatusCoordinator(
	db persistence.TxRunner,
	repo transaction.Repository,
	refs transaction.ReferenceRepository,
	cache transaction.Cache,
	recorder Recorder,
	logger *slog.Logger,
) *StatusCoordinatorImpl {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &StatusCoordinatorImpl{
		db:       db,
		repo:     repo,
		refs:     refs,
		cache:    cache,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ApplyVerdict locks the transaction row for the length of one database
// transaction and moves it to the verdict's status. A verdict equal to the
// stored terminal status changes nothing and returns Applied(false).
func (c *StatusCoordinatorImpl) ApplyVerdict(ctx context.Context, event events.TransactionStatusUpdatedEvent) (Applied, error) {
	if err := event.Validate(); err != nil {
		return false, err
	}
	target, err := transaction.ParseStatus(string(event.Status))
	if err != nil {
		return false, err
	}

	logger := c.logger.With(
		"transaction_id", event.TransactionExternalID.String(),
		"event_id", event.EventID,
		"target_status", string(target),
	)

	var updated *transaction.Transaction
	applied := Applied(false)
	err = c.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := c.repo.WithTx(tx)

		t, err := repo.LockForUpdate(ctx, event.TransactionExternalID)
		if err != nil {
			return err
		}

		previousVersion := t.Version
		result, err := t.TransitionTo(target, c.now())
		if err != nil {
			return err
		}
		if result == transaction.TransitionAlreadyApplied {
			return nil
		}

		def, err := c.refs.WithTx(tx).StatusByName(ctx, target)
		if err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, t, def.ID, previousVersion); err != nil {
			return err
		}

		updated = t
		applied = true
		return nil
	})
	if err != nil {
		logger.Error("Failed to apply verdict", "error", err)
		return false, err
	}

	c.recorder.StatusTransition(string(target), bool(applied))
	if !applied {
		logger.Info("Verdict already applied, nothing to do")
		return false, nil
	}

	logger.Info("Transaction status updated", "reason", event.Reason, "version", updated.Version)
	if err := c.cache.PutView(ctx, updated.Version, updated.View()); err != nil {
		logger.Warn("Failed to refresh cached transaction", "error", err)
	}
	if err := c.cache.InvalidateLists(ctx); err != nil {
		logger.Warn("Failed to invalidate cached pages", "error", err)
	}
	return true, nil
}
