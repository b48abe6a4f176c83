package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/domain/outbox"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/domain/transaction"
	"github.com/transfer-antifraud-saga/internal/platform/persistence"
)

type CreationServiceImpl struct {
	db           persistence.TxRunner
	repo         transaction.Repository
	refs         transaction.ReferenceRepository
	outboxRepo   outbox.Repository
	cache        transaction.Cache
	recorder     Recorder
	createdTopic string
	logger       *slog.Logger
	now          func() time.Time
}

func NewCreationService(
	db persistence.TxRunner,
	repo transaction.Repository,
	refs transaction.ReferenceRepository,
	outboxRepo outbox.Repository,
	cache transaction.Cache,
	recorder Recorder,
	createdTopic string,
	logger *slog.Logger,
) *CreationServiceImpl {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CreationServiceImpl{
		db:           db,
		repo:         repo,
		refs:         refs,
		outboxRepo:   outboxRepo,
		cache:        cache,
		recorder:     recorder,
		createdTopic: createdTopic,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a PENDING transaction and its transaction-created event in one
// database transaction. A request carrying an idempotency key that is already
// stored returns the stored transaction and writes nothing.
func (s *CreationServiceImpl) Create(ctx context.Context, params transaction.CreateParams) (*CreateResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger
	if key := params.NormalizedKey(); key != nil {
		logger = logger.With("idempotency_key", *key)
	}

	var result *CreateResult
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		refs := s.refs.WithTx(tx)
		repo := s.repo.WithTx(tx)

		transferType, err := refs.TransferTypeByID(ctx, params.TransferTypeID)
		if err != nil {
			return err
		}
		pending, err := refs.StatusByName(ctx, transaction.StatusPending)
		if err != nil {
			return err
		}

		now := s.now()
		t, err := transaction.New(params, *transferType, now)
		if err != nil {
			return err
		}

		created, err := repo.Create(ctx, t, pending.ID)
		if err != nil {
			return err
		}
		if !created {
			existing, err := repo.GetByIdempotencyKey(ctx, *t.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing == nil {
				return shared.Transient(errors.New("idempotency key conflict without a visible owner"))
			}
			result = &CreateResult{Transaction: existing}
			return nil
		}

		msg, err := outbox.NewMessage(s.createdTopic, shared.EventTypeTransactionCreated, t.ExternalID, createdEvent(t, now))
		if err != nil {
			return err
		}
		if err := s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to enqueue created event for %s: %w", t.ExternalID, err)
		}

		result = &CreateResult{Transaction: t, Created: true}
		return nil
	})
	if err != nil {
		logger.Error("Failed to create transaction", "error", err)
		return nil, err
	}

	s.recorder.TransactionCreated(result.Created)
	t := result.Transaction
	if !result.Created {
		logger.Info("Returning existing transaction for idempotency key", "transaction_id", t.ExternalID.String())
		return result, nil
	}

	logger.Info("Transaction created",
		"transaction_id", t.ExternalID.String(),
		"transfer_type", t.TransferType.Name,
		"value", t.Value.StringFixed(transaction.ValueScale),
	)

	if err := s.cache.InvalidateLists(ctx); err != nil {
		logger.Warn("Failed to invalidate cached pages", "error", err)
	}
	if err := s.cache.PutView(ctx, t.Version, t.View()); err != nil {
		logger.Warn("Failed to cache new transaction", "transaction_id", t.ExternalID.String(), "error", err)
	}
	return result, nil
}

func createdEvent(t *transaction.Transaction, now time.Time) events.TransactionCreatedEvent {
	return events.TransactionCreatedEvent{
		TransactionExternalID:   t.ExternalID,
		AccountExternalIDDebit:  t.DebitAccountID,
		AccountExternalIDCredit: t.CreditAccountID,
		TransferTypeID:          t.TransferType.ID,
		Value:                   t.Value,
		CreatedAt:               events.NewTimestamp(t.CreatedAt),
		EventID:                 uuid.NewString(),
		EventTimestamp:          events.NewTimestamp(now),
	}
}
