package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/domain/transaction"
)

// CreationService is the write path of the public API
type CreationService interface {
	Create(ctx context.Context, params transaction.CreateParams) (*CreateResult, error)
}

// StatusCoordinator applies fraud verdicts to stored transactions
type StatusCoordinator interface {
	ApplyVerdict(ctx context.Context, event events.TransactionStatusUpdatedEvent) (Applied, error)
}

// QueryService is the read path of the public API
type QueryService interface {
	Get(ctx context.Context, externalID uuid.UUID) (*transaction.View, error)
	List(ctx context.Context, q transaction.ListQuery) (*transaction.Page, error)
}

// Recorder receives business counters. *metrics.Metrics implements it.
type Recorder interface {
	TransactionCreated(created bool)
	StatusTransition(status string, applied bool)
	CacheLookup(result string)
}

type nopRecorder struct{}

func (nopRecorder) TransactionCreated(bool)       {}
func (nopRecorder) StatusTransition(string, bool) {}
func (nopRecorder) CacheLookup(string)            {}

// CreateResult reports whether the call inserted a row or returned the one
// already stored under the same idempotency key.
type CreateResult struct {
	Transaction *transaction.Transaction
	Created     bool
}

// Applied is false when a verdict repeated the status already stored
type Applied bool
