package service

import (
	"context"

	"github.com/transfer-antifraud-saga/internal/domain/events"
)

// EvaluationService turns a creation event into exactly one published verdict
type EvaluationService interface {
	Process(ctx context.Context, created events.TransactionCreatedEvent) (Published, error)
}

// Evaluator decides a verdict. *fraud.Engine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, created events.TransactionCreatedEvent) (events.TransactionStatusUpdatedEvent, error)
}

// StatusPublisher writes one status event to the broker
type StatusPublisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// Published is false when the verdict had already been published
type Published bool
