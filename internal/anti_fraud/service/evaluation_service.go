// Package service holds the anti-fraud evaluation flow.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/domain/verdict"
)

type EvaluationServiceImpl struct {
	verdicts    verdict.Repository
	evaluator   Evaluator
	publisher   StatusPublisher
	statusTopic string
	logger      *slog.Logger
	now         func() time.Time
}

func NewEvaluationService(
	verdicts verdict.Repository,
	evaluator Evaluator,
	publisher StatusPublisher,
	statusTopic string,
	logger *slog.Logger,
) *EvaluationServiceImpl {
	return &EvaluationServiceImpl{
		verdicts:    verdicts,
		evaluator:   evaluator,
		publisher:   publisher,
		statusTopic: statusTopic,
		logger:      logger,
		now:         time.Now,
	}
}

// Process evaluates created at most once. A stored verdict is re-published if
// the earlier attempt did not reach the broker, and is otherwise a no-op.
// Every store or broker failure is returned as transient.
func (s *EvaluationServiceImpl) Process(ctx context.Context, created events.TransactionCreatedEvent) (Published, error) {
	id := created.TransactionExternalID
	logger := s.logger.With("transaction_id", id.String(), "source_event_id", created.EventID)

	// 1. Look for an earlier decision
	existing, err := s.verdicts.GetByTransactionID(ctx, id)
	if err != nil && !errors.Is(err, verdict.ErrVerdictNotFound{}) {
		return false, shared.Transient(err)
	}
	if existing != nil {
		return s.resume(ctx, logger, existing)
	}

	// 2. Decide
	decided, err := s.evaluator.Evaluate(ctx, created)
	if err != nil {
		return false, shared.Transient(fmt.Errorf("fraud evaluation interrupted: %w", err))
	}

	// 3. Record the decision before anyone can see it
	v := verdict.FromEvent(created, decided)
	if err := s.verdicts.Create(ctx, v); err != nil {
		if !errors.Is(err, shared.ErrDuplicate) {
			return false, shared.Transient(err)
		}
		logger.Info("Verdict stored concurrently, using the stored decision")
		existing, err = s.verdicts.GetByTransactionID(ctx, id)
		if err != nil {
			return false, shared.Transient(err)
		}
		return s.resume(ctx, logger, existing)
	}

	// 4. Publish and mark
	if err := s.publish(ctx, logger, v); err != nil {
		return false, err
	}
	return true, nil
}

func (s *EvaluationServiceImpl) resume(ctx context.Context, logger *slog.Logger, v *verdict.Verdict) (Published, error) {
	if v.Published() {
		logger.Info("Verdict already published, skipping", "status", v.Status)
		return false, nil
	}
	logger.Warn("Re-publishing stored verdict", "status", v.Status)
	if err := s.publish(ctx, logger, v); err != nil {
		return false, err
	}
	return true, nil
}

func (s *EvaluationServiceImpl) publish(ctx context.Context, logger *slog.Logger, v *verdict.Verdict) error {
	event, err := v.Event()
	if err != nil {
		return fmt.Errorf("stored verdict is unreadable: %w: %v", shared.ErrInvariantViolation, err)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	if err := s.publisher.Publish(ctx, s.statusTopic, event.Key(), payload); err != nil {
		logger.Error("Failed to publish status event", "error", err)
		return shared.Transient(err)
	}

	// The event is already out; a redelivery would only re-send the same eventId.
	if err := s.verdicts.MarkPublished(ctx, event.TransactionExternalID, s.now()); err != nil {
		logger.Warn("Failed to mark verdict as published", "error", err)
	}

	logger.Info("Status event published", "status", event.Status, "event_id", event.EventID)
	return nil
}
