// Package fraud decides whether a created transaction is approved or rejected.
package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/transfer-antifraud-saga/internal/config"
	"github.com/transfer-antifraud-saga/internal/domain/events"
)

const approvedReason = "Transaction passed all fraud validations"

// Decision is the outcome of one evaluation
type Decision struct {
	Status events.VerdictStatus
	Reason string
}

// Decide approves amounts up to and including threshold
func Decide(amount, threshold decimal.Decimal) Decision {
	if amount.GreaterThan(threshold) {
		return Decision{
			Status: events.VerdictRejected,
			Reason: fmt.Sprintf("Transaction amount %s exceeds the maximum allowed %s",
				amount.StringFixed(2), threshold.StringFixed(2)),
		}
	}
	return Decision{Status: events.VerdictApproved, Reason: approvedReason}
}

// DecisionRecorder counts verdicts. *metrics.Metrics implements it.
type DecisionRecorder interface {
	FraudDecision(status string)
}

// Engine applies the configured threshold after a synthetic processing delay
type Engine struct {
	threshold decimal.Decimal
	delay     time.Duration
	recorder  DecisionRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine rejects a non-positive threshold and a delay outside [0, MaxProcessingDelay]
func NewEngine(cfg config.FraudConfig, recorder DecisionRecorder, logger *slog.Logger) (*Engine, error) {
	if !cfg.MaxTransactionValue.IsPositive() {
		return nil, errors.New("fraud threshold must be greater than 0")
	}
	if cfg.ProcessingDelay < 0 || cfg.ProcessingDelay > cfg.MaxProcessingDelay {
		return nil, fmt.Errorf("fraud processing delay %s outside [0, %s]", cfg.ProcessingDelay, cfg.MaxProcessingDelay)
	}
	return &Engine{
		threshold: cfg.MaxTransactionValue,
		delay:     cfg.ProcessingDelay,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Evaluate waits out the processing delay and builds the status event for
// created. It returns ctx.Err() if the wait is interrupted.
func (e *Engine) Evaluate(ctx context.Context, created events.TransactionCreatedEvent) (events.TransactionStatusUpdatedEvent, error) {
	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return events.TransactionStatusUpdatedEvent{}, ctx.Err()
		case <-timer.C:
		}
	}

	decision := Decide(created.Value, e.threshold)
	if e.recorder != nil {
		e.recorder.FraudDecision(string(decision.Status))
	}

	log := e.logger.With("transaction_id", created.TransactionExternalID.String(), "amount", created.Value.String())
	if decision.Status == events.VerdictRejected {
		log.Warn("Transaction rejected", "reason", decision.Reason)
	} else {
		log.Info("Transaction approved")
	}

	return events.NewStatusUpdatedEvent(created.TransactionExternalID, decision.Status, decision.Reason, e.now())
}
