package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/transfer-antifraud-saga/internal/config"
	"github.com/transfer-antifraud-saga/internal/domain/outbox"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

// RelayRecorder counts relay results (published|failed|exhausted)
type RelayRecorder interface {
	OutboxRelay(result string)
}

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	relay            EventRelay
	recorder         RelayRecorder
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	relay EventRelay,
	recorder RelayRecorder,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		relay:            relay,
		recorder:         recorder,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	// Once an aggregate fails, its later messages wait for the next tick so
	// that events of one transaction keep their order on the topic.
	blocked := make(map[uuid.UUID]struct{})

	for _, msg := range messages {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, ok := blocked[msg.AggregateID]; ok {
			continue
		}

		err := p.relay.Relay(ctx, msg)
		if err == nil {
			p.record("published")
			continue
		}

		blocked[msg.AggregateID] = struct{}{}
		p.record("failed")
		logger := p.logger.With("outbox_id", msg.ID, "transaction_id", msg.AggregateID.String())
		logger.Error("Failed to relay outbox message", "current_attempts", msg.Attempts, "error", err)

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			logger.Error("Failed to increment attempts for outbox message", "error", errInc)
			continue
		}

		if msg.Exhausted(p.maxRetryAttempts) {
			logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
				"attempts_made", msg.Attempts+1,
			)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH", "error", errUpdate)
				continue
			}
			p.record("exhausted")
		}
	}
	return nil
}

func (p *Poller) record(result string) {
	if p.recorder != nil {
		p.recorder.OutboxRelay(result)
	}
}
