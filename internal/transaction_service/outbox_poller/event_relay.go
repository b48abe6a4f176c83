package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/transfer-antifraud-saga/internal/domain/outbox"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/platform/messaging/producers"
)

// EventRelay moves one outbox message onto its topic
type EventRelay interface {
	Relay(ctx context.Context, message *outbox.Message) error
}

// KafkaEventRelay publishes the stored payload unchanged, keyed by the
// aggregate, and marks the row PROCESSED once the broker acknowledged it.
type KafkaEventRelay struct {
	outboxRepo outbox.Repository
	publisher  producers.EventPublisher
	logger     *slog.Logger
}

func NewKafkaEventRelay(outboxRepo outbox.Repository, publisher producers.EventPublisher, logger *slog.Logger) *KafkaEventRelay {
	return &KafkaEventRelay{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		logger:     logger,
	}
}

func (r *KafkaEventRelay) Relay(ctx context.Context, message *outbox.Message) error {
	logger := r.logger.With(
		"outbox_id", message.ID,
		"transaction_id", message.AggregateID.String(),
		"event_type", string(message.EventType),
	)

	if err := r.publisher.Publish(ctx, message.Topic, message.Key, message.Payload); err != nil {
		return err
	}

	// A crash here republishes the event on the next tick; consumers absorb the duplicate.
	if err := r.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Event published but outbox row not marked PROCESSED", "error", err)
		return fmt.Errorf("published outbox %d but failed to mark it PROCESSED: %w", message.ID, err)
	}

	logger.Info("Outbox event published", "topic", message.Topic)
	return nil
}
