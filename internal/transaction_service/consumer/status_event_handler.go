package consumer

import (
	"context"
	"log/slog"

	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/platform/messaging/consumers"
	"github.com/transfer-antifraud-saga/internal/transaction_service/service"
)

// StatusEventHandler applies transaction-status-updated messages
type StatusEventHandler struct {
	coordinator service.StatusCoordinator
	logger      *slog.Logger
}

func NewStatusEventHandler(logger *slog.Logger, coordinator service.StatusCoordinator) *StatusEventHandler {
	return &StatusEventHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// HandleMessage implements consumers.MessageHandler
func (h *StatusEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) consumers.Result {
	event, err := events.DecodeStatusUpdated(value)
	if err != nil {
		h.logger.Error("Rejecting undecodable status event", "message_key", string(key), "error", err)
		return consumers.FatalResult(err)
	}

	logger := h.logger.With(
		"transaction_id", event.TransactionExternalID.String(),
		"event_id", event.EventID,
		"status", string(event.Status),
	)
	if string(key) != event.Key() {
		logger.Warn("Message key does not match transaction id", "message_key", string(key))
	}

	applied, err := h.coordinator.ApplyVerdict(ctx, event)
	if err != nil {
		result := consumers.Classify(err)
		logger.Error("Failed to apply status event", "outcome", result.Outcome.String(), "error", err)
		return result
	}
	if !applied {
		return consumers.DuplicateResult()
	}
	return consumers.AppliedResult()
}
