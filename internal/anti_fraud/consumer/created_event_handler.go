package consumer

import (
	"context"
	"log/slog"

	"github.com/transfer-antifraud-saga/internal/anti_fraud/service"
	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/platform/messaging/consumers"
)

// CreatedEventHandler evaluates transaction-created messages
type CreatedEventHandler struct {
	evaluation service.EvaluationService
	logger     *slog.Logger
}

func NewCreatedEventHandler(logger *slog.Logger, evaluation service.EvaluationService) *CreatedEventHandler {
	return &CreatedEventHandler{
		evaluation: evaluation,
		logger:     logger,
	}
}

// HandleMessage implements consumers.MessageHandler
func (h *CreatedEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) consumers.Result {
	event, err := events.DecodeCreated(value)
	if err != nil {
		h.logger.Error("Rejecting undecodable creation event", "message_key", string(key), "error", err)
		return consumers.FatalResult(err)
	}

	logger := h.logger.With(
		"transaction_id", event.TransactionExternalID.String(),
		"event_id", event.EventID,
	)
	logger.Info("Received transaction for fraud evaluation", "value", event.Value.String())

	published, err := h.evaluation.Process(ctx, event)
	if err != nil {
		result := consumers.Classify(err)
		logger.Error("Failed to evaluate transaction", "outcome", result.Outcome.String(), "error", err)
		return result
	}
	if !published {
		return consumers.DuplicateResult()
	}
	return consumers.AppliedResult()
}
