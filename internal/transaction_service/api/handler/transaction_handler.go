package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/transfer-antifraud-saga/internal/platform/middleware"
	"github.com/transfer-antifraud-saga/internal/transaction_service/service"
)

// IdempotencyKeyHeader may carry the key instead of the request body
const IdempotencyKeyHeader = "Idempotency-Key"

// TransactionHandler serves the transaction endpoints
type TransactionHandler struct {
	creation service.CreationService
	query    service.QueryService
	logger   *slog.Logger
}

func NewTransactionHandler(creation service.CreationService, query service.QueryService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		creation: creation,
		query:    query,
		logger:   logger,
	}
}

// CreateTransaction answers 201 for a new transaction and 200 when the
// idempotency key matched an existing one.
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)
	}

	params, err := req.ToParams()
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.creation.Create(c.Request.Context(), params)
	if err != nil {
		if !RespondDomainError(c, err) {
			h.logger.Error("Failed to create transaction",
				"error", err,
				"correlation_id", middleware.GetCorrelationID(c),
			)
		}
		return
	}

	view := result.Transaction.View()
	if result.Created {
		RespondCreated(c, view)
		return
	}
	RespondOK(c, view)
}

// GetTransaction returns one transaction by its external id
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID format")
		return
	}

	view, err := h.query.Get(c.Request.Context(), id)
	if err != nil {
		if !RespondDomainError(c, err) {
			h.logger.Error("Failed to get transaction",
				"error", err,
				"transaction_id", id,
				"correlation_id", middleware.GetCorrelationID(c),
			)
		}
		return
	}

	RespondOK(c, view)
}

// ListTransactions returns a page of transactions, newest first
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var raw ListTransactionsQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	q, err := raw.ToListQuery()
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	page, err := h.query.List(c.Request.Context(), q)
	if err != nil {
		if !RespondDomainError(c, err) {
			h.logger.Error("Failed to list transactions",
				"error", err,
				"correlation_id", middleware.GetCorrelationID(c),
			)
		}
		return
	}

	RespondOK(c, page)
}
