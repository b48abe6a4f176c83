package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/transfer-antifraud-saga/internal/domain/transaction"
	"github.com/transfer-antifraud-saga/internal/platform/middleware"
	"github.com/transfer-antifraud-saga/internal/transaction_service/service"
)

type MockCreationService struct {
	mock.Mock
}

func (m *MockCreationService) Create(ctx context.Context, params transaction.CreateParams) (*service.CreateResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateResult), args.Error(1)
}

type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Get(ctx context.Context, externalID uuid.UUID) (*transaction.View, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.View), args.Error(1)
}

func (m *MockQueryService) List(ctx context.Context, q transaction.ListQuery) (*transaction.Page, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Page), args.Error(1)
}

type envelope struct {
	Data          json.RawMessage `json:"data"`
	Error         *ErrorInfo      `json:"error"`
	CorrelationID string          `json:"correlation_id"`
}

func newTestRouter(creation *MockCreationService, query *MockQueryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewTransactionHandler(creation, query, logger)

	r := gin.New()
	r.Use(middleware.CorrelationID())
	r.POST("/transactions", h.CreateTransaction)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/:id", h.GetTransaction)
	return r
}

func do(r *gin.Engine, method, target string, body []byte, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var env envelope
	_ = json.Unmarshal(rr.Body.Bytes(), &env)
	return rr, env
}

func sampleTransaction() *transaction.Transaction {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &transaction.Transaction{
		ID:              1,
		ExternalID:      uuid.MustParse("9b2d8f0e-5c1a-4d3b-9e7f-1a2b3c4d5e6f"),
		DebitAccountID:  uuid.MustParse("11111111-1111-4111-8111-111111111111"),
		CreditAccountID: uuid.MustParse("22222222-2222-4222-8222-222222222222"),
		TransferType:    transaction.TransferType{ID: 1, Name: "Transfer"},
		Value:           decimal.RequireFromString("120.50"),
		Status:          transaction.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	tx := sampleTransaction()
	validBody := []byte(`{
		"accountExternalIdDebit": "11111111-1111-4111-8111-111111111111",
		"accountExternalIdCredit": "22222222-2222-4222-8222-222222222222",
		"transferTypeId": 1,
		"value": "120.50",
		"idempotencyKey": "order-42"
	}`)
	matchesBody := mock.MatchedBy(func(p transaction.CreateParams) bool {
		return p.DebitAccountID == tx.DebitAccountID &&
			p.CreditAccountID == tx.CreditAccountID &&
			p.TransferTypeID == 1 &&
			p.Value.Equal(decimal.RequireFromString("120.5")) &&
			p.IdempotencyKey == "order-42"
	})

	t.Run("created returns 201", func(t *testing.T) {
		creation := new(MockCreationService)
		creation.On("Create", mock.Anything, matchesBody).
			Return(&service.CreateResult{Transaction: tx, Created: true}, nil).Once()

		rr, env := do(newTestRouter(creation, new(MockQueryService)), http.MethodPost, "/transactions", validBody, nil)

		require.Equal(t, http.StatusCreated, rr.Code)
		var view transaction.View
		require.NoError(t, json.Unmarshal(env.Data, &view))
		assert.Equal(t, tx.ExternalID, view.TransactionID)
		assert.Equal(t, transaction.StatusPending, view.Status)
		assert.True(t, view.Value.Equal(tx.Value))
		assert.NotEmpty(t, env.CorrelationID)
		creation.AssertExpectations(t)
	})

	t.Run("replayed key returns 200", func(t *testing.T) {
		creation := new(MockCreationService)
		creation.On("Create", mock.Anything, matchesBody).
			Return(&service.CreateResult{Transaction: tx, Created: false}, nil).Once()

		rr, _ := do(newTestRouter(creation, new(MockQueryService)), http.MethodPost, "/transactions", validBody, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		creation.AssertExpectations(t)
	})

	t.Run("numeric value and header key", func(t *testing.T) {
		body := []byte(`{"accountExternalIdDebit":"11111111-1111-4111-8111-111111111111","accountExternalIdCredit":"22222222-2222-4222-8222-222222222222","transferTypeId":1,"value":120.5}`)
		creation := new(MockCreationService)
		creation.On("Create", mock.Anything, matchesBody).
			Return(&service.CreateResult{Transaction: tx, Created: true}, nil).Once()

		rr, _ := do(newTestRouter(creation, new(MockQueryService)), http.MethodPost, "/transactions", body,
			map[string]string{IdempotencyKeyHeader: "order-42"})

		assert.Equal(t, http.StatusCreated, rr.Code)
		creation.AssertExpectations(t)
	})

	badRequests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"accountExternalIdDebit":`},
		{"missing debit", `{"accountExternalIdCredit":"22222222-2222-4222-8222-222222222222","transferTypeId":1,"value":1}`},
		{"credit not a uuid", `{"accountExternalIdDebit":"11111111-1111-4111-8111-111111111111","accountExternalIdCredit":"abc","transferTypeId":1,"value":1}`},
		{"value not a number", `{"accountExternalIdDebit":"11111111-1111-4111-8111-111111111111","accountExternalIdCredit":"22222222-2222-4222-8222-222222222222","transferTypeId":1,"value":"ten"}`},
	}
	for _, tt := range badRequests {
		t.Run(tt.name, func(t *testing.T) {
			creation := new(MockCreationService)
			rr, env := do(newTestRouter(creation, new(MockQueryService)), http.MethodPost, "/transactions", []byte(tt.body), nil)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "BAD_REQUEST", env.Error.Code)
			creation.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}

	oversized := transaction.CreateParams{
		DebitAccountID:  uuid.New(),
		CreditAccountID: uuid.New(),
		TransferTypeID:  1,
		Value:           decimal.RequireFromString("100000000000000000.00"),
	}

	mapped := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"non-positive value", transaction.CreateParams{}.Validate(), http.StatusBadRequest, "BAD_REQUEST"},
		{"value beyond stored range", oversized.Validate(), http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown transfer type", transaction.ErrTransferTypeNotFound{ID: 9}, http.StatusBadRequest, "BAD_REQUEST"},
		{"store failure", errors.New("connection refused to 10.0.0.3:5432"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tt := range mapped {
		t.Run(tt.name, func(t *testing.T) {
			creation := new(MockCreationService)
			creation.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			rr, env := do(newTestRouter(creation, new(MockQueryService)), http.MethodPost, "/transactions", validBody, nil)

			assert.Equal(t, tt.status, rr.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotContains(t, env.Error.Message, "10.0.0.3")
		})
	}
}

func TestTransactionHandler_GetTransaction(t *testing.T) {
	tx := sampleTransaction()

	t.Run("found", func(t *testing.T) {
		query := new(MockQueryService)
		view := tx.View()
		query.On("Get", mock.Anything, tx.ExternalID).Return(&view, nil).Once()

		rr, env := do(newTestRouter(new(MockCreationService), query), http.MethodGet, "/transactions/"+tx.ExternalID.String(), nil, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var got transaction.View
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, tx.ExternalID, got.TransactionID)
		assert.Equal(t, "Transfer", got.TransactionType.Name)
		query.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		query := new(MockQueryService)
		query.On("Get", mock.Anything, tx.ExternalID).
			Return(nil, transaction.ErrTransactionNotFound{ExternalID: tx.ExternalID}).Once()

		rr, env := do(newTestRouter(new(MockCreationService), query), http.MethodGet, "/transactions/"+tx.ExternalID.String(), nil, nil)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "NOT_FOUND", env.Error.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		query := new(MockQueryService)
		rr, env := do(newTestRouter(new(MockCreationService), query), http.MethodGet, "/transactions/not-a-uuid", nil, nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "BAD_REQUEST", env.Error.Code)
		query.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		query := new(MockQueryService)
		query.On("Get", mock.Anything, tx.ExternalID).Return(nil, errors.New("pool closed")).Once()

		rr, env := do(newTestRouter(new(MockCreationService), query), http.MethodGet, "/transactions/"+tx.ExternalID.String(), nil, nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", env.Error.Code)
	})
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	tx := sampleTransaction()
	approved := transaction.StatusApproved

	t.Run("defaults", func(t *testing.T) {
		query := new(MockQueryService)
		page := transaction.NewPage([]transaction.View{tx.View()}, 1, transaction.ListQuery{Size: 10})
		query.On("List", mock.Anything, transaction.ListQuery{Page: 0, Size: transaction.DefaultPageSize}).Return(&page, nil).Once()

		rr, env := do(newTestRouter(new(MockCreationService), query), http.MethodGet, "/transactions", nil, nil)

		require.Equal(t, http.StatusOK, rr.Code)
		var got transaction.Page
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, int64(1), got.TotalElements)
		assert.Equal(t, 1, got.TotalPages)
		require.Len(t, got.Content, 1)
		query.AssertExpectations(t)
	})

	t.Run("status filter is case insensitive", func(t *testing.T) {
		query := new(MockQueryService)
		page := transaction.NewPage(nil, 0, transaction.ListQuery{Page: 2, Size: 5})
		query.On("List", mock.Anything, transaction.ListQuery{Status: &approved, Page: 2, Size: 5}).Return(&page, nil).Once()

		rr, _ := do(newTestRouter(new(MockCreationService), query), http.MethodGet, "/transactions?page=2&size=5&status=approved", nil, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		query.AssertExpectations(t)
	})

	for _, target := range []string{
		"/transactions?page=-1",
		"/transactions?size=0",
		"/transactions?size=101",
		"/transactions?page=x",
		"/transactions?page=922337203685477580&size=100",
		"/transactions?status=CANCELLED",
	} {
		t.Run(target, func(t *testing.T) {
			query := new(MockQueryService)
			rr, env := do(newTestRouter(new(MockCreationService), query), http.MethodGet, target, nil, nil)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, "BAD_REQUEST", env.Error.Code)
			query.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
		})
	}
}
