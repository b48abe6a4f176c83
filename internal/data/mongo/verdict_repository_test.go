package mongo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/domain/verdict"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestVerdictRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	externalID := uuid.New()
	v := &verdict.Verdict{
		TransactionExternalID: externalID.String(),
		SourceEventID:         "evt-created",
		EventID:               "evt-status",
		Status:                "APPROVED",
		Reason:                "Transaction passed all fraud validations",
		Amount:                "500.00",
		DecidedAt:             time.Now().UTC(),
	}

	mt.Run("successful creation", func(mt *mtest.T) {
		repo := NewVerdictRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Create(context.Background(), v)
		assert.NoError(t, err)
	})

	mt.Run("duplicate verdict", func(mt *mtest.T) {
		repo := NewVerdictRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Create(context.Background(), v)
		require.Error(t, err)
		assert.Equal(t, verdict.ErrDuplicateVerdict{TransactionExternalID: externalID}, err)
		assert.True(t, errors.Is(err, shared.ErrDuplicate))
	})

	mt.Run("database error", func(mt *mtest.T) {
		repo := NewVerdictRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))

		err := repo.Create(context.Background(), v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create verdict")
	})
}

func TestVerdictRepository_GetByTransactionID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	externalID := uuid.New()
	ns := "test." + VerdictCollectionName

	mt.Run("found", func(mt *mtest.T) {
		repo := NewVerdictRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "transaction_external_id", Value: externalID.String()},
			{Key: "event_id", Value: "evt-status"},
			{Key: "status", Value: "REJECTED"},
			{Key: "reason", Value: "Transaction amount 1500.00 exceeds the maximum allowed 1000.00"},
		}))

		got, err := repo.GetByTransactionID(context.Background(), externalID)
		require.NoError(t, err)
		assert.Equal(t, "REJECTED", got.Status)
		assert.Equal(t, "evt-status", got.EventID)
		assert.False(t, got.Published())
	})

	mt.Run("not found", func(mt *mtest.T) {
		repo := NewVerdictRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := repo.GetByTransactionID(context.Background(), externalID)
		assert.Nil(t, got)
		assert.True(t, errors.Is(err, verdict.ErrVerdictNotFound{}))
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestVerdictRepository_MarkPublished(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	externalID := uuid.New()

	mt.Run("marked", func(mt *mtest.T) {
		repo := NewVerdictRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 1},
			{Key: "nModified", Value: 1},
		})

		err := repo.MarkPublished(context.Background(), externalID, time.Now())
		assert.NoError(t, err)
	})

	mt.Run("missing verdict", func(mt *mtest.T) {
		repo := NewVerdictRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "n", Value: 0},
			{Key: "nModified", Value: 0},
		})

		err := repo.MarkPublished(context.Background(), externalID, time.Now())
		assert.Equal(t, verdict.ErrVerdictNotFound{TransactionExternalID: externalID}, err)
	})
}
