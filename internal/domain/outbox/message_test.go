package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		externalID := uuid.New()
		event := events.TransactionCreatedEvent{
			TransactionExternalID: externalID,
			TransferTypeID:        1,
			Value:                 decimal.RequireFromString("99.90"),
			EventID:               uuid.NewString(),
		}

		beforeCreation := time.Now()
		msg, err := NewMessage("transaction-created", shared.EventTypeTransactionCreated, externalID, event)
		afterCreation := time.Now()

		require.NoError(t, err)
		assert.Equal(t, externalID, msg.AggregateID)
		assert.Equal(t, externalID.String(), msg.Key, "partition key must be the canonical external id")
		assert.Equal(t, "transaction-created", msg.Topic)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.WithinDuration(t, beforeCreation, msg.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)

		var decoded events.TransactionCreatedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, event.EventID, decoded.EventID)
	})

	t.Run("UnserializablePayload", func(t *testing.T) {
		_, err := NewMessage("t", shared.EventTypeTransactionCreated, uuid.New(), make(chan int))
		assert.Error(t, err)
	})
}

func TestMessage_StateChanges(t *testing.T) {
	initialTime := time.Now().Add(-time.Hour)

	msg := &Message{Status: shared.OutboxStatusPending, LastAttemptAt: &initialTime}
	msg.IncrementAttempts()
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.LastAttemptAt)
	assert.True(t, msg.LastAttemptAt.After(initialTime))

	msg.MarkAsProcessed()
	assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)

	failed := &Message{Status: shared.OutboxStatusPending}
	failed.MarkAsFailed()
	assert.Equal(t, shared.OutboxStatusFailedToPublish, failed.Status)
	require.NotNil(t, failed.LastAttemptAt)
}

func TestMessage_Exhausted(t *testing.T) {
	assert.False(t, (&Message{Attempts: 3}).Exhausted(5))
	assert.True(t, (&Message{Attempts: 4}).Exhausted(5))
	assert.True(t, (&Message{Attempts: 9}).Exhausted(5))
}
