// Package events holds the wire contracts of the transaction-created and
// transaction-status-updated channels. Both services depend on it; nothing
// else is shared between them.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

// VerdictStatus is the outcome carried by a status event. PENDING is never valid here.
type VerdictStatus string

const (
	VerdictApproved VerdictStatus = "APPROVED"
	VerdictRejected VerdictStatus = "REJECTED"
)

func (s VerdictStatus) Valid() bool {
	return s == VerdictApproved || s == VerdictRejected
}

// TransactionCreatedEvent is emitted once per newly created transaction
type TransactionCreatedEvent struct {
	TransactionExternalID   uuid.UUID       `json:"transactionExternalId"`
	AccountExternalIDDebit  uuid.UUID       `json:"accountExternalIdDebit"`
	AccountExternalIDCredit uuid.UUID       `json:"accountExternalIdCredit"`
	TransferTypeID          int             `json:"transferTypeId"`
	Value                   decimal.Decimal `json:"value"`
	CreatedAt               Timestamp       `json:"createdAt"`
	EventID                 string          `json:"eventId"`
	EventTimestamp          Timestamp       `json:"eventTimestamp"`
}

// Key is the partition key of the event
func (e TransactionCreatedEvent) Key() string {
	return e.TransactionExternalID.String()
}

func (e TransactionCreatedEvent) Validate() error {
	if e.TransactionExternalID == uuid.Nil {
		return shared.ValidationError{Field: "transactionExternalId", Message: "is required"}
	}
	if !e.Value.IsPositive() {
		return shared.ValidationError{Field: "value", Message: "must be greater than 0"}
	}
	if e.EventID == "" {
		return shared.ValidationError{Field: "eventId", Message: "is required"}
	}
	return nil
}

// TransactionStatusUpdatedEvent carries one fraud verdict
type TransactionStatusUpdatedEvent struct {
	TransactionExternalID uuid.UUID     `json:"transactionExternalId"`
	Status                VerdictStatus `json:"status"`
	Reason                string        `json:"reason"`
	EventID               string        `json:"eventId"`
	EventTimestamp        Timestamp     `json:"eventTimestamp"`
}

// NewStatusUpdatedEvent stamps a verdict with a fresh event id and timestamp
func NewStatusUpdatedEvent(externalID uuid.UUID, status VerdictStatus, reason string, now time.Time) (TransactionStatusUpdatedEvent, error) {
	event := TransactionStatusUpdatedEvent{
		TransactionExternalID: externalID,
		Status:                status,
		Reason:                reason,
		EventID:               uuid.NewString(),
		EventTimestamp:        NewTimestamp(now),
	}
	return event, event.Validate()
}

func (e TransactionStatusUpdatedEvent) Key() string {
	return e.TransactionExternalID.String()
}

func (e TransactionStatusUpdatedEvent) Validate() error {
	if e.TransactionExternalID == uuid.Nil {
		return shared.ValidationError{Field: "transactionExternalId", Message: "is required"}
	}
	if !e.Status.Valid() {
		return shared.ValidationError{Field: "status", Message: fmt.Sprintf("%q is not a verdict", e.Status)}
	}
	return nil
}

// DecodeCreated parses and validates a transaction-created payload
func DecodeCreated(payload []byte) (TransactionCreatedEvent, error) {
	var event TransactionCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, shared.ValidationError{Field: "payload", Message: err.Error()}
	}
	return event, event.Validate()
}

// DecodeStatusUpdated parses and validates a transaction-status-updated payload
func DecodeStatusUpdated(payload []byte) (TransactionStatusUpdatedEvent, error) {
	var event TransactionStatusUpdatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return event, shared.ValidationError{Field: "payload", Message: err.Error()}
	}
	return event, event.Validate()
}
