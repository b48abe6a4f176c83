package verdict

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

// Verdict records the single fraud decision taken for a transaction. It lets
// the anti-fraud service answer a redelivered creation event with the stored
// decision instead of evaluating again.
type Verdict struct {
	TransactionExternalID string     `bson:"transaction_external_id"`
	SourceEventID         string     `bson:"source_event_id"`
	EventID               string     `bson:"event_id"`
	Status                string     `bson:"status"`
	Reason                string     `bson:"reason"`
	Amount                string     `bson:"amount"`
	DecidedAt             time.Time  `bson:"decided_at"`
	EventTimestamp        string     `bson:"event_timestamp"` // as published; decided_at holds UTC milliseconds only
	PublishedAt           *time.Time `bson:"published_at,omitempty"`
}

// FromEvent captures the outgoing status event of a decision
func FromEvent(created events.TransactionCreatedEvent, decided events.TransactionStatusUpdatedEvent) *Verdict {
	return &Verdict{
		TransactionExternalID: created.TransactionExternalID.String(),
		SourceEventID:         created.EventID,
		EventID:               decided.EventID,
		Status:                string(decided.Status),
		Reason:                decided.Reason,
		Amount:                created.Value.String(),
		DecidedAt:             decided.EventTimestamp.Time,
		EventTimestamp:        decided.EventTimestamp.String(),
	}
}

// Published reports whether the status event already reached the broker
func (v *Verdict) Published() bool {
	return v.PublishedAt != nil
}

// Event rebuilds the status event as it was first emitted. Documents without
// the stored wire timestamp fall back to decided_at, in UTC at millisecond precision.
func (v *Verdict) Event() (events.TransactionStatusUpdatedEvent, error) {
	id, err := uuid.Parse(v.TransactionExternalID)
	if err != nil {
		return events.TransactionStatusUpdatedEvent{}, err
	}
	timestamp := events.NewTimestamp(v.DecidedAt)
	if v.EventTimestamp != "" {
		parsed, err := time.Parse(events.TimestampLayout, v.EventTimestamp)
		if err != nil {
			return events.TransactionStatusUpdatedEvent{}, fmt.Errorf("invalid stored event timestamp %q: %w", v.EventTimestamp, err)
		}
		timestamp = events.NewTimestamp(parsed)
	}
	event := events.TransactionStatusUpdatedEvent{
		TransactionExternalID: id,
		Status:                events.VerdictStatus(v.Status),
		Reason:                v.Reason,
		EventID:               v.EventID,
		EventTimestamp:        timestamp,
	}
	return event, event.Validate()
}

// Repository persists verdicts keyed by transaction external id
type Repository interface {
	// Create fails with ErrDuplicateVerdict when a verdict already exists for the transaction
	Create(ctx context.Context, v *Verdict) error
	GetByTransactionID(ctx context.Context, externalID uuid.UUID) (*Verdict, error)
	MarkPublished(ctx context.Context, externalID uuid.UUID, at time.Time) error
}

// ErrVerdictNotFound indicates no decision was recorded yet
type ErrVerdictNotFound struct {
	TransactionExternalID uuid.UUID
}

func (e ErrVerdictNotFound) Error() string {
	return "verdict not found: " + e.TransactionExternalID.String()
}

func (e ErrVerdictNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrVerdictNotFound)
	if !ok {
		return false
	}
	return t.TransactionExternalID == uuid.Nil || t.TransactionExternalID == e.TransactionExternalID
}

// ErrDuplicateVerdict indicates a concurrent consumer stored the decision first
type ErrDuplicateVerdict struct {
	TransactionExternalID uuid.UUID
}

func (e ErrDuplicateVerdict) Error() string {
	return "duplicate verdict: " + e.TransactionExternalID.String()
}

func (e ErrDuplicateVerdict) Is(target error) bool {
	return target == shared.ErrDuplicate
}
