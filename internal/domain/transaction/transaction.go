package transaction

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

// ValueScale is the number of fractional digits stored for a transfer value.
const ValueScale = 2

// MaxIdempotencyKeyLength matches transactions.idempotency_key VARCHAR(255)
const MaxIdempotencyKeyLength = 255

// maxValue is the exclusive upper bound that fits NUMERIC(19, 2)
var maxValue = decimal.New(1, 17)

// Status is the lifecycle state of a transfer
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ParseStatus accepts any letter case, e.g. the lower-case names kept in transaction_statuses.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", shared.ValidationError{Field: "status", Message: "unknown status " + raw}
	}
}

// IsTerminal reports whether no further transition may leave s
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// DefinitionName is the row name of s in the transaction_statuses reference table.
func (s Status) DefinitionName() string {
	return strings.ToLower(string(s))
}

// TransferType is one entry of the closed transaction_types enumeration
type TransferType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StatusDefinition is one row of the transaction_statuses reference table
type StatusDefinition struct {
	ID          int
	Name        string
	Description string
}

// Transaction is the transfer aggregate. ID is internal and never leaves the service.
type Transaction struct {
	ID              int64
	ExternalID      uuid.UUID
	IdempotencyKey  *string
	DebitAccountID  uuid.UUID
	CreditAccountID uuid.UUID
	TransferType    TransferType
	Value           decimal.Decimal
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

// CreateParams are the caller-supplied fields of a new transfer
type CreateParams struct {
	DebitAccountID  uuid.UUID
	CreditAccountID uuid.UUID
	TransferTypeID  int
	Value           decimal.Decimal
	IdempotencyKey  string
}

// Validate rejects a request before anything is written
func (p CreateParams) Validate() error {
	if p.DebitAccountID == uuid.Nil {
		return shared.ValidationError{Field: "accountExternalIdDebit", Message: "is required"}
	}
	if p.CreditAccountID == uuid.Nil {
		return shared.ValidationError{Field: "accountExternalIdCredit", Message: "is required"}
	}
	if p.TransferTypeID <= 0 {
		return shared.ValidationError{Field: "transferTypeId", Message: "must be greater than 0"}
	}
	if !p.Value.IsPositive() {
		return shared.ValidationError{Field: "value", Message: "must be greater than 0"}
	}
	if !p.Value.Equal(p.Value.Round(ValueScale)) {
		return shared.ValidationError{Field: "value", Message: "must have at most 2 decimal places"}
	}
	if p.Value.GreaterThanOrEqual(maxValue) {
		return shared.ValidationError{Field: "value", Message: "must be less than " + maxValue.String()}
	}
	if key := p.NormalizedKey(); key != nil && utf8.RuneCountInString(*key) > MaxIdempotencyKeyLength {
		return shared.ValidationError{Field: "idempotencyKey", Message: "must be at most 255 characters"}
	}
	return nil
}

// NormalizedKey returns nil for an absent or blank key, which disables deduplication.
func (p CreateParams) NormalizedKey() *string {
	key := strings.TrimSpace(p.IdempotencyKey)
	if key == "" {
		return nil
	}
	return &key
}

// New builds a PENDING transaction with a fresh external id
func New(params CreateParams, transferType TransferType, now time.Time) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if transferType.ID != params.TransferTypeID {
		return nil, shared.ValidationError{Field: "transferTypeId", Message: "does not match resolved transfer type"}
	}

	return &Transaction{
		ExternalID:      uuid.New(),
		IdempotencyKey:  params.NormalizedKey(),
		DebitAccountID:  params.DebitAccountID,
		CreditAccountID: params.CreditAccountID,
		TransferType:    transferType,
		Value:           params.Value.Round(ValueScale),
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}, nil
}

// TransitionResult tells the caller whether TransitionTo changed the aggregate
type TransitionResult int

const (
	TransitionApplied TransitionResult = iota
	TransitionAlreadyApplied
)

// TransitionTo moves a PENDING transaction to a terminal status. Repeating the
// transition that already happened is reported as TransitionAlreadyApplied and
// leaves the aggregate untouched. Any other move from a terminal status fails.
func (t *Transaction) TransitionTo(target Status, now time.Time) (TransitionResult, error) {
	if !target.IsTerminal() {
		return 0, InvalidTransitionError{ExternalID: t.ExternalID, From: t.Status, To: target}
	}

	switch {
	case t.Status == StatusPending:
		t.Status = target
		t.UpdatedAt = now
		t.Version++
		return TransitionApplied, nil
	case t.Status == target:
		return TransitionAlreadyApplied, nil
	default:
		return 0, InvalidTransitionError{ExternalID: t.ExternalID, From: t.Status, To: target}
	}
}
