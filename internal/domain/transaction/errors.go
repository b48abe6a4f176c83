package transaction

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

// ErrTransactionNotFound indicates no transaction exists for the external id
type ErrTransactionNotFound struct {
	ExternalID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ExternalID.String()
}

// Is matches shared.ErrNotFound, and any ErrTransactionNotFound when the target id is nil
func (e ErrTransactionNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ExternalID == uuid.Nil {
		return true
	}
	return e.ExternalID == t.ExternalID
}

// InvalidTransitionError reports a move that the state machine forbids
type InvalidTransitionError struct {
	ExternalID uuid.UUID
	From       Status
	To         Status
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("transaction %s cannot move from %s to %s", e.ExternalID, e.From, e.To)
}

func (e InvalidTransitionError) Is(target error) bool {
	return target == shared.ErrInvalidTransition
}

// ErrConcurrentModification indicates the version check of an update failed
type ErrConcurrentModification struct {
	ExternalID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for transaction: " + e.ExternalID.String()
}

// Is treats a lost version race as transient so the message is retried
func (e ErrConcurrentModification) Is(target error) bool {
	return target == shared.ErrTransientIO
}

// ErrTransferTypeNotFound indicates the transferTypeId does not resolve
type ErrTransferTypeNotFound struct {
	ID int
}

func (e ErrTransferTypeNotFound) Error() string {
	return "transfer type not found: " + strconv.Itoa(e.ID)
}

func (e ErrTransferTypeNotFound) Is(target error) bool {
	return target == shared.ErrInvalidReference
}

// ErrStatusDefinitionMissing indicates transaction_statuses lacks a required row
type ErrStatusDefinitionMissing struct {
	Status Status
}

func (e ErrStatusDefinitionMissing) Error() string {
	return "status definition missing: " + e.Status.DefinitionName()
}

func (e ErrStatusDefinitionMissing) Is(target error) bool {
	return target == shared.ErrInvariantViolation
}
