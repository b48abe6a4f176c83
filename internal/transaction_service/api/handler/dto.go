package handler

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/domain/transaction"
)

// CreateTransactionRequest is the body of POST /transactions. value accepts a
// JSON number or a decimal string.
type CreateTransactionRequest struct {
	AccountExternalIDDebit  string          `json:"accountExternalIdDebit"`
	AccountExternalIDCredit string          `json:"accountExternalIdCredit"`
	TransferTypeID          int             `json:"transferTypeId"`
	Value                   decimal.Decimal `json:"value"`
	IdempotencyKey          string          `json:"idempotencyKey"`
}

// ToParams parses the account ids. Range checks stay with the domain.
func (r CreateTransactionRequest) ToParams() (transaction.CreateParams, error) {
	debit, err := parseAccountID("accountExternalIdDebit", r.AccountExternalIDDebit)
	if err != nil {
		return transaction.CreateParams{}, err
	}
	credit, err := parseAccountID("accountExternalIdCredit", r.AccountExternalIDCredit)
	if err != nil {
		return transaction.CreateParams{}, err
	}

	return transaction.CreateParams{
		DebitAccountID:  debit,
		CreditAccountID: credit,
		TransferTypeID:  r.TransferTypeID,
		Value:           r.Value,
		IdempotencyKey:  r.IdempotencyKey,
	}, nil
}

func parseAccountID(field, raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, shared.ValidationError{Field: field, Message: "is required"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.ValidationError{Field: field, Message: "must be a UUID"}
	}
	return id, nil
}

// ListTransactionsQuery holds the raw query string of GET /transactions
type ListTransactionsQuery struct {
	Page   string `form:"page"`
	Size   string `form:"size"`
	Status string `form:"status"`
}

// ToListQuery parses the numbers and the optional status filter
func (q ListTransactionsQuery) ToListQuery() (transaction.ListQuery, error) {
	var out transaction.ListQuery

	if q.Page != "" {
		page, err := strconv.Atoi(q.Page)
		if err != nil {
			return out, shared.ValidationError{Field: "page", Message: "must be an integer"}
		}
		out.Page = page
	}
	if q.Size != "" {
		size, err := strconv.Atoi(q.Size)
		if err != nil {
			return out, shared.ValidationError{Field: "size", Message: "must be an integer"}
		}
		if size == 0 {
			return out, shared.ValidationError{Field: "size", Message: "must be between 1 and 100"}
		}
		out.Size = size
	}
	if q.Status != "" {
		status, err := transaction.ParseStatus(q.Status)
		if err != nil {
			return out, err
		}
		out.Status = &status
	}

	return out.Normalize()
}
