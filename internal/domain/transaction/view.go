package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps Offset far from int overflow
	MaxPage = 10_000_000
)

// View is the externally visible snapshot of a transaction. It is what the read
// cache stores and what the query surface returns.
type View struct {
	TransactionID   uuid.UUID       `json:"transactionId"`
	DebitAccountID  uuid.UUID       `json:"accountExternalIdDebit"`
	CreditAccountID uuid.UUID       `json:"accountExternalIdCredit"`
	TransactionType TransferType    `json:"transactionType"`
	Status          Status          `json:"status"`
	Value           decimal.Decimal `json:"value"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// View projects the aggregate, dropping internal fields
func (t *Transaction) View() View {
	return View{
		TransactionID:   t.ExternalID,
		DebitAccountID:  t.DebitAccountID,
		CreditAccountID: t.CreditAccountID,
		TransactionType: t.TransferType,
		Status:          t.Status,
		Value:           t.Value,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ListQuery selects a zero-based page of transactions, newest first
type ListQuery struct {
	Status *Status
	Page   int
	Size   int
}

// Normalize applies the default page size and rejects out-of-range values
func (q ListQuery) Normalize() (ListQuery, error) {
	if q.Page < 0 {
		return q, shared.ValidationError{Field: "page", Message: "must not be negative"}
	}
	if q.Page > MaxPage {
		return q, shared.ValidationError{Field: "page", Message: "must not exceed 10000000"}
	}
	if q.Size == 0 {
		q.Size = DefaultPageSize
	}
	if q.Size < 0 || q.Size > MaxPageSize {
		return q, shared.ValidationError{Field: "size", Message: "must be between 1 and 100"}
	}
	return q, nil
}

// Offset is the row offset of the first element of the page
func (q ListQuery) Offset() int {
	return q.Page * q.Size
}

// Page is one slice of a listing with its totals
type Page struct {
	Content       []View `json:"content"`
	TotalElements int64  `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
	CurrentPage   int    `json:"currentPage"`
	Size          int    `json:"size"`
}

// NewPage computes totals for a query result
func NewPage(content []View, total int64, q ListQuery) Page {
	if content == nil {
		content = []View{}
	}
	totalPages := 0
	if q.Size > 0 {
		totalPages = int((total + int64(q.Size) - 1) / int64(q.Size))
	}
	return Page{
		Content:       content,
		TotalElements: total,
		TotalPages:    totalPages,
		CurrentPage:   q.Page,
		Size:          q.Size,
	}
}
