package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/transfer-antifraud-saga/internal/domain/transaction"
)

// Nop is used when Redis is unreachable at startup; every lookup misses
type Nop struct{}

var _ transaction.Cache = Nop{}

func (Nop) GetView(context.Context, uuid.UUID) (*transaction.View, error) { return nil, nil }

func (Nop) PutView(context.Context, int64, transaction.View) error { return nil }

func (Nop) GetPage(context.Context, transaction.ListQuery) (*transaction.Page, int64, error) {
	return nil, 0, nil
}

func (Nop) PutPage(context.Context, transaction.ListQuery, int64, transaction.Page) error {
	return nil
}

func (Nop) InvalidateLists(context.Context) error { return nil }
