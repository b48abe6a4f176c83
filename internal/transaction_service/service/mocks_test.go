package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/transfer-antifraud-saga/internal/domain/outbox"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/domain/transaction"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeTxRunner runs fn without a real transaction and records whether it committed
type fakeTxRunner struct {
	committed  int
	rolledBack int
}

func (f *fakeTxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	if err := fn(nil); err != nil {
		f.rolledBack++
		return err
	}
	f.committed++
	return nil
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *transaction.Transaction, statusID int) (bool, error) {
	args := m.Called(ctx, t, statusID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) GetByExternalID(ctx context.Context, externalID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, externalID)
	t, _ := args.Get(0).(*transaction.Transaction)
	return t, args.Error(1)
}

func (m *MockTransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	args := m.Called(ctx, key)
	t, _ := args.Get(0).(*transaction.Transaction)
	return t, args.Error(1)
}

func (m *MockTransactionRepository) LockForUpdate(ctx context.Context, externalID uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, externalID)
	t, _ := args.Get(0).(*transaction.Transaction)
	return t, args.Error(1)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, t *transaction.Transaction, statusID int, expectedVersion int64) error {
	return m.Called(ctx, t, statusID, expectedVersion).Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, q transaction.ListQuery) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, q)
	rows, _ := args.Get(0).([]*transaction.Transaction)
	return rows, args.Error(1)
}

func (m *MockTransactionRepository) Count(ctx context.Context, status *transaction.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(pgx.Tx) transaction.Repository {
	return m
}

type MockReferenceRepository struct {
	mock.Mock
}

func (m *MockReferenceRepository) TransferTypeByID(ctx context.Context, id int) (*transaction.TransferType, error) {
	args := m.Called(ctx, id)
	tt, _ := args.Get(0).(*transaction.TransferType)
	return tt, args.Error(1)
}

func (m *MockReferenceRepository) StatusByName(ctx context.Context, status transaction.Status) (*transaction.StatusDefinition, error) {
	args := m.Called(ctx, status)
	def, _ := args.Get(0).(*transaction.StatusDefinition)
	return def, args.Error(1)
}

func (m *MockReferenceRepository) WithTx(pgx.Tx) transaction.ReferenceRepository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, msg *outbox.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	msgs, _ := args.Get(0).([]*outbox.Message)
	return msgs, args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) WithTx(pgx.Tx) outbox.Repository {
	return m
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetView(ctx context.Context, externalID uuid.UUID) (*transaction.View, error) {
	args := m.Called(ctx, externalID)
	v, _ := args.Get(0).(*transaction.View)
	return v, args.Error(1)
}

func (m *MockCache) PutView(ctx context.Context, version int64, v transaction.View) error {
	return m.Called(ctx, version, v).Error(0)
}

func (m *MockCache) GetPage(ctx context.Context, q transaction.ListQuery) (*transaction.Page, int64, error) {
	args := m.Called(ctx, q)
	p, _ := args.Get(0).(*transaction.Page)
	return p, args.Get(1).(int64), args.Error(2)
}

func (m *MockCache) PutPage(ctx context.Context, q transaction.ListQuery, generation int64, p transaction.Page) error {
	return m.Called(ctx, q, generation, p).Error(0)
}

func (m *MockCache) InvalidateLists(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) TransactionCreated(created bool) {
	m.Called(created)
}

func (m *MockRecorder) StatusTransition(status string, applied bool) {
	m.Called(status, applied)
}

func (m *MockRecorder) CacheLookup(result string) {
	m.Called(result)
}

var transferType = transaction.TransferType{ID: 1, Name: "TRANSFER"}

func pendingTransaction() *transaction.Transaction {
	return &transaction.Transaction{
		ID:              7,
		ExternalID:      uuid.MustParse("0b4cf3a2-9d2f-4c58-8f6b-2f6a3c5a1e10"),
		DebitAccountID:  uuid.New(),
		CreditAccountID: uuid.New(),
		TransferType:    transferType,
		Status:          transaction.StatusPending,
		CreatedAt:       fixedNow.Add(-time.Minute),
		UpdatedAt:       fixedNow.Add(-time.Minute),
		Version:         1,
	}
}
