package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/transfer-antifraud-saga/internal/domain/events"
	"github.com/transfer-antifraud-saga/internal/domain/shared"
	"github.com/transfer-antifraud-saga/internal/domain/transaction"
)

type coordinatorFixture struct {
	db       *fakeTxRunner
	repo     *MockTransactionRepository
	refs     *MockReferenceRepository
	cache    *MockCache
	recorder *MockRecorder
	svc      *StatusCoordinatorImpl
}

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		db:       &fakeTxRunner{},
		repo:     new(MockTransactionRepository),
		refs:     new(MockReferenceRepository),
		cache:    new(MockCache),
		recorder: new(MockRecorder),
	}
	f.svc = NewStatusCoordinator(f.db, f.repo, f.refs, f.cache, f.recorder, newTestLogger())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func verdictFor(t *testing.T, tx *transaction.Transaction, status events.VerdictStatus) events.TransactionStatusUpdatedEvent {
	t.Helper()
	event, err := events.NewStatusUpdatedEvent(tx.ExternalID, status, "Transaction passed all fraud validations", fixedNow)
	require.NoError(t, err)
	return event
}

func TestStatusCoordinator_ApplyVerdict(t *testing.T) {
	ctx := context.Background()

	t.Run("applies verdict to pending transaction", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()

		f.repo.On("LockForUpdate", ctx, stored.ExternalID).Return(stored, nil).Once()
		f.refs.On("StatusByName", ctx, transaction.StatusApproved).Return(&transaction.StatusDefinition{ID: 2, Name: "approved"}, nil).Once()
		f.repo.On("UpdateStatus", ctx, stored, 2, int64(1)).Return(nil).Once()
		f.recorder.On("StatusTransition", "APPROVED", true).Once()
		f.cache.On("PutView", ctx, int64(2), mock.MatchedBy(func(v transaction.View) bool {
			return v.Status == transaction.StatusApproved && v.UpdatedAt.Equal(fixedNow)
		})).Return(nil).Once()
		f.cache.On("InvalidateLists", ctx).Return(nil).Once()

		applied, err := f.svc.ApplyVerdict(ctx, verdictFor(t, stored, events.VerdictApproved))
		require.NoError(t, err)
		assert.True(t, bool(applied))
		assert.Equal(t, transaction.StatusApproved, stored.Status)
		assert.Equal(t, int64(2), stored.Version)
		assert.Equal(t, 1, f.db.committed)

		f.repo.AssertExpectations(t)
		f.refs.AssertExpectations(t)
		f.cache.AssertExpectations(t)
		f.recorder.AssertExpectations(t)
	})

	t.Run("repeated verdict is a no-op", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()
		stored.Status = transaction.StatusRejected
		stored.Version = 2

		f.repo.On("LockForUpdate", ctx, stored.ExternalID).Return(stored, nil).Once()
		f.recorder.On("StatusTransition", "REJECTED", false).Once()

		applied, err := f.svc.ApplyVerdict(ctx, verdictFor(t, stored, events.VerdictRejected))
		require.NoError(t, err)
		assert.False(t, bool(applied))
		assert.Equal(t, int64(2), stored.Version)

		f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.cache.AssertNotCalled(t, "PutView", mock.Anything, mock.Anything, mock.Anything)
		f.recorder.AssertExpectations(t)
	})

	t.Run("conflicting verdict is an invalid transition", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()
		stored.Status = transaction.StatusApproved

		f.repo.On("LockForUpdate", ctx, stored.ExternalID).Return(stored, nil).Once()

		_, err := f.svc.ApplyVerdict(ctx, verdictFor(t, stored, events.VerdictRejected))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.Equal(t, transaction.StatusApproved, stored.Status)
		assert.Equal(t, 1, f.db.rolledBack)
		f.recorder.AssertNotCalled(t, "StatusTransition", mock.Anything, mock.Anything)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()
		f.repo.On("LockForUpdate", ctx, stored.ExternalID).
			Return(nil, transaction.ErrTransactionNotFound{ExternalID: stored.ExternalID}).Once()

		_, err := f.svc.ApplyVerdict(ctx, verdictFor(t, stored, events.VerdictApproved))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("missing status definition is an invariant violation", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()
		f.repo.On("LockForUpdate", ctx, stored.ExternalID).Return(stored, nil).Once()
		f.refs.On("StatusByName", ctx, transaction.StatusApproved).
			Return(nil, transaction.ErrStatusDefinitionMissing{Status: transaction.StatusApproved}).Once()

		_, err := f.svc.ApplyVerdict(ctx, verdictFor(t, stored, events.VerdictApproved))
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
		f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("lost version race is transient", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()
		f.repo.On("LockForUpdate", ctx, stored.ExternalID).Return(stored, nil).Once()
		f.refs.On("StatusByName", ctx, transaction.StatusApproved).Return(&transaction.StatusDefinition{ID: 2}, nil)
		f.repo.On("UpdateStatus", ctx, stored, 2, int64(1)).
			Return(transaction.ErrConcurrentModification{ExternalID: stored.ExternalID}).Once()

		_, err := f.svc.ApplyVerdict(ctx, verdictFor(t, stored, events.VerdictApproved))
		assert.ErrorIs(t, err, shared.ErrTransientIO)
	})

	t.Run("cache failure after commit is tolerated", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()
		f.repo.On("LockForUpdate", ctx, stored.ExternalID).Return(stored, nil)
		f.refs.On("StatusByName", ctx, transaction.StatusRejected).Return(&transaction.StatusDefinition{ID: 3}, nil)
		f.repo.On("UpdateStatus", ctx, stored, 3, int64(1)).Return(nil)
		f.recorder.On("StatusTransition", "REJECTED", true)
		f.cache.On("PutView", ctx, int64(2), mock.Anything).Return(errors.New("redis down"))
		f.cache.On("InvalidateLists", ctx).Return(errors.New("redis down"))

		applied, err := f.svc.ApplyVerdict(ctx, verdictFor(t, stored, events.VerdictRejected))
		require.NoError(t, err)
		assert.True(t, bool(applied))
	})

	t.Run("pending verdict is rejected before locking", func(t *testing.T) {
		f := newCoordinatorFixture()
		stored := pendingTransaction()
		event := verdictFor(t, stored, events.VerdictApproved)
		event.Status = "PENDING"

		_, err := f.svc.ApplyVerdict(ctx, event)
		assert.ErrorIs(t, err, shared.ErrValidation)
		f.repo.AssertNotCalled(t, "LockForUpdate", mock.Anything, mock.Anything)
	})
}
