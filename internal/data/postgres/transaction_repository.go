// Package postgres provides PostgreSQL implementations of the transaction
// service repositories. Every repository can be rebound to a pgx.Tx with
// WithTx so that several writes commit as one unit.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/transfer-antifraud-saga/internal/domain/transaction"
	"github.com/transfer-antifraud-saga/internal/platform/persistence"
)

const selectTransaction = `
		SELECT t.id, t.external_id, t.idempotency_key, t.account_external_id_debit, t.account_external_id_credit,
			tt.id, tt.name, ts.name, t.value, t.created_at, t.updated_at, t.version
		FROM transactions t
		JOIN transaction_types tt ON tt.id = t.transaction_type_id
		JOIN transaction_statuses ts ON ts.id = t.transaction_status_id`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the transaction unless its idempotency key is already stored.
// The partial unique index on idempotency_key makes the check and the insert a
// single atomic step, so concurrent duplicates cannot both win.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction, statusID int) (bool, error) {
	query := `
		INSERT INTO transactions (external_id, idempotency_key, account_external_id_debit, account_external_id_credit,
			transaction_type_id, transaction_status_id, value, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		t.ExternalID,
		t.IdempotencyKey,
		t.DebitAccountID,
		t.CreditAccountID,
		t.TransferType.ID,
		statusID,
		t.Value,
		t.CreatedAt,
		t.UpdatedAt,
		t.Version,
	).Scan(&t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		r.logger.Error("Failed to create transaction",
			"external_id", t.ExternalID.String(),
			"error", err)
		return false, fmt.Errorf("failed to create transaction: %w", err)
	}

	return true, nil
}

// GetByExternalID retrieves a transaction by its public identifier
func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID uuid.UUID) (*transaction.Transaction, error) {
	query := selectTransaction + `
		WHERE t.external_id = $1
	`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ExternalID: externalID}
		}
		r.logger.Error("Failed to get transaction", "external_id", externalID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

// GetByIdempotencyKey returns nil, nil when no transaction owns the key
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	query := selectTransaction + `
		WHERE t.idempotency_key = $1
	`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by idempotency key", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", err)
	}

	return t, nil
}

// LockForUpdate reads the transaction and holds its row lock until the
// surrounding database transaction commits or rolls back. Only the
// transactions row is locked, never the reference rows it joins.
func (r *TransactionRepository) LockForUpdate(ctx context.Context, externalID uuid.UUID) (*transaction.Transaction, error) {
	query := selectTransaction + `
		WHERE t.external_id = $1
		FOR UPDATE OF t
	`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ExternalID: externalID}
		}
		r.logger.Error("Failed to lock transaction for update", "external_id", externalID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock transaction for update: %w", err)
	}

	return t, nil
}

// UpdateStatus writes the new status. Returns ErrConcurrentModification if the
// stored version is no longer expectedVersion.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, t *transaction.Transaction, statusID int, expectedVersion int64) error {
	query := `
		UPDATE transactions
		SET transaction_status_id = $1, updated_at = $2, version = $3
		WHERE external_id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query, statusID, t.UpdatedAt, t.Version, t.ExternalID, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update transaction status", "external_id", t.ExternalID.String(), "error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrConcurrentModification{ExternalID: t.ExternalID}
	}

	return nil
}

// List returns one page of transactions, newest first, optionally filtered by status
func (r *TransactionRepository) List(ctx context.Context, q transaction.ListQuery) ([]*transaction.Transaction, error) {
	query := selectTransaction + `
		WHERE ($1::text IS NULL OR ts.name = $1)
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, statusFilter(q.Status), q.Size, q.Offset())
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var result []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return result, nil
}

// Count returns the number of transactions matching the optional status
func (r *TransactionRepository) Count(ctx context.Context, status *transaction.Status) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM transactions t
		JOIN transaction_statuses ts ON ts.id = t.transaction_status_id
		WHERE ($1::text IS NULL OR ts.name = $1)
	`

	var total int64
	if err := r.querier.QueryRow(ctx, query, statusFilter(status)).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "error", err)
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return total, nil
}

func statusFilter(status *transaction.Status) *string {
	if status == nil {
		return nil
	}
	name := status.DefinitionName()
	return &name
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		t          transaction.Transaction
		statusName string
	)
	err := row.Scan(
		&t.ID,
		&t.ExternalID,
		&t.IdempotencyKey,
		&t.DebitAccountID,
		&t.CreditAccountID,
		&t.TransferType.ID,
		&t.TransferType.Name,
		&statusName,
		&t.Value,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}

	status, err := transaction.ParseStatus(statusName)
	if err != nil {
		return nil, err
	}
	t.Status = status

	return &t, nil
}
