package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction persistence operations
type Repository interface {
	// Create inserts t unless its idempotency key is already taken. It reports
	// false without writing when another row owns the key.
	Create(ctx context.Context, t *Transaction, statusID int) (bool, error)
	GetByExternalID(ctx context.Context, externalID uuid.UUID) (*Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Transaction, error)

	// LockForUpdate loads the row and holds its lock until the enclosing transaction ends
	LockForUpdate(ctx context.Context, externalID uuid.UUID) (*Transaction, error)

	// UpdateStatus persists a transition, guarded by the version the caller read
	UpdateStatus(ctx context.Context, t *Transaction, statusID int, expectedVersion int64) error

	List(ctx context.Context, q ListQuery) ([]*Transaction, error)
	Count(ctx context.Context, status *Status) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ReferenceRepository resolves the transfer type and status enumerations
type ReferenceRepository interface {
	TransferTypeByID(ctx context.Context, id int) (*TransferType, error)
	StatusByName(ctx context.Context, status Status) (*StatusDefinition, error)
	WithTx(tx pgx.Tx) ReferenceRepository
}
