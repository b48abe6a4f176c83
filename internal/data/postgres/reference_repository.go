package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/transfer-antifraud-saga/internal/domain/transaction"
	"github.com/transfer-antifraud-saga/internal/platform/persistence"
)

// ReferenceRepository reads the seeded transaction_types and transaction_statuses tables
type ReferenceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewReferenceRepository creates a new PostgreSQL reference data repository
func NewReferenceRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.ReferenceRepository {
	return &ReferenceRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

func (r *ReferenceRepository) WithTx(tx pgx.Tx) transaction.ReferenceRepository {
	return &ReferenceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// TransferTypeByID returns ErrTransferTypeNotFound for an unknown id
func (r *ReferenceRepository) TransferTypeByID(ctx context.Context, id int) (*transaction.TransferType, error) {
	query := `
		SELECT id, name
		FROM transaction_types
		WHERE id = $1
	`

	var tt transaction.TransferType
	if err := r.querier.QueryRow(ctx, query, id).Scan(&tt.ID, &tt.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransferTypeNotFound{ID: id}
		}
		r.logger.Error("Failed to get transfer type", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get transfer type: %w", err)
	}

	return &tt, nil
}

// StatusByName returns ErrStatusDefinitionMissing when the seed row is absent
func (r *ReferenceRepository) StatusByName(ctx context.Context, status transaction.Status) (*transaction.StatusDefinition, error) {
	query := `
		SELECT id, name, COALESCE(description, '')
		FROM transaction_statuses
		WHERE name = $1
	`

	var def transaction.StatusDefinition
	err := r.querier.QueryRow(ctx, query, status.DefinitionName()).Scan(&def.ID, &def.Name, &def.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrStatusDefinitionMissing{Status: status}
		}
		r.logger.Error("Failed to get status definition", "status", string(status), "error", err)
		return nil, fmt.Errorf("failed to get status definition: %w", err)
	}

	return &def, nil
}
