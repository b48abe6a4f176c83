package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/transfer-antifraud-saga/internal/domain/verdict"
)

const (
	// VerdictCollectionName is the name of the fraud verdict collection in MongoDB
	VerdictCollectionName = "fraud_verdicts"
)

// VerdictRepository implements the verdict.Repository interface for MongoDB
type VerdictRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewVerdictRepository creates a new MongoDB verdict repository
func NewVerdictRepository(logger *slog.Logger, db *mongo.Database) *VerdictRepository {
	return &VerdictRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique index that makes one verdict per transaction
// a store-level guarantee.
func (r *VerdictRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(VerdictCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "transaction_external_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_transaction_external_id"),
	})
	if err != nil {
		return fmt.Errorf("failed to create verdict indexes: %w", err)
	}
	return nil
}

// Create stores a new verdict. The unique index turns a concurrent second
// insert for the same transaction into ErrDuplicateVerdict.
func (r *VerdictRepository) Create(ctx context.Context, v *verdict.Verdict) error {
	collection := r.db.Collection(VerdictCollectionName)

	if _, err := collection.InsertOne(ctx, v); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			id, _ := uuid.Parse(v.TransactionExternalID)
			return verdict.ErrDuplicateVerdict{TransactionExternalID: id}
		}
		r.logger.Error("Failed to create verdict",
			"transaction_external_id", v.TransactionExternalID,
			"error", err)
		return fmt.Errorf("failed to create verdict: %w", err)
	}

	return nil
}

// GetByTransactionID returns ErrVerdictNotFound when no decision was stored yet
func (r *VerdictRepository) GetByTransactionID(ctx context.Context, externalID uuid.UUID) (*verdict.Verdict, error) {
	collection := r.db.Collection(VerdictCollectionName)

	var v verdict.Verdict
	err := collection.FindOne(ctx, bson.M{"transaction_external_id": externalID.String()}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, verdict.ErrVerdictNotFound{TransactionExternalID: externalID}
		}
		r.logger.Error("Failed to get verdict",
			"transaction_external_id", externalID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get verdict: %w", err)
	}

	return &v, nil
}

// MarkPublished stamps the verdict once its status event reached the broker
func (r *VerdictRepository) MarkPublished(ctx context.Context, externalID uuid.UUID, at time.Time) error {
	collection := r.db.Collection(VerdictCollectionName)

	filter := bson.M{"transaction_external_id": externalID.String()}
	update := bson.M{"$set": bson.M{"published_at": at}}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to mark verdict as published",
			"transaction_external_id", externalID.String(),
			"error", err)
		return fmt.Errorf("failed to mark verdict as published: %w", err)
	}
	if result.MatchedCount == 0 {
		return verdict.ErrVerdictNotFound{TransactionExternalID: externalID}
	}

	return nil
}

var _ verdict.Repository = (*VerdictRepository)(nil)
