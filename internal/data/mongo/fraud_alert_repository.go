// Package mongo stores the fraud alert audit trail in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-banking-ledger/internal/domain/alert"
)

const (
	// FraudAlertCollectionName is the name of the fraud alert collection in MongoDB
	FraudAlertCollectionName = "fraud_alerts"
)

var _ alert.Repository = (*FraudAlertRepository)(nil)

// FraudAlertRepository implements the alert.Repository interface for MongoDB
type FraudAlertRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewFraudAlertRepository creates a new MongoDB fraud alert repository
func NewFraudAlertRepository(logger *slog.Logger, db *mongo.Database) *FraudAlertRepository {
	return &FraudAlertRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the owner/time index used by the read paths.
func (r *FraudAlertRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(FraudAlertCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "detected_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create fraud alert index: %w", err)
	}
	return nil
}

// Create stores an alert. The alert id is the document id, so a replayed
// alert is rejected with ErrDuplicateAlert.
func (r *FraudAlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	collection := r.db.Collection(FraudAlertCollectionName)

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := collection.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return alert.ErrDuplicateAlert{AlertID: a.ID}
		}
		r.logger.Error("Failed to create fraud alert",
			"owner_id", a.OwnerID.String(),
			"rule", a.Rule,
			"error", err)
		return fmt.Errorf("failed to create fraud alert: %w", err)
	}

	return nil
}

// GetByOwnerID retrieves paginated alerts for an owner, newest first.
func (r *FraudAlertRepository) GetByOwnerID(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*alert.Alert, error) {
	collection := r.db.Collection(FraudAlertCollectionName)

	filter := bson.M{"owner_id": ownerID}
	opts := options.Find().
		SetSort(bson.M{"detected_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get fraud alerts",
			"owner_id", ownerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get fraud alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []*alert.Alert
	if err := cursor.All(ctx, &alerts); err != nil {
		r.logger.Error("Failed to decode fraud alerts",
			"owner_id", ownerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode fraud alerts: %w", err)
	}

	return alerts, nil
}

// CountSince counts the alerts raised for an owner at or after since.
func (r *FraudAlertRepository) CountSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (int64, error) {
	collection := r.db.Collection(FraudAlertCollectionName)

	filter := bson.M{
		"owner_id":    ownerID,
		"detected_at": bson.M{"$gte": since},
	}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count fraud alerts",
			"owner_id", ownerID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count fraud alerts: %w", err)
	}

	return count, nil
}
