package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frostextreme11/digitalsquad-sub001/models"
)

type CommissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) *CommissionRepository {
	return &CommissionRepository{
		collection: db.Collection("commissions"),
	}
}

// ExistsFor reports whether a commission already exists for the
// (agent, transaction) pair. This is the cheap pre-check; the unique index
// remains the authoritative guard under concurrency.
func (r *CommissionRepository) ExistsFor(ctx context.Context, agentID, transactionID primitive.ObjectID) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{
		"agentId":       agentID,
		"transactionId": transactionID,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Insert writes a commission row. Returns (false, nil) when the unique index
// on (agentId, transactionId) rejected a duplicate: a concurrent
// reconciliation already recorded this commission, so the caller must not
// credit the balance again.
func (r *CommissionRepository) Insert(ctx context.Context, commission *models.Commission) (bool, error) {
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	commission.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, commission)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *CommissionRepository) ListByAgent(ctx context.Context, agentID primitive.ObjectID, page, limit int64) ([]models.Commission, error) {
	return r.list(ctx, bson.M{"agentId": agentID}, page, limit)
}

func (r *CommissionRepository) ListAll(ctx context.Context, page, limit int64) ([]models.Commission, error) {
	return r.list(ctx, bson.M{}, page, limit)
}

func (r *CommissionRepository) list(ctx context.Context, filter bson.M, page, limit int64) ([]models.Commission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var commissions []models.Commission
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}
