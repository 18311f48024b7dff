package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/models"
)

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByAffiliateCode resolves an agent from their affiliate code. Returns
// (nil, nil) for an unknown code: an unknown code is a normal outcome, not an
// error, and simply means no commission.
func (r *UserRepository) FindByAffiliateCode(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, nil
	}
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"affiliateCode": code}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IncrementBalance credits an agent's balance with an atomic $inc; never a
// read-modify-write in application code.
func (r *UserRepository) IncrementBalance(ctx context.Context, id primitive.ObjectID, amount int64) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"balance": amount},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	return err
}

// SetReferredByIfUnset patches referredBy only while it is still missing;
// once attributed, an upline is never overwritten.
func (r *UserRepository) SetReferredByIfUnset(ctx context.Context, id, referrerID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{
		"_id":        id,
		"referredBy": nil,
	}, bson.M{
		"$set": bson.M{"referredBy": referrerID, "updatedAt": time.Now()},
	})
	return err
}

// SetTierIfUnset backfills a missing tier exactly once.
func (r *UserRepository) SetTierIfUnset(ctx context.Context, id, tierID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{
		"_id":    id,
		"tierId": nil,
	}, bson.M{
		"$set": bson.M{"tierId": tierID, "updatedAt": time.Now()},
	})
	return err
}

// SetTier assigns a tier unconditionally; used when a tier-upgrade purchase
// succeeds.
func (r *UserRepository) SetTier(ctx context.Context, id, tierID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"tierId": tierID, "updatedAt": time.Now()},
	})
	return err
}

// SetAffiliateCodeIfUnset backfills a missing affiliate code. Returns
// (false, nil) when nothing was written, either because the unique index
// rejected the candidate code or the user already holds a code; the caller
// may retry once with a fresh suffix.
func (r *UserRepository) SetAffiliateCodeIfUnset(ctx context.Context, id primitive.ObjectID, code string) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, bson.M{
		"_id":           id,
		"affiliateCode": nil,
	}, bson.M{
		"$set": bson.M{"affiliateCode": code, "updatedAt": time.Now()},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ListDownlines returns the agents directly referred by the given agent.
func (r *UserRepository) ListDownlines(ctx context.Context, agentID primitive.ObjectID) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"referredBy": agentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}
