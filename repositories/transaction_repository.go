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

type TransactionRepository struct {
	collection *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection("transactions"),
	}
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, tx)
	return err
}

func (r *TransactionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&tx)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindByGatewayRef looks a transaction up by the provider-side reference,
// for webhook payloads that omit the order reference.
func (r *TransactionRepository) FindByGatewayRef(ctx context.Context, gatewayRef string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"gatewayRef": gatewayRef}).Decode(&tx)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindLatestPending returns the most recent pending transaction for a
// (user, type) pair, or nil when none exists. The intent creator reuses it
// instead of offering the payer a second open checkout.
func (r *TransactionRepository) FindLatestPending(ctx context.Context, userID primitive.ObjectID, txType string) (*models.Transaction, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{
		"userId": userID,
		"type":   txType,
		"status": models.TransactionStatusPending,
	}, opts).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindLatestPendingByLead is the guest-flow variant keyed on the lead.
func (r *TransactionRepository) FindLatestPendingByLead(ctx context.Context, leadID primitive.ObjectID, txType string) (*models.Transaction, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var tx models.Transaction
	err := r.collection.FindOne(ctx, bson.M{
		"leadId": leadID,
		"type":   txType,
		"status": models.TransactionStatusPending,
	}, opts).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// AttachGateway persists the chosen gateway, its correlation id and the hosted
// payment link on the transaction.
func (r *TransactionRepository) AttachGateway(ctx context.Context, id primitive.ObjectID, gateway, gatewayRef, paymentURL string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"gateway":    gateway,
			"gatewayRef": gatewayRef,
			"paymentUrl": paymentURL,
			"updatedAt":  time.Now(),
		},
	})
	return err
}

// MarkStatus applies a terminal status with a conditional update: it only
// succeeds while the stored status is still pending. Returns true when this
// call won the transition; a false return means another invocation (webhook
// vs poll race) already moved the transaction to a terminal state and the
// caller must skip its own pipeline.
func (r *TransactionRepository) MarkStatus(ctx context.Context, id primitive.ObjectID, status string) (bool, error) {
	now := time.Now()
	update := bson.M{
		"status":    status,
		"updatedAt": now,
	}
	if status == models.TransactionStatusSuccess {
		update["paidAt"] = now
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{
		"_id":    id,
		"status": models.TransactionStatusPending,
	}, bson.M{"$set": update})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *TransactionRepository) List(ctx context.Context, filter bson.M, page, limit int64) ([]models.Transaction, error) {
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

	var transactions []models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}
