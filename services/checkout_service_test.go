// services/checkout_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
)

func newCheckoutService(mt *mtest.T) *CheckoutService {
	return NewCheckoutService(mt.DB,
		repositories.NewTransactionRepository(mt.DB),
		repositories.NewUserRepository(mt.DB))
}

func TestResolveTransactionGuestReuse(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("a guest reload resumes the open checkout", func(mt *mtest.T) {
		leadID := primitive.NewObjectID()
		pendingID := primitive.NewObjectID()
		mt.AddMockResponses(
			// No account under this email.
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, "digitalsquad.leads", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: leadID},
				{Key: "name", Value: "Guest"},
				{Key: "email", Value: "guest@example.com"},
				{Key: "status", Value: models.LeadStatusNew},
			}),
			mtest.CreateCursorResponse(0, "digitalsquad.transactions", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: pendingID},
				{Key: "orderId", Value: "order-42"},
				{Key: "amount", Value: int64(150000)},
				{Key: "type", Value: models.TransactionTypeRegistration},
				{Key: "status", Value: models.TransactionStatusPending},
				{Key: "leadId", Value: leadID},
			}),
		)
		svc := newCheckoutService(mt)
		req := &models.CreateIntentRequest{
			Name:  "Guest",
			Email: "guest@example.com",
			Type:  models.TransactionTypeRegistration,
		}

		tx, product, err := svc.resolveTransaction(ctx, req, &models.GatewaySettings{})
		require.NoError(mt, err)
		require.NotNil(mt, tx)
		assert.Equal(mt, pendingID, tx.ID)
		assert.Equal(mt, "order-42", tx.OrderID)
		assert.Nil(mt, product)

		// The open checkout was reused, never re-minted.
		for _, ev := range mt.GetAllStartedEvents() {
			assert.NotEqual(mt, "insert", ev.CommandName)
		}
	})

	mt.Run("an unknown guest still gets a fresh transaction", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, "digitalsquad.leads", mtest.FirstBatch),
			mtest.CreateCursorResponse(0, "digitalsquad.leads", mtest.FirstBatch),
			mtest.CreateSuccessResponse(), // lead insert
			mtest.CreateSuccessResponse(), // transaction insert
		)
		svc := newCheckoutService(mt)
		req := &models.CreateIntentRequest{
			Name:  "Guest",
			Email: "guest@example.com",
			Type:  models.TransactionTypeRegistration,
		}

		tx, product, err := svc.resolveTransaction(ctx, req, &models.GatewaySettings{RegistrationFee: 150000})
		require.NoError(mt, err)
		require.NotNil(mt, tx)
		assert.Equal(mt, models.TransactionStatusPending, tx.Status)
		assert.Equal(mt, int64(150000), tx.Amount)
		assert.NotEmpty(mt, tx.OrderID)
		assert.Nil(mt, product)
	})
}
