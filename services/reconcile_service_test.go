// services/reconcile_service_test.go
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
)

func commandNames(mt *mtest.T) []string {
	names := []string{}
	for _, ev := range mt.GetAllStartedEvents() {
		names = append(names, ev.CommandName)
	}
	return names
}

func TestApplyStatusOutcomes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("a pending report carries no transition", func(mt *mtest.T) {
		svc := NewReconcileService(mt.DB)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Status: models.TransactionStatusPending}

		outcome, err := svc.ApplyStatus(ctx, tx, models.TransactionStatusPending)
		require.NoError(mt, err)
		assert.Equal(mt, ReconcileOutcomeNoTransition, outcome)
		assert.Empty(mt, commandNames(mt))
	})

	mt.Run("a settled transaction ignores late reports", func(mt *mtest.T) {
		svc := NewReconcileService(mt.DB)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Status: models.TransactionStatusFailed}

		outcome, err := svc.ApplyStatus(ctx, tx, models.TransactionStatusSuccess)
		require.NoError(mt, err)
		assert.Equal(mt, ReconcileOutcomeAlreadyTerminal, outcome)
		assert.Empty(mt, commandNames(mt))
	})

	mt.Run("a replayed success resyncs the purchase mirror only", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		svc := NewReconcileService(mt.DB)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Status: models.TransactionStatusSuccess}

		outcome, err := svc.ApplyStatus(ctx, tx, models.TransactionStatusSuccess)
		require.NoError(mt, err)
		assert.Equal(mt, ReconcileOutcomeAlreadyTerminal, outcome)
		assert.Equal(mt, []string{"update"}, commandNames(mt))
	})

	mt.Run("losing the race skips the pipeline", func(mt *mtest.T) {
		// The conditional update matched nothing: another caller already
		// moved the row out of pending.
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		svc := NewReconcileService(mt.DB)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Status: models.TransactionStatusPending}

		outcome, err := svc.ApplyStatus(ctx, tx, models.TransactionStatusSuccess)
		require.NoError(mt, err)
		assert.Equal(mt, ReconcileOutcomeLostRace, outcome)
		assert.Equal(mt, []string{"update"}, commandNames(mt))
	})

	mt.Run("a won failed transition mirrors the purchase", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)
		svc := NewReconcileService(mt.DB)
		tx := &models.Transaction{ID: primitive.NewObjectID(), OrderID: "order-1", Status: models.TransactionStatusPending}

		outcome, err := svc.ApplyStatus(ctx, tx, models.TransactionStatusFailed)
		require.NoError(mt, err)
		assert.Equal(mt, ReconcileOutcomeProcessed, outcome)
		assert.Equal(mt, []string{"update", "update"}, commandNames(mt))
	})

	mt.Run("a failed transition write surfaces the error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11601, Name: "Interrupted", Message: "operation was interrupted",
		}))
		svc := NewReconcileService(mt.DB)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Status: models.TransactionStatusPending}

		outcome, err := svc.ApplyStatus(ctx, tx, models.TransactionStatusSuccess)
		require.Error(mt, err)
		assert.Empty(mt, outcome)
	})
}

func TestPayCommissionsReplay(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("an already recorded commission credits nothing", func(mt *mtest.T) {
		agentID := primitive.NewObjectID()
		txID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "digitalsquad.commissions", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "agentId", Value: agentID},
			{Key: "transactionId", Value: txID},
			{Key: "kind", Value: models.CommissionKindDirect},
		}))
		svc := NewReconcileService(mt.DB)
		tx := &models.Transaction{ID: txID, Amount: 100000, Type: models.TransactionTypeRegistration}
		agent := &models.User{ID: agentID}

		svc.payCommissions(ctx, tx, agent)

		// Only the existence pre-check ran: no insert, no balance write.
		assert.Equal(mt, []string{"find"}, commandNames(mt))
	})
}

func TestCreditCommissionIdempotency(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("a duplicate row never touches the balance", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		svc := NewReconcileService(mt.DB)

		svc.creditCommission(ctx, primitive.NewObjectID(), primitive.NewObjectID(),
			models.CommissionKindDirect, "0.1", 10000)

		assert.Equal(mt, []string{"insert"}, commandNames(mt))
	})

	mt.Run("a fresh credit inserts the row before the increment", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(), // commission row
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}), // balance
			mtest.CreateSuccessResponse(), // notification
		)
		svc := NewReconcileService(mt.DB)

		svc.creditCommission(ctx, primitive.NewObjectID(), primitive.NewObjectID(),
			models.CommissionKindDirect, "0.1", 10000)

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 3)
		assert.Equal(mt, "insert", events[0].CommandName)
		assert.Equal(mt, "commissions", events[0].Command.Lookup("insert").StringValue())
		assert.Equal(mt, "update", events[1].CommandName)
		assert.Equal(mt, "users", events[1].Command.Lookup("update").StringValue())
	})
}
