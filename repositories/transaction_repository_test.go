package repositories

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

func TestMarkStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("wins while the row is still pending", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		repo := NewTransactionRepository(mt.DB)

		won, err := repo.MarkStatus(ctx, primitive.NewObjectID(), models.TransactionStatusSuccess)
		require.NoError(mt, err)
		assert.True(mt, won)
	})

	mt.Run("loses once another caller settled the row", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		repo := NewTransactionRepository(mt.DB)

		won, err := repo.MarkStatus(ctx, primitive.NewObjectID(), models.TransactionStatusFailed)
		require.NoError(mt, err)
		assert.False(mt, won)
	})

	mt.Run("surfaces a write failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 11601, Name: "Interrupted", Message: "operation was interrupted",
		}))
		repo := NewTransactionRepository(mt.DB)

		won, err := repo.MarkStatus(ctx, primitive.NewObjectID(), models.TransactionStatusSuccess)
		require.Error(mt, err)
		assert.False(mt, won)
	})
}
