package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestSetAffiliateCodeIfUnset(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("claims a missing code", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		repo := NewUserRepository(mt.DB)

		ok, err := repo.SetAffiliateCodeIfUnset(ctx, primitive.NewObjectID(), "BUDI1234")
		require.NoError(mt, err)
		assert.True(mt, ok)
	})

	mt.Run("reports nothing written when the code is already set", func(mt *mtest.T) {
		// Filter matched no document: another reconciliation already
		// assigned a code. This must not be reported as a fresh claim.
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		repo := NewUserRepository(mt.DB)

		ok, err := repo.SetAffiliateCodeIfUnset(ctx, primitive.NewObjectID(), "BUDI1234")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})

	mt.Run("treats a unique index rejection as a retryable miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		repo := NewUserRepository(mt.DB)

		ok, err := repo.SetAffiliateCodeIfUnset(ctx, primitive.NewObjectID(), "BUDI1234")
		require.NoError(mt, err)
		assert.False(mt, ok)
	})
}
