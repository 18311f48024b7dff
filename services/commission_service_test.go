package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
)

func TestApplyRate(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		rate   string
		want   int64
	}{
		{"ten percent of a round amount", 100000, "0.10", 10000},
		{"ten percent is exact, no float drift", 3, "0.10", 0},
		{"thirty percent rounds down", 99999, "0.30", 29999},
		{"five percent override", 150000, "0.05", 7500},
		{"fractional result floors", 101, "0.333", 33},
		{"zero amount", 0, "0.10", 0},
		{"full rate", 25000, "1", 25000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := decimal.NewFromString(tt.rate)
			require.NoError(t, err)
			assert.Equal(t, tt.want, applyRate(tt.amount, rate))
		})
	}
}

// Repeated application over many amounts must stay exact: equal inputs yield
// equal outputs with no accumulation error.
func TestApplyRateDeterministic(t *testing.T) {
	rate := mustRate("0.10")
	for amount := int64(1); amount <= 1000; amount++ {
		first := applyRate(amount, rate)
		second := applyRate(amount, rate)
		require.Equal(t, first, second, "amount %d", amount)
		require.Equal(t, amount/10, first, "amount %d", amount)
	}
}

func TestMustRateDefaultIsValid(t *testing.T) {
	assert.NotPanics(t, func() {
		rate := mustRate(models.DefaultCommissionRate)
		assert.Equal(t, "0.1", rate.String())
	})
}

func TestMustRatePanicsOnGarbage(t *testing.T) {
	assert.Panics(t, func() {
		mustRate("ten percent")
	})
}

func newCommissionService(mt *mtest.T) *CommissionService {
	return NewCommissionService(mt.DB, repositories.NewUserRepository(mt.DB))
}

func userDoc(id primitive.ObjectID, extra ...bson.E) bson.D {
	doc := bson.D{
		{Key: "_id", Value: id},
		{Key: "fullName", Value: "Agent"},
		{Key: "email", Value: "agent@example.com"},
	}
	return append(doc, extra...)
}

func TestResolveAgentFallbackOrder(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("a settled upline outranks the transaction code", func(mt *mtest.T) {
		buyerID := primitive.NewObjectID()
		uplineID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch,
				userDoc(buyerID, bson.E{Key: "referredBy", Value: uplineID})),
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch,
				userDoc(uplineID)),
		)
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID(), UserID: &buyerID, ReferralCode: "SOMEONE1"}

		agent, err := svc.ResolveAgent(ctx, tx)
		require.NoError(mt, err)
		require.NotNil(mt, agent)
		assert.Equal(mt, uplineID, agent.ID)
		// Two profile reads and nothing else: the code was never consulted.
		assert.Equal(mt, []string{"find", "find"}, commandNames(mt))
	})

	mt.Run("the transaction code attributes guest checkouts", func(mt *mtest.T) {
		agentID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch,
			userDoc(agentID, bson.E{Key: "affiliateCode", Value: "AGEN1234"})))
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID(), ReferralCode: "AGEN1234"}

		agent, err := svc.ResolveAgent(ctx, tx)
		require.NoError(mt, err)
		require.NotNil(mt, agent)
		assert.Equal(mt, agentID, agent.ID)
	})

	mt.Run("the lead's stored code is the next fallback", func(mt *mtest.T) {
		leadID := primitive.NewObjectID()
		agentID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.leads", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: leadID},
				{Key: "email", Value: "lead@example.com"},
				{Key: "referralCode", Value: "AGEN1234"},
			}),
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch,
				userDoc(agentID, bson.E{Key: "affiliateCode", Value: "AGEN1234"})),
		)
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID(), LeadID: &leadID}

		agent, err := svc.ResolveAgent(ctx, tx)
		require.NoError(mt, err)
		require.NotNil(mt, agent)
		assert.Equal(mt, agentID, agent.ID)
	})

	mt.Run("the purchase agent code is the last resort", func(mt *mtest.T) {
		txID := primitive.NewObjectID()
		agentID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.product_purchases", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "transactionId", Value: txID},
				{Key: "agentCode", Value: "AGEN1234"},
			}),
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch,
				userDoc(agentID, bson.E{Key: "affiliateCode", Value: "AGEN1234"})),
		)
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: txID}

		agent, err := svc.ResolveAgent(ctx, tx)
		require.NoError(mt, err)
		require.NotNil(mt, agent)
		assert.Equal(mt, agentID, agent.ID)
	})

	mt.Run("no signal resolves to no agent", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "digitalsquad.product_purchases", mtest.FirstBatch))
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID()}

		agent, err := svc.ResolveAgent(ctx, tx)
		require.NoError(mt, err)
		assert.Nil(mt, agent)
	})
}

func TestPrimaryRateSelection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	tierID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	tierDoc := func(rate string) bson.D {
		return bson.D{
			{Key: "_id", Value: tierID},
			{Key: "key", Value: models.TierKeyBasic},
			{Key: "commissionRate", Value: rate},
		}
	}
	purchaseDoc := func(txID primitive.ObjectID) bson.D {
		return bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "transactionId", Value: txID},
			{Key: "productId", Value: productID},
		}
	}
	productDoc := func(rate string) bson.D {
		doc := bson.D{{Key: "_id", Value: productID}, {Key: "title", Value: "Ebook"}}
		if rate != "" {
			doc = append(doc, bson.E{Key: "commissionRate", Value: rate})
		}
		return doc
	}

	mt.Run("the product rate wins when more generous", func(mt *mtest.T) {
		tx := &models.Transaction{ID: primitive.NewObjectID(), Type: models.TransactionTypeProductPurchase, Amount: 100000}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.tiers", mtest.FirstBatch, tierDoc("0.10")),
			mtest.CreateCursorResponse(0, "digitalsquad.product_purchases", mtest.FirstBatch, purchaseDoc(tx.ID)),
			mtest.CreateCursorResponse(0, "digitalsquad.products", mtest.FirstBatch, productDoc("0.30")),
		)
		svc := newCommissionService(mt)
		agent := &models.User{ID: primitive.NewObjectID(), TierID: &tierID}

		rate := svc.primaryRate(ctx, tx, agent)
		assert.Equal(mt, "0.3", rate.String())
	})

	mt.Run("the tier rate wins when the product pays less", func(mt *mtest.T) {
		tx := &models.Transaction{ID: primitive.NewObjectID(), Type: models.TransactionTypeProductPurchase, Amount: 100000}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.tiers", mtest.FirstBatch, tierDoc("0.30")),
			mtest.CreateCursorResponse(0, "digitalsquad.product_purchases", mtest.FirstBatch, purchaseDoc(tx.ID)),
			mtest.CreateCursorResponse(0, "digitalsquad.products", mtest.FirstBatch, productDoc("0.10")),
		)
		svc := newCommissionService(mt)
		agent := &models.User{ID: primitive.NewObjectID(), TierID: &tierID}

		rate := svc.primaryRate(ctx, tx, agent)
		assert.Equal(mt, "0.3", rate.String())
	})

	mt.Run("a product without its own rate keeps the tier rate", func(mt *mtest.T) {
		tx := &models.Transaction{ID: primitive.NewObjectID(), Type: models.TransactionTypeProductPurchase, Amount: 100000}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.tiers", mtest.FirstBatch, tierDoc("0.20")),
			mtest.CreateCursorResponse(0, "digitalsquad.product_purchases", mtest.FirstBatch, purchaseDoc(tx.ID)),
			mtest.CreateCursorResponse(0, "digitalsquad.products", mtest.FirstBatch, productDoc("")),
		)
		svc := newCommissionService(mt)
		agent := &models.User{ID: primitive.NewObjectID(), TierID: &tierID}

		rate := svc.primaryRate(ctx, tx, agent)
		assert.Equal(mt, "0.2", rate.String())
	})

	mt.Run("a tierless agent falls back to the default", func(mt *mtest.T) {
		tx := &models.Transaction{ID: primitive.NewObjectID(), Type: models.TransactionTypeRegistration, Amount: 100000}
		svc := newCommissionService(mt)
		agent := &models.User{ID: primitive.NewObjectID()}

		rate := svc.primaryRate(ctx, tx, agent)
		assert.Equal(mt, "0.1", rate.String())
		assert.Empty(mt, commandNames(mt))
	})
}

func TestComputeOverride(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	uplineID := primitive.NewObjectID()
	uplineTierID := primitive.NewObjectID()

	uplineDoc := func() bson.D {
		return userDoc(uplineID, bson.E{Key: "tierId", Value: uplineTierID})
	}
	tierDoc := func(key, overrideRate string) bson.D {
		doc := bson.D{
			{Key: "_id", Value: uplineTierID},
			{Key: "key", Value: key},
			{Key: "commissionRate", Value: "0.30"},
		}
		if overrideRate != "" {
			doc = append(doc, bson.E{Key: "overrideRate", Value: overrideRate})
		}
		return doc
	}

	mt.Run("an agent without an upline pays no override", func(mt *mtest.T) {
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Amount: 100000}
		agent := &models.User{ID: primitive.NewObjectID()}

		override, err := svc.computeOverride(ctx, tx, agent)
		require.NoError(mt, err)
		assert.Nil(mt, override)
		assert.Empty(mt, commandNames(mt))
	})

	mt.Run("an upline below the top tier earns nothing", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch, uplineDoc()),
			mtest.CreateCursorResponse(0, "digitalsquad.tiers", mtest.FirstBatch, tierDoc(models.TierKeyReseller, "0.05")),
		)
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Amount: 100000}
		agent := &models.User{ID: primitive.NewObjectID(), ReferredBy: &uplineID}

		override, err := svc.computeOverride(ctx, tx, agent)
		require.NoError(mt, err)
		assert.Nil(mt, override)
	})

	mt.Run("an executive upline earns the override", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch, uplineDoc()),
			mtest.CreateCursorResponse(0, "digitalsquad.tiers", mtest.FirstBatch, tierDoc(models.TierKeyExecutive, "0.05")),
		)
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Amount: 100000}
		agent := &models.User{ID: primitive.NewObjectID(), ReferredBy: &uplineID}

		override, err := svc.computeOverride(ctx, tx, agent)
		require.NoError(mt, err)
		require.NotNil(mt, override)
		assert.Equal(mt, uplineID, override.AgentID)
		assert.Equal(mt, "0.05", override.Rate)
		assert.Equal(mt, int64(5000), override.Amount)
	})

	mt.Run("an executive tier without a configured rate pays nothing", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "digitalsquad.users", mtest.FirstBatch, uplineDoc()),
			mtest.CreateCursorResponse(0, "digitalsquad.tiers", mtest.FirstBatch, tierDoc(models.TierKeyExecutive, "")),
		)
		svc := newCommissionService(mt)
		tx := &models.Transaction{ID: primitive.NewObjectID(), Amount: 100000}
		agent := &models.User{ID: primitive.NewObjectID(), ReferredBy: &uplineID}

		override, err := svc.computeOverride(ctx, tx, agent)
		require.NoError(mt, err)
		assert.Nil(mt, override)
	})
}
