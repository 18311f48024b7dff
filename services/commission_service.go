// services/commission_service.go
package services

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
)

// CommissionService resolves which agent earns on a transaction and how much.
type CommissionService struct {
	db       *mongo.Database
	userRepo *repositories.UserRepository
}

func NewCommissionService(db *mongo.Database, userRepo *repositories.UserRepository) *CommissionService {
	return &CommissionService{db: db, userRepo: userRepo}
}

// CommissionResult is the computed payout for one successful transaction.
type CommissionResult struct {
	Rate   string
	Amount int64
	// Override is nil unless the agent's upline qualifies for one.
	Override *OverrideResult
}

type OverrideResult struct {
	AgentID primitive.ObjectID
	Rate    string
	Amount  int64
}

// ResolveAgent determines which agent (if any) should be credited for a
// transaction. Ordered fallback, first match wins:
//  1. the buyer profile's referredBy, if already set (attribution is settled
//     at intent time; an explicit code's only job there was to patch a
//     missing referredBy, so a pre-existing upline always wins here)
//  2. the explicit referral code captured with the intent (guest flows)
//  3. the linked lead's stored referral code
//  4. the agentCode on the associated product purchase
//
// No match returns (nil, nil): a commission-less sale is a normal outcome.
func (s *CommissionService) ResolveAgent(ctx context.Context, tx *models.Transaction) (*models.User, error) {
	if tx.UserID != nil {
		buyer, err := s.userRepo.FindByID(ctx, *tx.UserID)
		if err != nil && err != mongo.ErrNoDocuments {
			return nil, err
		}
		if buyer != nil && buyer.ReferredBy != nil {
			referrer, err := s.userRepo.FindByID(ctx, *buyer.ReferredBy)
			if err != nil && err != mongo.ErrNoDocuments {
				return nil, err
			}
			if referrer != nil {
				return referrer, nil
			}
		}
	}

	if tx.ReferralCode != "" {
		agent, err := s.userRepo.FindByAffiliateCode(ctx, tx.ReferralCode)
		if err != nil {
			return nil, err
		}
		if agent != nil {
			return agent, nil
		}
	}

	if tx.LeadID != nil {
		var lead models.Lead
		err := s.db.Collection("leads").FindOne(ctx, bson.M{"_id": tx.LeadID}).Decode(&lead)
		if err != nil && err != mongo.ErrNoDocuments {
			return nil, err
		}
		if lead.ReferralCode != "" {
			agent, err := s.userRepo.FindByAffiliateCode(ctx, lead.ReferralCode)
			if err != nil {
				return nil, err
			}
			if agent != nil {
				return agent, nil
			}
		}
	}

	var purchase models.ProductPurchase
	err := s.db.Collection("product_purchases").FindOne(ctx, bson.M{"transactionId": tx.ID}).Decode(&purchase)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, err
	}
	if purchase.AgentCode != "" {
		agent, err := s.userRepo.FindByAffiliateCode(ctx, purchase.AgentCode)
		if err != nil {
			return nil, err
		}
		if agent != nil {
			return agent, nil
		}
	}

	return nil, nil
}

// ComputeCommission calculates the primary commission for the resolved agent
// and, when the agent's upline sits on the executive tier with an override
// rate, the override on top. Rates are decimal strings; amounts are computed
// in the currency's smallest unit and rounded down.
func (s *CommissionService) ComputeCommission(ctx context.Context, tx *models.Transaction, agent *models.User) (*CommissionResult, error) {
	rate := s.primaryRate(ctx, tx, agent)

	amount := applyRate(tx.Amount, rate)
	result := &CommissionResult{
		Rate:   rate.String(),
		Amount: amount,
	}

	override, err := s.computeOverride(ctx, tx, agent)
	if err != nil {
		return nil, err
	}
	result.Override = override

	return result, nil
}

// primaryRate picks the agent's tier rate, upgraded to the product's own rate
// when the product is more generous. Falls back to the default rate for
// tierless agents.
func (s *CommissionService) primaryRate(ctx context.Context, tx *models.Transaction, agent *models.User) decimal.Decimal {
	rate := mustRate(models.DefaultCommissionRate)

	if agent.TierID != nil {
		var tier models.Tier
		err := s.db.Collection("tiers").FindOne(ctx, bson.M{"_id": agent.TierID}).Decode(&tier)
		if err != nil {
			log.Printf("Failed to load tier %s for agent %s, using default rate: %v", agent.TierID.Hex(), agent.ID.Hex(), err)
		} else if parsed, perr := decimal.NewFromString(tier.CommissionRate); perr == nil {
			rate = parsed
		} else {
			log.Printf("Invalid commission rate %q on tier %s, using default", tier.CommissionRate, tier.Key)
		}
	}

	if tx.Type == models.TransactionTypeProductPurchase {
		var purchase models.ProductPurchase
		err := s.db.Collection("product_purchases").FindOne(ctx, bson.M{"transactionId": tx.ID}).Decode(&purchase)
		if err == nil {
			var product models.Product
			err = s.db.Collection("products").FindOne(ctx, bson.M{"_id": purchase.ProductID}).Decode(&product)
			if err == nil && product.CommissionRate != "" {
				if productRate, perr := decimal.NewFromString(product.CommissionRate); perr == nil && productRate.GreaterThan(rate) {
					rate = productRate
				}
			}
		}
	}

	return rate
}

// computeOverride walks exactly one hop up the referral chain. Deeper walks
// would change payout economics, so the single hop is explicit.
func (s *CommissionService) computeOverride(ctx context.Context, tx *models.Transaction, agent *models.User) (*OverrideResult, error) {
	if agent.ReferredBy == nil {
		return nil, nil
	}

	upline, err := s.userRepo.FindByID(ctx, *agent.ReferredBy)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	if upline.TierID == nil {
		return nil, nil
	}

	var tier models.Tier
	err = s.db.Collection("tiers").FindOne(ctx, bson.M{"_id": upline.TierID}).Decode(&tier)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	// Only the single top tier pays overrides, and only when it defines a rate.
	if tier.Key != models.TierKeyExecutive || tier.OverrideRate == "" {
		return nil, nil
	}

	overrideRate, err := decimal.NewFromString(tier.OverrideRate)
	if err != nil {
		log.Printf("Invalid override rate %q on tier %s, skipping override", tier.OverrideRate, tier.Key)
		return nil, nil
	}

	return &OverrideResult{
		AgentID: upline.ID,
		Rate:    overrideRate.String(),
		Amount:  applyRate(tx.Amount, overrideRate),
	}, nil
}

// applyRate multiplies an amount in smallest currency units by a decimal
// rate, rounding down to a whole unit.
func applyRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Floor().IntPart()
}

func mustRate(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("invalid built-in commission rate: " + s)
	}
	return d
}
