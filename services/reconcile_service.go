// services/reconcile_service.go
package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
	"github.com/frostextreme11/digitalsquad-sub001/utils"
)

// Reconciliation outcomes, reported back to the webhook and poll handlers.
const (
	ReconcileOutcomeProcessed       = "processed"
	ReconcileOutcomeAlreadyTerminal = "already_terminal"
	ReconcileOutcomeNoTransition    = "no_transition"
	ReconcileOutcomeLostRace        = "lost_race"
)

// ReconcileService drives the pending -> terminal transition for a
// transaction and runs the success side effects. The status transition is a
// conditional update that only matches documents still in pending, so when a
// webhook and a manual poll race, exactly one caller wins and runs the
// pipeline. Everything downstream of the transition is guarded a second time
// by the unique commission index, making a crashed pipeline safe to re-drive
// by hand.
type ReconcileService struct {
	db             *mongo.Database
	txRepo         *repositories.TransactionRepository
	commissionRepo *repositories.CommissionRepository
	userRepo       *repositories.UserRepository
	commissionSvc  *CommissionService
}

func NewReconcileService(db *mongo.Database) *ReconcileService {
	userRepo := repositories.NewUserRepository(db)
	return &ReconcileService{
		db:             db,
		txRepo:         repositories.NewTransactionRepository(db),
		commissionRepo: repositories.NewCommissionRepository(db),
		userRepo:       userRepo,
		commissionSvc:  NewCommissionService(db, userRepo),
	}
}

// ApplyStatus attempts to move a transaction to a normalized status and, on a
// won success transition, runs the side-effect pipeline. It never errors on a
// lost race or an already-settled transaction: callers acknowledge the
// provider either way.
func (s *ReconcileService) ApplyStatus(ctx context.Context, tx *models.Transaction, newStatus string) (string, error) {
	if !models.IsTerminalStatus(newStatus) {
		// A pending report carries no new information.
		return ReconcileOutcomeNoTransition, nil
	}

	if models.IsTerminalStatus(tx.Status) {
		// Late or replayed notification for a settled transaction. Keep
		// the purchase mirror in line in case a prior run died between
		// the transition and the mirror write.
		if tx.Status == models.TransactionStatusSuccess {
			s.syncPurchaseStatus(ctx, tx.ID, tx.Status)
		}
		return ReconcileOutcomeAlreadyTerminal, nil
	}

	won, err := s.txRepo.MarkStatus(ctx, tx.ID, newStatus)
	if err != nil {
		return "", err
	}
	if !won {
		log.Printf("Transaction %s already left pending, skipping %s transition", tx.ID.Hex(), newStatus)
		return ReconcileOutcomeLostRace, nil
	}

	log.Printf("Transaction %s (order %s) moved pending -> %s", tx.ID.Hex(), tx.OrderID, newStatus)

	if newStatus == models.TransactionStatusSuccess {
		s.runSuccessPipeline(ctx, tx)
	} else {
		s.syncPurchaseStatus(ctx, tx.ID, newStatus)
	}

	return ReconcileOutcomeProcessed, nil
}

// runSuccessPipeline executes the post-payment side effects. Each step is
// isolated: a failure is logged and the remaining steps still run, because the
// transaction is already durably successful and none of this work is worth
// failing the provider's callback over. Nothing here is ever rolled back.
func (s *ReconcileService) runSuccessPipeline(ctx context.Context, tx *models.Transaction) {
	s.syncPurchaseStatus(ctx, tx.ID, models.TransactionStatusSuccess)
	s.markLeadConverted(ctx, tx)

	agent, err := s.commissionSvc.ResolveAgent(ctx, tx)
	if err != nil {
		log.Printf("Agent resolution failed for transaction %s: %v", tx.ID.Hex(), err)
		agent = nil
	}

	if agent != nil {
		s.payCommissions(ctx, tx, agent)
		s.backfillBuyer(ctx, tx, agent)
	}

	if tx.Type == models.TransactionTypeTierUpgrade {
		s.applyTierUpgrade(ctx, tx)
	}

	if tx.Type == models.TransactionTypeProductPurchase {
		s.deliverProduct(ctx, tx)
	}
}

// payCommissions credits the direct commission and, when due, the one-hop
// override. The insert-then-increment order matters: the unique index rejects
// the insert on a replay before any balance is touched.
func (s *ReconcileService) payCommissions(ctx context.Context, tx *models.Transaction, agent *models.User) {
	exists, err := s.commissionRepo.ExistsFor(ctx, agent.ID, tx.ID)
	if err != nil {
		log.Printf("Commission existence check failed for transaction %s: %v", tx.ID.Hex(), err)
		return
	}
	if exists {
		log.Printf("Commission for agent %s on transaction %s already recorded", agent.ID.Hex(), tx.ID.Hex())
		return
	}

	result, err := s.commissionSvc.ComputeCommission(ctx, tx, agent)
	if err != nil {
		log.Printf("Commission computation failed for transaction %s: %v", tx.ID.Hex(), err)
		return
	}

	s.creditCommission(ctx, tx.ID, agent.ID, models.CommissionKindDirect, result.Rate, result.Amount)

	if result.Override != nil {
		s.creditCommission(ctx, tx.ID, result.Override.AgentID, models.CommissionKindOverride, result.Override.Rate, result.Override.Amount)
	}
}

func (s *ReconcileService) creditCommission(ctx context.Context, txID, agentID primitive.ObjectID, kind, rate string, amount int64) {
	inserted, err := s.commissionRepo.Insert(ctx, &models.Commission{
		AgentID:       agentID,
		TransactionID: txID,
		Kind:          kind,
		Rate:          rate,
		Amount:        amount,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		log.Printf("Failed to record %s commission for agent %s on transaction %s: %v", kind, agentID.Hex(), txID.Hex(), err)
		return
	}
	if !inserted {
		log.Printf("%s commission for agent %s on transaction %s already exists, skipping credit", kind, agentID.Hex(), txID.Hex())
		return
	}

	if err := s.userRepo.IncrementBalance(ctx, agentID, amount); err != nil {
		log.Printf("Failed to credit balance of agent %s for transaction %s: %v", agentID.Hex(), txID.Hex(), err)
		return
	}

	log.Printf("Credited %d to agent %s (%s commission, transaction %s)", amount, agentID.Hex(), kind, txID.Hex())
	utils.NotifyCommissionEarned(s.db, agentID, amount, kind)
}

// backfillBuyer fills in the missing pieces of a referred buyer's agent
// profile: the referrer link, the starting tier and an affiliate code. All
// writes are set-if-unset, so nothing already present is ever overwritten.
func (s *ReconcileService) backfillBuyer(ctx context.Context, tx *models.Transaction, agent *models.User) {
	if tx.UserID == nil {
		return
	}

	buyer, err := s.userRepo.FindByID(ctx, *tx.UserID)
	if err != nil {
		log.Printf("Failed to load buyer %s for backfill: %v", tx.UserID.Hex(), err)
		return
	}
	if buyer.ID == agent.ID {
		return
	}

	if buyer.ReferredBy == nil {
		if err := s.userRepo.SetReferredByIfUnset(ctx, buyer.ID, agent.ID); err != nil {
			log.Printf("Failed to backfill referredBy for user %s: %v", buyer.ID.Hex(), err)
		}
	}

	if buyer.TierID == nil {
		var tier models.Tier
		err := s.db.Collection("tiers").FindOne(ctx, bson.M{"key": models.TierKeyBasic}).Decode(&tier)
		if err != nil {
			log.Printf("Failed to load the %s tier for backfill: %v", models.TierKeyBasic, err)
		} else if err := s.userRepo.SetTierIfUnset(ctx, buyer.ID, tier.ID); err != nil {
			log.Printf("Failed to backfill tier for user %s: %v", buyer.ID.Hex(), err)
		}
	}

	if buyer.AffiliateCode == "" {
		s.assignAffiliateCode(ctx, buyer)
	}
}

// assignAffiliateCode generates a code and claims it under the sparse unique
// index. One retry covers a suffix collision; a second collision is left for
// the next successful transaction to fix.
func (s *ReconcileService) assignAffiliateCode(ctx context.Context, buyer *models.User) {
	for attempt := 0; attempt < 2; attempt++ {
		code, err := utils.GenerateAffiliateCode(buyer.FullName, buyer.Email)
		if err != nil {
			log.Printf("Failed to generate affiliate code for user %s: %v", buyer.ID.Hex(), err)
			return
		}
		ok, err := s.userRepo.SetAffiliateCodeIfUnset(ctx, buyer.ID, code)
		if err != nil {
			log.Printf("Failed to assign affiliate code to user %s: %v", buyer.ID.Hex(), err)
			return
		}
		if ok {
			log.Printf("Assigned affiliate code %s to user %s", code, buyer.ID.Hex())
			return
		}
	}
	log.Printf("Affiliate code collisions for user %s, giving up for now", buyer.ID.Hex())
}

// applyTierUpgrade moves the buyer onto the tier they paid for. Unlike the
// backfill this overwrites the current tier, that is the whole point of the
// purchase.
func (s *ReconcileService) applyTierUpgrade(ctx context.Context, tx *models.Transaction) {
	if tx.UserID == nil || tx.TierID == nil {
		log.Printf("Tier upgrade transaction %s is missing a user or tier, nothing to apply", tx.ID.Hex())
		return
	}
	if err := s.userRepo.SetTier(ctx, *tx.UserID, *tx.TierID); err != nil {
		log.Printf("Failed to apply tier upgrade for user %s (transaction %s): %v", tx.UserID.Hex(), tx.ID.Hex(), err)
		return
	}
	log.Printf("User %s upgraded to tier %s (transaction %s)", tx.UserID.Hex(), tx.TierID.Hex(), tx.ID.Hex())
}

// deliverProduct emails the download link to the buyer and records an in-app
// notification when the buyer has an account.
func (s *ReconcileService) deliverProduct(ctx context.Context, tx *models.Transaction) {
	var purchase models.ProductPurchase
	err := s.db.Collection("product_purchases").FindOne(ctx, bson.M{"transactionId": tx.ID}).Decode(&purchase)
	if err != nil {
		log.Printf("No purchase record found for transaction %s, cannot deliver: %v", tx.ID.Hex(), err)
		return
	}

	var product models.Product
	err = s.db.Collection("products").FindOne(ctx, bson.M{"_id": purchase.ProductID}).Decode(&product)
	if err != nil {
		log.Printf("Failed to load product %s for delivery: %v", purchase.ProductID.Hex(), err)
		return
	}

	if err := utils.SendDeliveryEmail(purchase.BuyerName, purchase.BuyerEmail, product.Title, product.FileURL); err != nil {
		log.Printf("Failed to send delivery email for transaction %s: %v", tx.ID.Hex(), err)
	} else {
		log.Printf("Delivery email for %q sent to %s", product.Title, purchase.BuyerEmail)
	}

	if purchase.UserID != nil {
		err := utils.SaveNotification(s.db, *purchase.UserID, "Your purchase is ready",
			"Your copy of "+product.Title+" has been sent to your email.",
			models.NotificationTypeDelivery,
			map[string]string{"productId": product.ID.Hex(), "transactionId": tx.ID.Hex()})
		if err != nil {
			log.Printf("Failed to save delivery notification for user %s: %v", purchase.UserID.Hex(), err)
		}
	}
}

// syncPurchaseStatus mirrors the transaction status onto its purchase record.
// Display-only: the transaction document stays authoritative.
func (s *ReconcileService) syncPurchaseStatus(ctx context.Context, txID primitive.ObjectID, status string) {
	_, err := s.db.Collection("product_purchases").UpdateOne(ctx,
		bson.M{"transactionId": txID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		log.Printf("Failed to sync purchase status for transaction %s: %v", txID.Hex(), err)
	}
}

func (s *ReconcileService) markLeadConverted(ctx context.Context, tx *models.Transaction) {
	if tx.LeadID == nil {
		return
	}
	_, err := s.db.Collection("leads").UpdateOne(ctx,
		bson.M{"_id": tx.LeadID, "status": models.LeadStatusNew},
		bson.M{"$set": bson.M{"status": models.LeadStatusConverted}},
	)
	if err != nil {
		log.Printf("Failed to mark lead %s converted: %v", tx.LeadID.Hex(), err)
	}
}
