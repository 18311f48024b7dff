// services/checkout_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/config"
	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
)

// CheckoutService finds-or-creates exactly one pending transaction per
// checkout and obtains a provider-hosted payment link for it.
type CheckoutService struct {
	db       *mongo.Database
	txRepo   *repositories.TransactionRepository
	userRepo *repositories.UserRepository
}

func NewCheckoutService(db *mongo.Database, txRepo *repositories.TransactionRepository, userRepo *repositories.UserRepository) *CheckoutService {
	return &CheckoutService{db: db, txRepo: txRepo, userRepo: userRepo}
}

// CreateOrReuseIntent is the single entry point for starting or resuming a
// checkout. It never leaves more than one pending transaction per
// (buyer, type) pair offered to the payer, and it reuses a live payment link
// instead of churning new ones when a buyer reloads the checkout page.
func (s *CheckoutService) CreateOrReuseIntent(ctx context.Context, req *models.CreateIntentRequest) (*models.CreateIntentResponse, error) {
	settings, err := config.LoadGatewaySettings(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load gateway settings: %w", err)
	}

	tx, product, err := s.resolveTransaction(ctx, req, settings)
	if err != nil {
		return nil, err
	}

	// A live link from the currently active gateway is returned unchanged.
	if tx.PaymentURL != "" && tx.Gateway == settings.ActiveGateway {
		return &models.CreateIntentResponse{
			Gateway:       tx.Gateway,
			PaymentURL:    tx.PaymentURL,
			TransactionID: tx.ID.Hex(),
		}, nil
	}

	gateway, err := ActiveGateway(settings)
	if err != nil {
		return nil, err
	}

	description := s.describe(tx, product)
	session, err := gateway.CreatePayment(ctx, CreatePaymentInput{
		OrderID:     tx.OrderID,
		Amount:      tx.Amount,
		BuyerName:   req.Name,
		BuyerEmail:  req.Email,
		BuyerPhone:  req.Phone,
		Description: description,
		RedirectURL: settings.RedirectURL,
	})
	if IsDuplicateOrder(err) {
		// Stale order reference on the provider side (prior deploy or config
		// change). Mint a brand-new transaction and retry exactly once.
		log.Printf("Order reference %s already used at %s, minting a new transaction", tx.OrderID, gateway.Name())
		tx, err = s.remintTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		session, err = gateway.CreatePayment(ctx, CreatePaymentInput{
			OrderID:     tx.OrderID,
			Amount:      tx.Amount,
			BuyerName:   req.Name,
			BuyerEmail:  req.Email,
			BuyerPhone:  req.Phone,
			Description: description,
			RedirectURL: settings.RedirectURL,
		})
	}
	if err != nil {
		return nil, err
	}

	if err := s.txRepo.AttachGateway(ctx, tx.ID, gateway.Name(), session.ProviderRef, session.PaymentURL); err != nil {
		return nil, fmt.Errorf("failed to persist gateway session: %w", err)
	}

	return &models.CreateIntentResponse{
		Gateway:       gateway.Name(),
		PaymentURL:    session.PaymentURL,
		TransactionID: tx.ID.Hex(),
	}, nil
}

// resolveTransaction returns the transaction this checkout should use:
// an explicitly resumed one, the latest pending one for the buyer, or a
// freshly created one.
func (s *CheckoutService) resolveTransaction(ctx context.Context, req *models.CreateIntentRequest, settings *models.GatewaySettings) (*models.Transaction, *models.Product, error) {
	// Explicit prior transaction id: idempotent resume of an existing checkout.
	if req.TransactionID != "" {
		txID, err := primitive.ObjectIDFromHex(req.TransactionID)
		if err != nil {
			return nil, nil, &ValidationError{Message: "invalid transaction id"}
		}
		tx, err := s.txRepo.FindByID(ctx, txID)
		if err == mongo.ErrNoDocuments {
			return nil, nil, &NotFoundError{Resource: "transaction", ID: req.TransactionID}
		}
		if err != nil {
			return nil, nil, err
		}
		product, err := s.productForTransaction(ctx, tx)
		return tx, product, err
	}

	buyer, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, nil, err
	}

	// Reuse the newest pending transaction for this checkout if any exists,
	// keyed on the buyer's account or, for guests, on the lead behind their
	// email. A reload must resume the open checkout, not mint a second one.
	if buyer != nil {
		tx, err := s.txRepo.FindLatestPending(ctx, buyer.ID, req.Type)
		if err != nil {
			return nil, nil, err
		}
		if tx != nil {
			product, perr := s.productForTransaction(ctx, tx)
			return tx, product, perr
		}
	} else {
		lead, err := s.existingLead(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		if lead != nil {
			tx, terr := s.txRepo.FindLatestPendingByLead(ctx, lead.ID, req.Type)
			if terr != nil {
				return nil, nil, terr
			}
			if tx != nil {
				product, perr := s.productForTransaction(ctx, tx)
				return tx, product, perr
			}
		}
	}

	return s.createTransaction(ctx, req, settings, buyer)
}

// existingLead resolves the request to an already-known lead without creating
// one: by explicit id when given, otherwise by email.
func (s *CheckoutService) existingLead(ctx context.Context, req *models.CreateIntentRequest) (*models.Lead, error) {
	filter := bson.M{"email": req.Email}
	if req.LeadID != "" {
		leadID, err := primitive.ObjectIDFromHex(req.LeadID)
		if err != nil {
			return nil, &ValidationError{Message: "invalid lead id"}
		}
		filter = bson.M{"_id": leadID}
	}
	var lead models.Lead
	err := s.db.Collection("leads").FindOne(ctx, filter).Decode(&lead)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (s *CheckoutService) createTransaction(ctx context.Context, req *models.CreateIntentRequest, settings *models.GatewaySettings, buyer *models.User) (*models.Transaction, *models.Product, error) {
	amount := req.Amount
	var product *models.Product
	var tierID *primitive.ObjectID

	switch req.Type {
	case models.TransactionTypeProductPurchase:
		if req.ProductID == "" {
			return nil, nil, &ValidationError{Message: "productId is required for product purchases"}
		}
		productID, err := primitive.ObjectIDFromHex(req.ProductID)
		if err != nil {
			return nil, nil, &ValidationError{Message: "invalid product id"}
		}
		var p models.Product
		err = s.db.Collection("products").FindOne(ctx, bson.M{"_id": productID, "active": true}).Decode(&p)
		if err == mongo.ErrNoDocuments {
			return nil, nil, &NotFoundError{Resource: "product", ID: req.ProductID}
		}
		if err != nil {
			return nil, nil, err
		}
		product = &p
		amount = p.Price

	case models.TransactionTypeRegistration:
		if amount == 0 {
			amount = settings.RegistrationFee
		}
		if amount <= 0 {
			return nil, nil, &ValidationError{Message: "registration fee is not configured"}
		}

	case models.TransactionTypeTierUpgrade:
		if req.TierID == "" {
			return nil, nil, &ValidationError{Message: "tierId is required for tier upgrades"}
		}
		id, err := primitive.ObjectIDFromHex(req.TierID)
		if err != nil {
			return nil, nil, &ValidationError{Message: "invalid tier id"}
		}
		var tier models.Tier
		err = s.db.Collection("tiers").FindOne(ctx, bson.M{"_id": id}).Decode(&tier)
		if err == mongo.ErrNoDocuments {
			return nil, nil, &NotFoundError{Resource: "tier", ID: req.TierID}
		}
		if err != nil {
			return nil, nil, err
		}
		if !tier.Purchasable {
			return nil, nil, &ValidationError{Message: fmt.Sprintf("tier %s is not purchasable", tier.Key)}
		}
		tierID = &id
		amount = tier.UpgradePrice
	}

	// Referral attribution happens once, at creation time: an explicit code
	// patches the buyer's referredBy only while it is still unset.
	if req.ReferralCode != "" && buyer != nil && buyer.ReferredBy == nil {
		referrer, err := s.userRepo.FindByAffiliateCode(ctx, req.ReferralCode)
		if err != nil {
			return nil, nil, err
		}
		if referrer != nil && referrer.ID != buyer.ID {
			if err := s.userRepo.SetReferredByIfUnset(ctx, buyer.ID, referrer.ID); err != nil {
				log.Printf("Failed to patch referredBy for %s: %v", buyer.ID.Hex(), err)
			}
		}
	}

	lead, err := s.findOrCreateLead(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	tx := &models.Transaction{
		OrderID:      uuid.NewString(),
		Amount:       amount,
		Type:         req.Type,
		Status:       models.TransactionStatusPending,
		ReferralCode: req.ReferralCode,
		TierID:       tierID,
	}
	if buyer != nil {
		tx.UserID = &buyer.ID
	}
	if lead != nil {
		tx.LeadID = &lead.ID
	}

	if err := s.txRepo.Insert(ctx, tx); err != nil {
		return nil, nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if product != nil {
		purchase := models.ProductPurchase{
			ID:            primitive.NewObjectID(),
			TransactionID: tx.ID,
			ProductID:     product.ID,
			UserID:        tx.UserID,
			LeadID:        tx.LeadID,
			BuyerName:     req.Name,
			BuyerEmail:    req.Email,
			BuyerPhone:    req.Phone,
			AgentCode:     req.ReferralCode,
			Status:        models.TransactionStatusPending,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if _, err := s.db.Collection("product_purchases").InsertOne(ctx, purchase); err != nil {
			return nil, nil, fmt.Errorf("failed to create product purchase: %w", err)
		}
	}

	return tx, product, nil
}

// findOrCreateLead resolves the buyer's contact identity to a lead, creating
// one when this email has never been seen.
func (s *CheckoutService) findOrCreateLead(ctx context.Context, req *models.CreateIntentRequest) (*models.Lead, error) {
	leads := s.db.Collection("leads")

	if req.LeadID != "" {
		leadID, err := primitive.ObjectIDFromHex(req.LeadID)
		if err != nil {
			return nil, &ValidationError{Message: "invalid lead id"}
		}
		var lead models.Lead
		err = leads.FindOne(ctx, bson.M{"_id": leadID}).Decode(&lead)
		if err == mongo.ErrNoDocuments {
			return nil, &NotFoundError{Resource: "lead", ID: req.LeadID}
		}
		if err != nil {
			return nil, err
		}
		return &lead, nil
	}

	var lead models.Lead
	err := leads.FindOne(ctx, bson.M{"email": req.Email}).Decode(&lead)
	if err == nil {
		return &lead, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	lead = models.Lead{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		ReferralCode: req.ReferralCode,
		Status:       models.LeadStatusNew,
		CreatedAt:    time.Now(),
	}
	if _, err := leads.InsertOne(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	return &lead, nil
}

// remintTransaction replaces a transaction whose order reference a provider
// already consumed. The old row keeps its history; the new row carries the
// same intent with a fresh reference.
func (s *CheckoutService) remintTransaction(ctx context.Context, old *models.Transaction) (*models.Transaction, error) {
	fresh := &models.Transaction{
		OrderID:      uuid.NewString(),
		Amount:       old.Amount,
		Type:         old.Type,
		Status:       models.TransactionStatusPending,
		UserID:       old.UserID,
		LeadID:       old.LeadID,
		TierID:       old.TierID,
		ReferralCode: old.ReferralCode,
	}
	if err := s.txRepo.Insert(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to remint transaction: %w", err)
	}

	// Retire the old row so it is never offered to a payer again.
	if _, err := s.txRepo.MarkStatus(ctx, old.ID, models.TransactionStatusCancelled); err != nil {
		log.Printf("Failed to cancel superseded transaction %s: %v", old.ID.Hex(), err)
	}

	// Point the purchase record at the replacement so reconciliation and
	// delivery keep working.
	_, err := s.db.Collection("product_purchases").UpdateOne(ctx,
		bson.M{"transactionId": old.ID},
		bson.M{"$set": bson.M{"transactionId": fresh.ID, "updatedAt": time.Now()}})
	if err != nil {
		log.Printf("Failed to relink product purchase from %s to %s: %v", old.ID.Hex(), fresh.ID.Hex(), err)
	}

	return fresh, nil
}

func (s *CheckoutService) describe(tx *models.Transaction, product *models.Product) string {
	switch tx.Type {
	case models.TransactionTypeProductPurchase:
		if product != nil {
			return product.Title
		}
		return "Product purchase"
	case models.TransactionTypeTierUpgrade:
		return "Tier upgrade"
	default:
		return "Agent registration"
	}
}

func (s *CheckoutService) productForTransaction(ctx context.Context, tx *models.Transaction) (*models.Product, error) {
	if tx.Type != models.TransactionTypeProductPurchase {
		return nil, nil
	}
	var purchase models.ProductPurchase
	err := s.db.Collection("product_purchases").FindOne(ctx, bson.M{"transactionId": tx.ID}).Decode(&purchase)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var product models.Product
	err = s.db.Collection("products").FindOne(ctx, bson.M{"_id": purchase.ProductID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
