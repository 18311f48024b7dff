package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transaction types
const (
	TransactionTypeRegistration    = "registration"
	TransactionTypeProductPurchase = "product_purchase"
	TransactionTypeTierUpgrade     = "tier_upgrade"
)

// Transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusSuccess   = "success"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// Transaction represents a single checkout attempt. OrderID is the reference
// the payment provider sees; it is unique and re-minted if a provider rejects
// it as already used.
type Transaction struct {
	ID           primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	OrderID      string              `json:"orderId" bson:"orderId"`
	Amount       int64               `json:"amount" bson:"amount"`
	Type         string              `json:"type" bson:"type"`
	Status       string              `json:"status" bson:"status"`
	UserID       *primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`
	LeadID       *primitive.ObjectID `json:"leadId,omitempty" bson:"leadId,omitempty"`
	TierID       *primitive.ObjectID `json:"tierId,omitempty" bson:"tierId,omitempty"`
	ReferralCode string              `json:"referralCode,omitempty" bson:"referralCode,omitempty"`
	Gateway      string              `json:"gateway,omitempty" bson:"gateway,omitempty"`
	GatewayRef   string              `json:"gatewayRef,omitempty" bson:"gatewayRef,omitempty"`
	PaymentURL   string              `json:"paymentUrl,omitempty" bson:"paymentUrl,omitempty"`
	CreatedAt    time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt" bson:"updatedAt"`
	PaidAt       *time.Time          `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// IsTerminal reports whether a status admits no further transition.
func IsTerminalStatus(status string) bool {
	switch status {
	case TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// CreateIntentRequest is the request body for starting (or resuming) a checkout.
type CreateIntentRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone,omitempty"`
	Amount        int64  `json:"amount"`
	Type          string `json:"type" validate:"required,oneof=registration product_purchase tier_upgrade"`
	ProductID     string `json:"productId,omitempty"`
	TierID        string `json:"tierId,omitempty"`
	ReferralCode  string `json:"referralCode,omitempty"`
	LeadID        string `json:"leadId,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// CreateIntentResponse is returned to the checkout page.
type CreateIntentResponse struct {
	Gateway       string `json:"gateway"`
	PaymentURL    string `json:"payment_url"`
	TransactionID string `json:"transaction_id"`
}

// StatusPollRequest is the body of the manual status check endpoint. Either
// field identifies the transaction.
type StatusPollRequest struct {
	TransactionID string `json:"transaction_id,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
}
