package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is a digital deliverable sold through checkout. CommissionRate,
// when set, competes with the selling agent's tier rate; the larger of the
// two applies.
type Product struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title"`
	Slug           string             `json:"slug" bson:"slug"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	Price          int64              `json:"price" bson:"price"`
	CommissionRate string             `json:"commissionRate,omitempty" bson:"commissionRate,omitempty"`
	FileURL        string             `json:"fileUrl,omitempty" bson:"fileUrl,omitempty"`
	Active         bool               `json:"active" bson:"active"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ProductPurchase links a transaction to a product and its buyer. Status
// mirrors the transaction's status for display; the transaction stays
// authoritative.
type ProductPurchase struct {
	ID            primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	TransactionID primitive.ObjectID  `json:"transactionId" bson:"transactionId"`
	ProductID     primitive.ObjectID  `json:"productId" bson:"productId"`
	UserID        *primitive.ObjectID `json:"userId,omitempty" bson:"userId,omitempty"`
	LeadID        *primitive.ObjectID `json:"leadId,omitempty" bson:"leadId,omitempty"`
	BuyerName     string              `json:"buyerName" bson:"buyerName"`
	BuyerEmail    string              `json:"buyerEmail" bson:"buyerEmail"`
	BuyerPhone    string              `json:"buyerPhone,omitempty" bson:"buyerPhone,omitempty"`
	AgentCode     string              `json:"agentCode,omitempty" bson:"agentCode,omitempty"`
	Status        string              `json:"status" bson:"status"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}
