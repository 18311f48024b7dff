package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Commission kinds
const (
	CommissionKindDirect   = "direct"
	CommissionKindOverride = "override"
)

// Commission is an immutable fact linking one agent to one source transaction.
// The unique index on (agentId, transactionId) is the idempotency gate for the
// whole success pipeline: a second reconciliation attempt for the same
// transaction hits the index and does no further work.
type Commission struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AgentID       primitive.ObjectID `json:"agentId" bson:"agentId"`
	TransactionID primitive.ObjectID `json:"transactionId" bson:"transactionId"`
	Kind          string             `json:"kind" bson:"kind"`
	Rate          string             `json:"rate" bson:"rate"`
	Amount        int64              `json:"amount" bson:"amount"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
}
