package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tier keys. TierKeyExecutive is the single top tier: only an upline sitting
// on it (with a non-empty override rate) ever receives an override commission.
// Compared by key, deliberately not by rank, so adding a tier above executive
// forces this condition to be revisited instead of silently generalizing.
const (
	TierKeyBasic     = "basic"
	TierKeyReseller  = "reseller"
	TierKeyExecutive = "executive"
)

// DefaultCommissionRate applies when the selling agent has no tier yet.
const DefaultCommissionRate = "0.10"

// Tier is a named commission policy. Read-only from the engine's perspective.
// Rates are decimal strings evaluated with shopspring/decimal.
type Tier struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Key            string             `json:"key" bson:"key"`
	Name           string             `json:"name" bson:"name"`
	CommissionRate string             `json:"commissionRate" bson:"commissionRate"`
	OverrideRate   string             `json:"overrideRate,omitempty" bson:"overrideRate,omitempty"`
	UpgradePrice   int64              `json:"upgradePrice" bson:"upgradePrice"`
	Purchasable    bool               `json:"purchasable" bson:"purchasable"`
}
