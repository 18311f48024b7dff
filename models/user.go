package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User types
const (
	UserTypeAgent = "agent"
	UserTypeAdmin = "admin"
)

// User is a registered account. Every non-admin user is an agent: they carry
// an affiliate code, can refer buyers and earn commissions into Balance.
// ReferredBy, TierID and AffiliateCode are backfilled once, the first time the
// reconciliation success path observes them missing, and never overwritten.
type User struct {
	ID            primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	FullName      string              `json:"fullName" bson:"fullName"`
	Email         string              `json:"email" bson:"email"`
	Password      string              `json:"-" bson:"password"`
	Phone         string              `json:"phone,omitempty" bson:"phone,omitempty"`
	UserType      string              `json:"userType" bson:"userType"`
	ReferredBy    *primitive.ObjectID `json:"referredBy,omitempty" bson:"referredBy,omitempty"`
	TierID        *primitive.ObjectID `json:"tierId,omitempty" bson:"tierId,omitempty"`
	AffiliateCode string              `json:"affiliateCode,omitempty" bson:"affiliateCode,omitempty"`
	Balance       int64               `json:"balance" bson:"balance"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt" bson:"updatedAt"`
}
