package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Webhook event outcomes. Received is the initial state written on arrival;
// a row still carrying it marks a notification whose processing never
// finished and needs a manual reconcile.
const (
	WebhookOutcomeReceived  = "received"
	WebhookOutcomeProcessed = "processed"
	WebhookOutcomeIgnored   = "ignored"
	WebhookOutcomeRejected  = "rejected"
)

// WebhookEvent is an audit record of every inbound provider notification,
// persisted before processing so failed side effects can be reconciled by hand.
type WebhookEvent struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	EventID    string             `json:"eventId" bson:"eventId"`
	Provider   string             `json:"provider" bson:"provider"`
	OrderID    string             `json:"orderId,omitempty" bson:"orderId,omitempty"`
	EventType  string             `json:"eventType,omitempty" bson:"eventType,omitempty"`
	RawBody    string             `json:"rawBody,omitempty" bson:"rawBody,omitempty"`
	Outcome    string             `json:"outcome" bson:"outcome"`
	ReceivedAt time.Time          `json:"receivedAt" bson:"receivedAt"`
}
