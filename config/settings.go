// config/settings.go
package config

import (
	"context"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/models"
)

// Default provider endpoints; overridable per environment through the
// settings document or env vars.
const (
	DefaultMidtransBaseURL = "https://api.sandbox.midtrans.com"
	DefaultMayarBaseURL    = "https://api.mayar.id"
)

// LoadGatewaySettings reads the gateway settings document. It is called fresh
// on every request that touches a provider so an admin gateway switch takes
// effect without a restart. Missing document or missing fields fall back to
// env, then to defaults.
func LoadGatewaySettings(ctx context.Context, db *mongo.Database) (*models.GatewaySettings, error) {
	var settings models.GatewaySettings
	err := db.Collection("settings").FindOne(ctx, bson.M{"key": "gateway"}).Decode(&settings)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, err
	}

	if settings.ActiveGateway == "" {
		settings.ActiveGateway = os.Getenv("ACTIVE_GATEWAY")
	}
	if settings.ActiveGateway == "" {
		settings.ActiveGateway = models.GatewayMidtrans
	}
	if settings.MidtransBaseURL == "" {
		settings.MidtransBaseURL = os.Getenv("MIDTRANS_BASE_URL")
	}
	if settings.MidtransBaseURL == "" {
		settings.MidtransBaseURL = DefaultMidtransBaseURL
	}
	if settings.MayarBaseURL == "" {
		settings.MayarBaseURL = os.Getenv("MAYAR_BASE_URL")
	}
	if settings.MayarBaseURL == "" {
		settings.MayarBaseURL = DefaultMayarBaseURL
	}
	if settings.MayarWebhookToken == "" {
		settings.MayarWebhookToken = os.Getenv("MAYAR_WEBHOOK_TOKEN")
	}
	if settings.RedirectURL == "" {
		settings.RedirectURL = os.Getenv("PAYMENT_REDIRECT_URL")
	}

	return &settings, nil
}
