package models

import "time"

// Gateway identifiers
const (
	GatewayMidtrans = "midtrans"
	GatewayMayar    = "mayar"
)

// GatewaySettings is the single runtime-configuration document (key
// "gateway"). It is re-read from the store on every request that needs it so
// the active gateway can change without a redeploy.
type GatewaySettings struct {
	Key               string    `json:"key" bson:"key"`
	ActiveGateway     string    `json:"activeGateway" bson:"activeGateway"`
	MidtransBaseURL   string    `json:"midtransBaseUrl,omitempty" bson:"midtransBaseUrl,omitempty"`
	MayarBaseURL      string    `json:"mayarBaseUrl,omitempty" bson:"mayarBaseUrl,omitempty"`
	MayarWebhookToken string    `json:"mayarWebhookToken,omitempty" bson:"mayarWebhookToken,omitempty"`
	RedirectURL       string    `json:"redirectUrl,omitempty" bson:"redirectUrl,omitempty"`
	RegistrationFee   int64     `json:"registrationFee,omitempty" bson:"registrationFee,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UpdateSettingsRequest is the admin body for switching gateways and URLs.
type UpdateSettingsRequest struct {
	ActiveGateway     string `json:"activeGateway" validate:"required,oneof=midtrans mayar"`
	MidtransBaseURL   string `json:"midtransBaseUrl,omitempty"`
	MayarBaseURL      string `json:"mayarBaseUrl,omitempty"`
	MayarWebhookToken string `json:"mayarWebhookToken,omitempty"`
	RedirectURL       string `json:"redirectUrl,omitempty"`
	RegistrationFee   int64  `json:"registrationFee,omitempty"`
}
