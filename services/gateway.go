// services/gateway.go
package services

import (
	"context"
	"fmt"

	"github.com/frostextreme11/digitalsquad-sub001/models"
)

// CreatePaymentInput carries everything a provider needs to mint a hosted
// payment link.
type CreatePaymentInput struct {
	OrderID     string
	Amount      int64
	BuyerName   string
	BuyerEmail  string
	BuyerPhone  string
	Description string
	RedirectURL string
}

// PaymentSession is the provider-side handle for a created payment.
type PaymentSession struct {
	ProviderRef string
	PaymentURL  string
}

// PaymentGateway is the capability set shared by both providers. Provider
// identity never leaks past this boundary: callers select a gateway via
// ActiveGateway and only ever see the normalized status vocabulary.
type PaymentGateway interface {
	Name() string
	CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentSession, error)
}

// GatewayError is the common failure shape for both providers.
// DuplicateOrder marks the specific rejection where the order reference was
// already consumed on the provider side; the intent creator reacts to it by
// minting a fresh transaction and retrying once.
type GatewayError struct {
	Provider       string
	Code           string
	Message        string
	DuplicateOrder bool
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s gateway error: %s - %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s gateway error: %s", e.Provider, e.Message)
}

// IsDuplicateOrder reports whether err is a provider rejection for an
// already-used order reference.
func IsDuplicateOrder(err error) bool {
	gwErr, ok := err.(*GatewayError)
	return ok && gwErr.DuplicateOrder
}

// ActiveGateway returns the gateway client selected by the settings document.
// Settings are loaded fresh per request by the caller, so an admin switch
// takes effect on the next request without a restart.
func ActiveGateway(settings *models.GatewaySettings) (PaymentGateway, error) {
	switch settings.ActiveGateway {
	case models.GatewayMidtrans:
		return NewMidtransService(settings), nil
	case models.GatewayMayar:
		return NewMayarService(settings), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway configured: %q", settings.ActiveGateway)
	}
}
