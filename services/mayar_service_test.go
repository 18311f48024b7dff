package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostextreme11/digitalsquad-sub001/models"
)

func TestNormalizeMayarStatus(t *testing.T) {
	tests := []struct {
		name           string
		event          string
		status         string
		wantStatus     string
		wantTransition bool
	}{
		{"payment received", "payment.received", "", models.TransactionStatusSuccess, true},
		{"payment received overrules stale status field", "payment.received", "pending", models.TransactionStatusSuccess, true},
		{"reminder never transitions", "payment.reminder", "pending", "", false},
		{"reminder with paid status still never transitions", "payment.reminder", "paid", "", false},
		{"paid status", "", "paid", models.TransactionStatusSuccess, true},
		{"settled status", "", "SETTLED", models.TransactionStatusSuccess, true},
		{"expired status", "", "expired", models.TransactionStatusFailed, true},
		{"closed status", "", "closed", models.TransactionStatusFailed, true},
		{"created status", "", "created", models.TransactionStatusPending, true},
		{"unknown status stays pending", "payment.updated", "on-hold", models.TransactionStatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, transition := NormalizeMayarStatus(tt.event, tt.status)
			assert.Equal(t, tt.wantTransition, transition)
			assert.Equal(t, tt.wantStatus, got)
		})
	}
}

func TestMayarCreatePayment(t *testing.T) {
	t.Setenv("MAYAR_API_KEY", "mayar-test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/hl/v1/payment/create", r.URL.Path)
		require.Equal(t, "Bearer mayar-test-key", r.Header.Get("Authorization"))

		var createReq models.MayarCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&createReq))
		assert.Equal(t, "order-9", createReq.OrderID)
		assert.Equal(t, int64(50000), createReq.Amount)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.MayarCreateResponse{
			StatusCode: 200,
			Data: &models.MayarLink{
				ID:   "link-abc",
				Link: "https://pay.mayar.id/link-abc",
			},
		})
	}))
	defer server.Close()

	svc := NewMayarService(&models.GatewaySettings{MayarBaseURL: server.URL})
	session, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "order-9",
		Amount:     50000,
		BuyerName:  "Sari",
		BuyerEmail: "sari@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "link-abc", session.ProviderRef)
	assert.Equal(t, "https://pay.mayar.id/link-abc", session.PaymentURL)
}

func TestMayarCreatePaymentError(t *testing.T) {
	t.Setenv("MAYAR_API_KEY", "mayar-test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(models.MayarCreateResponse{
			StatusCode: 422,
			Messages:   "amount must be at least 10000",
		})
	}))
	defer server.Close()

	svc := NewMayarService(&models.GatewaySettings{MayarBaseURL: server.URL})
	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{OrderID: "order-low", Amount: 1})

	require.Error(t, err)
	gwErr, ok := err.(*GatewayError)
	require.True(t, ok)
	assert.Equal(t, models.GatewayMayar, gwErr.Provider)
	assert.False(t, gwErr.DuplicateOrder)
	assert.Contains(t, gwErr.Message, "amount must be at least")
}

func TestActiveGateway(t *testing.T) {
	midtrans, err := ActiveGateway(&models.GatewaySettings{ActiveGateway: models.GatewayMidtrans})
	require.NoError(t, err)
	assert.Equal(t, models.GatewayMidtrans, midtrans.Name())

	mayar, err := ActiveGateway(&models.GatewaySettings{ActiveGateway: models.GatewayMayar})
	require.NoError(t, err)
	assert.Equal(t, models.GatewayMayar, mayar.Name())

	_, err = ActiveGateway(&models.GatewaySettings{ActiveGateway: "stripe"})
	assert.Error(t, err)
}
