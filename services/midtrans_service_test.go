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

func TestNormalizeMidtransStatus(t *testing.T) {
	tests := []struct {
		name              string
		transactionStatus string
		fraudStatus       string
		want              string
	}{
		{"capture accepted", "capture", "accept", models.TransactionStatusSuccess},
		{"capture without fraud status", "capture", "", models.TransactionStatusSuccess},
		{"capture challenged stays pending", "capture", "challenge", models.TransactionStatusPending},
		{"capture with unknown fraud status stays pending", "capture", "review", models.TransactionStatusPending},
		{"settlement", "settlement", "", models.TransactionStatusSuccess},
		{"pending", "pending", "", models.TransactionStatusPending},
		{"deny", "deny", "", models.TransactionStatusFailed},
		{"cancel", "cancel", "", models.TransactionStatusFailed},
		{"expire", "expire", "", models.TransactionStatusFailed},
		{"failure", "failure", "", models.TransactionStatusFailed},
		{"unknown status stays pending", "refund", "", models.TransactionStatusPending},
		{"empty status stays pending", "", "", models.TransactionStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMidtransStatus(tt.transactionStatus, tt.fraudStatus)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsDuplicateOrderMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"english rejection", "transaction_details.order_id has already been taken", true},
		{"indonesian rejection", "order_id sudah digunakan", true},
		{"unrelated validation error", "gross_amount is required", false},
		{"order_id mentioned for another reason", "order_id is too long", false},
		{"empty message", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isDuplicateOrderMessage(tt.message))
		})
	}
}

func TestMidtransCreatePayment(t *testing.T) {
	t.Setenv("MIDTRANS_SERVER_KEY", "SB-Mid-server-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/snap/v1/transactions", r.URL.Path)

		username, _, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "SB-Mid-server-test", username)

		var snapReq models.MidtransSnapRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&snapReq))
		assert.Equal(t, "order-123", snapReq.TransactionDetails.OrderID)
		assert.Equal(t, int64(150000), snapReq.TransactionDetails.GrossAmount)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.MidtransSnapResponse{
			Token:       "snap-token-1",
			RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token-1",
		})
	}))
	defer server.Close()

	svc := NewMidtransService(&models.GatewaySettings{MidtransBaseURL: server.URL})
	session, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		OrderID:    "order-123",
		Amount:     150000,
		BuyerName:  "Budi",
		BuyerEmail: "budi@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "snap-token-1", session.ProviderRef)
	assert.Contains(t, session.PaymentURL, "snap-token-1")
}

func TestMidtransCreatePaymentDuplicateOrder(t *testing.T) {
	t.Setenv("MIDTRANS_SERVER_KEY", "SB-Mid-server-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(models.MidtransSnapResponse{
			ErrorMessages: []string{"transaction_details.order_id has already been taken"},
		})
	}))
	defer server.Close()

	svc := NewMidtransService(&models.GatewaySettings{MidtransBaseURL: server.URL})
	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{OrderID: "stale-order", Amount: 1000})

	require.Error(t, err)
	assert.True(t, IsDuplicateOrder(err))
}

func TestMidtransGetTransactionStatus(t *testing.T) {
	t.Setenv("MIDTRANS_SERVER_KEY", "SB-Mid-server-test")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v2/order-77/status", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.MidtransStatusResponse{
			OrderID:           "order-77",
			TransactionStatus: "settlement",
			StatusCode:        "200",
		})
	}))
	defer server.Close()

	svc := NewMidtransService(&models.GatewaySettings{MidtransBaseURL: server.URL})
	status, err := svc.GetTransactionStatus(context.Background(), "order-77")

	require.NoError(t, err)
	assert.Equal(t, "settlement", status.TransactionStatus)
	assert.Equal(t, models.TransactionStatusSuccess, NormalizeMidtransStatus(status.TransactionStatus, status.FraudStatus))
}

func TestMidtransMissingCredentials(t *testing.T) {
	t.Setenv("MIDTRANS_SERVER_KEY", "")

	svc := NewMidtransService(&models.GatewaySettings{MidtransBaseURL: "http://localhost:0"})
	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{OrderID: "x", Amount: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MIDTRANS_SERVER_KEY")
}
