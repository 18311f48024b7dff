// services/midtrans_service.go
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/frostextreme11/digitalsquad-sub001/models"
)

// MidtransService talks to the Midtrans Snap and status APIs.
type MidtransService struct {
	baseURL   string
	serverKey string
	client    *http.Client
}

// NewMidtransService creates a Midtrans client from the settings snapshot.
// The server key stays in the environment; only URLs live in the store.
func NewMidtransService(settings *models.GatewaySettings) *MidtransService {
	serverKey := os.Getenv("MIDTRANS_SERVER_KEY")
	if serverKey == "" {
		log.Printf("WARNING: MIDTRANS_SERVER_KEY is not configured")
	}

	return &MidtransService{
		baseURL:   strings.TrimRight(settings.MidtransBaseURL, "/"),
		serverKey: serverKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *MidtransService) Name() string {
	return models.GatewayMidtrans
}

// makeRequest performs an HTTP request against the Midtrans API. The server
// key is passed as the basic-auth username per their HTTP contract.
func (s *MidtransService) makeRequest(ctx context.Context, method, url string, payload interface{}, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if s.serverKey == "" {
		return 0, fmt.Errorf("missing Midtrans credentials. Please set MIDTRANS_SERVER_KEY environment variable")
	}

	auth := base64.StdEncoding.EncodeToString([]byte(s.serverKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if os.Getenv("GATEWAY_DEBUG") == "true" {
		log.Printf("Midtrans API response (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}

	return resp.StatusCode, nil
}

// CreatePayment creates a Snap transaction and returns the hosted redirect URL.
func (s *MidtransService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentSession, error) {
	snapReq := models.MidtransSnapRequest{
		TransactionDetails: models.MidtransTransactionDetails{
			OrderID:     input.OrderID,
			GrossAmount: input.Amount,
		},
		CustomerDetails: models.MidtransCustomerDetails{
			FirstName: input.BuyerName,
			Email:     input.BuyerEmail,
			Phone:     input.BuyerPhone,
		},
	}
	if input.Description != "" {
		snapReq.ItemDetails = []models.MidtransItemDetail{{
			ID:       input.OrderID,
			Name:     input.Description,
			Price:    input.Amount,
			Quantity: 1,
		}}
	}
	if input.RedirectURL != "" {
		snapReq.Callbacks = &models.MidtransCallbacks{Finish: input.RedirectURL}
	}

	var snapResp models.MidtransSnapResponse
	statusCode, err := s.makeRequest(ctx, http.MethodPost, s.baseURL+"/snap/v1/transactions", snapReq, &snapResp)
	if err != nil {
		return nil, &GatewayError{Provider: models.GatewayMidtrans, Message: err.Error()}
	}

	if statusCode >= 300 || len(snapResp.ErrorMessages) > 0 {
		message := strings.Join(snapResp.ErrorMessages, "; ")
		if message == "" {
			message = fmt.Sprintf("unexpected status code %d", statusCode)
		}
		return nil, &GatewayError{
			Provider:       models.GatewayMidtrans,
			Code:           fmt.Sprintf("%d", statusCode),
			Message:        message,
			DuplicateOrder: isDuplicateOrderMessage(message),
		}
	}

	if snapResp.RedirectURL == "" {
		return nil, &GatewayError{Provider: models.GatewayMidtrans, Message: "missing redirect_url in Snap response"}
	}

	return &PaymentSession{
		ProviderRef: snapResp.Token,
		PaymentURL:  snapResp.RedirectURL,
	}, nil
}

// GetTransactionStatus queries the status API for an order reference. This is
// the poll channel; its result feeds the same reconciliation path as the
// webhook channel.
func (s *MidtransService) GetTransactionStatus(ctx context.Context, orderID string) (*models.MidtransStatusResponse, error) {
	var statusResp models.MidtransStatusResponse
	statusCode, err := s.makeRequest(ctx, http.MethodGet, s.baseURL+"/v2/"+orderID+"/status", nil, &statusResp)
	if err != nil {
		return nil, &GatewayError{Provider: models.GatewayMidtrans, Message: err.Error()}
	}
	if statusCode == http.StatusNotFound {
		return nil, &GatewayError{
			Provider: models.GatewayMidtrans,
			Code:     "404",
			Message:  fmt.Sprintf("transaction %s not found", orderID),
		}
	}
	if statusCode >= 300 {
		return nil, &GatewayError{
			Provider: models.GatewayMidtrans,
			Code:     fmt.Sprintf("%d", statusCode),
			Message:  statusResp.StatusMessage,
		}
	}
	return &statusResp, nil
}

// isDuplicateOrderMessage recognizes the Snap rejection for an order_id that
// was already consumed. Midtrans phrases it in English or Indonesian
// depending on account locale.
func isDuplicateOrderMessage(message string) bool {
	lower := strings.ToLower(message)
	if !strings.Contains(lower, "order_id") {
		return false
	}
	return strings.Contains(lower, "has already been taken") || strings.Contains(lower, "sudah digunakan")
}

// NormalizeMidtransStatus maps the Midtrans status vocabulary to the internal
// one. Capture is only money-in-hand once fraud review accepted it; a
// challenge keeps the transaction pending until manual review resolves.
// Unknown statuses stay pending with a warning rather than mis-transitioning.
func NormalizeMidtransStatus(transactionStatus, fraudStatus string) string {
	switch transactionStatus {
	case "capture":
		switch fraudStatus {
		case "accept", "":
			return models.TransactionStatusSuccess
		case "challenge":
			return models.TransactionStatusPending
		default:
			log.Printf("Warning: unmapped Midtrans fraud_status %q, treating capture as pending", fraudStatus)
			return models.TransactionStatusPending
		}
	case "settlement":
		return models.TransactionStatusSuccess
	case "pending":
		return models.TransactionStatusPending
	case "deny", "cancel", "expire", "failure":
		return models.TransactionStatusFailed
	default:
		log.Printf("Warning: unmapped Midtrans transaction_status %q, treating as pending", transactionStatus)
		return models.TransactionStatusPending
	}
}
