// services/mayar_service.go
package services

import (
	"bytes"
	"context"
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

// MayarService talks to the Mayar headless payment API.
type MayarService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewMayarService creates a Mayar client from the settings snapshot. The API
// key stays in the environment; only URLs live in the store.
func NewMayarService(settings *models.GatewaySettings) *MayarService {
	apiKey := os.Getenv("MAYAR_API_KEY")
	if apiKey == "" {
		log.Printf("WARNING: MAYAR_API_KEY is not configured")
	}

	return &MayarService{
		baseURL: strings.TrimRight(settings.MayarBaseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (s *MayarService) Name() string {
	return models.GatewayMayar
}

func (s *MayarService) makeRequest(ctx context.Context, method, url string, payload interface{}, out interface{}) (int, error) {
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

	if s.apiKey == "" {
		return 0, fmt.Errorf("missing Mayar credentials. Please set MAYAR_API_KEY environment variable")
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

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
		log.Printf("Mayar API response (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}

	return resp.StatusCode, nil
}

// CreatePayment creates a hosted payment link.
func (s *MayarService) CreatePayment(ctx context.Context, input CreatePaymentInput) (*PaymentSession, error) {
	createReq := models.MayarCreateRequest{
		Name:        input.BuyerName,
		Email:       input.BuyerEmail,
		Mobile:      input.BuyerPhone,
		Amount:      input.Amount,
		Description: input.Description,
		RedirectURL: input.RedirectURL,
		OrderID:     input.OrderID,
	}

	var createResp models.MayarCreateResponse
	statusCode, err := s.makeRequest(ctx, http.MethodPost, s.baseURL+"/hl/v1/payment/create", createReq, &createResp)
	if err != nil {
		return nil, &GatewayError{Provider: models.GatewayMayar, Message: err.Error()}
	}

	if statusCode >= 300 || createResp.Data == nil {
		message := createResp.Messages
		if message == "" {
			message = fmt.Sprintf("unexpected status code %d", statusCode)
		}
		return nil, &GatewayError{
			Provider:       models.GatewayMayar,
			Code:           fmt.Sprintf("%d", statusCode),
			Message:        message,
			DuplicateOrder: strings.Contains(strings.ToLower(message), "duplicate"),
		}
	}

	if createResp.Data.Link == "" {
		return nil, &GatewayError{Provider: models.GatewayMayar, Message: "missing payment link in response"}
	}

	return &PaymentSession{
		ProviderRef: createResp.Data.ID,
		PaymentURL:  createResp.Data.Link,
	}, nil
}

// NormalizeMayarStatus maps a Mayar webhook (event, status) pair to the
// internal vocabulary. The second return is false when the event must not
// cause any transition at all: reminder events restate an old pending state
// and acting on one could clobber a payment that already advanced.
func NormalizeMayarStatus(event, status string) (string, bool) {
	if event == models.MayarEventPaymentReminder {
		return "", false
	}
	if event == models.MayarEventPaymentReceived {
		return models.TransactionStatusSuccess, true
	}

	switch strings.ToLower(status) {
	case "success", "paid", "settled":
		return models.TransactionStatusSuccess, true
	case "failed", "expired", "cancelled", "closed":
		return models.TransactionStatusFailed, true
	case "pending", "created", "active":
		return models.TransactionStatusPending, true
	default:
		log.Printf("Warning: unmapped Mayar status %q (event %q), treating as pending", status, event)
		return models.TransactionStatusPending, true
	}
}
