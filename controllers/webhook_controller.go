// controllers/webhook_controller.go
package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/config"
	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
	"github.com/frostextreme11/digitalsquad-sub001/services"
)

// WebhookController receives provider push notifications. Both handlers
// acknowledge with 2xx once the transaction outcome is durably recorded, even
// when later side effects fail: a retry of the same notification is harmless
// and a 5xx would only make the provider hammer an already-settled order.
type WebhookController struct {
	db        *mongo.Database
	txRepo    *repositories.TransactionRepository
	reconcile *services.ReconcileService
}

func NewWebhookController(db *mongo.Database) *WebhookController {
	return &WebhookController{
		db:        db,
		txRepo:    repositories.NewTransactionRepository(db),
		reconcile: services.NewReconcileService(db),
	}
}

// HandleMidtransNotification processes the Midtrans HTTP notification. The
// payload mirrors the status API response; order_id identifies the
// transaction and transaction_status plus fraud_status decide the outcome.
func (wc *WebhookController) HandleMidtransNotification(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Failed to read request body",
		})
	}

	// The audit row is written before anything is done with the payload, so
	// a crash mid-pipeline still leaves a record of what arrived.
	auditID := wc.auditReceipt(ctx, models.GatewayMidtrans, body)

	var notification models.MidtransNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		wc.auditResolve(ctx, auditID, "", "", models.WebhookOutcomeRejected)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification body",
		})
	}
	if notification.OrderID == "" {
		wc.auditResolve(ctx, auditID, "", notification.TransactionStatus, models.WebhookOutcomeRejected)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing order_id",
		})
	}

	log.Printf("Midtrans notification for order %s: status=%s fraud=%s",
		notification.OrderID, notification.TransactionStatus, notification.FraudStatus)

	tx, err := wc.txRepo.FindByOrderID(ctx, notification.OrderID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Unknown order, likely from another environment sharing the
			// same merchant account. Acknowledge so it stops retrying.
			log.Printf("Midtrans notification for unknown order %s, ignoring", notification.OrderID)
			wc.auditResolve(ctx, auditID, notification.OrderID, notification.TransactionStatus, models.WebhookOutcomeIgnored)
			return c.JSON(http.StatusOK, models.Response{
				Status:  http.StatusOK,
				Message: "Unknown order acknowledged",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transaction",
		})
	}

	normalized := services.NormalizeMidtransStatus(notification.TransactionStatus, notification.FraudStatus)

	outcome, err := wc.reconcile.ApplyStatus(ctx, tx, normalized)
	if err != nil {
		// The transition itself failed, nothing durable happened. Let the
		// provider retry; the audit row stays in its received state.
		log.Printf("Failed to apply Midtrans status for order %s: %v", notification.OrderID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process notification",
		})
	}

	wc.auditResolve(ctx, auditID, notification.OrderID, notification.TransactionStatus, auditOutcome(outcome))
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification processed",
		Data:    map[string]string{"outcome": outcome, "status": normalized},
	})
}

// HandleMayarWebhook processes the Mayar event push. The shared-secret header
// is checked before the body is trusted; reminder events are acknowledged
// without touching the transaction.
func (wc *WebhookController) HandleMayarWebhook(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := config.LoadGatewaySettings(ctx, wc.db)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load gateway settings",
		})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Failed to read request body",
		})
	}

	auditID := wc.auditReceipt(ctx, models.GatewayMayar, body)

	if settings.MayarWebhookToken == "" || c.Request().Header.Get("X-Webhook-Token") != settings.MayarWebhookToken {
		log.Printf("Mayar webhook rejected: bad or missing X-Webhook-Token")
		wc.auditResolve(ctx, auditID, "", "", models.WebhookOutcomeRejected)
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid webhook token",
		})
	}

	var payload models.MayarWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		wc.auditResolve(ctx, auditID, "", "", models.WebhookOutcomeRejected)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid webhook body",
		})
	}

	log.Printf("Mayar webhook event %s for ref %s (status %s)", payload.Event, payload.Data.MerchantRef, payload.Data.Status)

	normalized, transition := services.NormalizeMayarStatus(payload.Event, payload.Data.Status)
	if !transition {
		wc.auditResolve(ctx, auditID, payload.Data.MerchantRef, payload.Event, models.WebhookOutcomeIgnored)
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Event acknowledged",
		})
	}

	tx, err := wc.findMayarTransaction(ctx, payload.Data)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			log.Printf("Mayar webhook for unknown payment (ref=%s id=%s), ignoring", payload.Data.MerchantRef, payload.Data.ID)
			wc.auditResolve(ctx, auditID, payload.Data.MerchantRef, payload.Event, models.WebhookOutcomeIgnored)
			return c.JSON(http.StatusOK, models.Response{
				Status:  http.StatusOK,
				Message: "Unknown payment acknowledged",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transaction",
		})
	}

	outcome, err := wc.reconcile.ApplyStatus(ctx, tx, normalized)
	if err != nil {
		log.Printf("Failed to apply Mayar status for order %s: %v", tx.OrderID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process webhook",
		})
	}

	wc.auditResolve(ctx, auditID, tx.OrderID, payload.Event, auditOutcome(outcome))
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Webhook processed",
		Data:    map[string]string{"outcome": outcome, "status": normalized},
	})
}

// findMayarTransaction resolves the webhook payload to a transaction: the
// merchant reference carries our order id, the payment link id matches the
// stored gateway reference.
func (wc *WebhookController) findMayarTransaction(ctx context.Context, data models.MayarWebhookData) (*models.Transaction, error) {
	if data.MerchantRef != "" {
		tx, err := wc.txRepo.FindByOrderID(ctx, data.MerchantRef)
		if err == nil {
			return tx, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
	}
	if data.ID != "" {
		return wc.txRepo.FindByGatewayRef(ctx, data.ID)
	}
	return nil, mongo.ErrNoDocuments
}

// auditReceipt writes the webhook_events row the moment a payload arrives,
// before any of it is trusted or processed. Best effort: a failed audit write
// never blocks the notification response.
func (wc *WebhookController) auditReceipt(ctx context.Context, provider string, body []byte) primitive.ObjectID {
	event := models.WebhookEvent{
		ID:         primitive.NewObjectID(),
		EventID:    uuid.New().String(),
		Provider:   provider,
		RawBody:    string(body),
		Outcome:    models.WebhookOutcomeReceived,
		ReceivedAt: time.Now(),
	}
	if _, err := wc.db.Collection("webhook_events").InsertOne(ctx, event); err != nil {
		log.Printf("Failed to record webhook audit event (%s): %v", provider, err)
		return primitive.NilObjectID
	}
	return event.ID
}

// auditResolve patches the receipt row with what the payload turned out to be
// and how it was handled.
func (wc *WebhookController) auditResolve(ctx context.Context, auditID primitive.ObjectID, orderID, eventType, outcome string) {
	if auditID.IsZero() {
		return
	}
	_, err := wc.db.Collection("webhook_events").UpdateOne(ctx,
		bson.M{"_id": auditID},
		bson.M{"$set": bson.M{"orderId": orderID, "eventType": eventType, "outcome": outcome}})
	if err != nil {
		log.Printf("Failed to resolve webhook audit event %s: %v", auditID.Hex(), err)
	}
}

func auditOutcome(reconcileOutcome string) string {
	if reconcileOutcome == services.ReconcileOutcomeProcessed {
		return models.WebhookOutcomeProcessed
	}
	return models.WebhookOutcomeIgnored
}
