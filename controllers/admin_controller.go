// controllers/admin_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/frostextreme11/digitalsquad-sub001/config"
	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
	"github.com/frostextreme11/digitalsquad-sub001/services"
)

// AdminController exposes the back-office surface: gateway settings,
// transaction and commission listings, and manual reconciliation for
// transactions whose webhook never arrived.
type AdminController struct {
	db             *mongo.Database
	txRepo         *repositories.TransactionRepository
	commissionRepo *repositories.CommissionRepository
	reconcile      *services.ReconcileService
}

func NewAdminController(db *mongo.Database) *AdminController {
	return &AdminController{
		db:             db,
		txRepo:         repositories.NewTransactionRepository(db),
		commissionRepo: repositories.NewCommissionRepository(db),
		reconcile:      services.NewReconcileService(db),
	}
}

// GetSettings returns the effective gateway settings, env fallbacks applied.
func (ac *AdminController) GetSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := config.LoadGatewaySettings(ctx, ac.db)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load settings",
		})
	}

	// The webhook token is a secret; report only whether it is set.
	configured := settings.MayarWebhookToken != ""
	settings.MayarWebhookToken = ""

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Settings retrieved",
		Data: map[string]interface{}{
			"settings":               settings,
			"mayarWebhookTokenIsSet": configured,
		},
	})
}

// UpdateSettings upserts the gateway settings document. The change is picked
// up by the next request; no restart needed.
func (ac *AdminController) UpdateSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed",
			Data:    err.Error(),
		})
	}

	update := bson.M{
		"activeGateway": req.ActiveGateway,
		"updatedAt":     time.Now(),
	}
	if req.MidtransBaseURL != "" {
		update["midtransBaseUrl"] = req.MidtransBaseURL
	}
	if req.MayarBaseURL != "" {
		update["mayarBaseUrl"] = req.MayarBaseURL
	}
	if req.MayarWebhookToken != "" {
		update["mayarWebhookToken"] = req.MayarWebhookToken
	}
	if req.RedirectURL != "" {
		update["redirectUrl"] = req.RedirectURL
	}
	if req.RegistrationFee > 0 {
		update["registrationFee"] = req.RegistrationFee
	}

	opts := options.Update().SetUpsert(true)
	_, err := ac.db.Collection("settings").UpdateOne(ctx,
		bson.M{"key": "gateway"},
		bson.M{"$set": update, "$setOnInsert": bson.M{"key": "gateway"}},
		opts,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update settings",
		})
	}

	log.Printf("Gateway settings updated, active gateway is now %s", req.ActiveGateway)
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Settings updated",
	})
}

// ListTransactions returns transactions, optionally filtered by status or type.
func (ac *AdminController) ListTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = status
	}
	if txType := c.QueryParam("type"); txType != "" {
		filter["type"] = txType
	}

	page, limit := pagination(c)
	transactions, err := ac.txRepo.List(ctx, filter, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transactions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transactions retrieved",
		Data:    transactions,
	})
}

// ListCommissions returns all commission rows, newest first.
func (ac *AdminController) ListCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	page, limit := pagination(c)
	commissions, err := ac.commissionRepo.ListAll(ctx, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load commissions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commissions retrieved",
		Data:    commissions,
	})
}

// ListWebhookEvents returns the webhook audit log, newest first.
func (ac *AdminController) ListWebhookEvents(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if provider := c.QueryParam("provider"); provider != "" {
		filter["provider"] = provider
	}
	if outcome := c.QueryParam("outcome"); outcome != "" {
		filter["outcome"] = outcome
	}

	page, limit := pagination(c)
	opts := options.Find().
		SetSort(bson.D{{Key: "receivedAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := ac.db.Collection("webhook_events").Find(ctx, filter, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load webhook events",
		})
	}
	defer cursor.Close(ctx)

	events := []models.WebhookEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode webhook events",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Webhook events retrieved",
		Data:    events,
	})
}

// ReconcileTransaction re-drives reconciliation for one transaction. For
// Midtrans the provider is asked for the authoritative status; for Mayar the
// admin supplies the outcome observed in the provider dashboard. Safe to call
// repeatedly: the pipeline's guards make replays no-ops.
func (ac *AdminController) ReconcileTransaction(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid transaction ID",
		})
	}

	tx, err := ac.txRepo.FindByID(ctx, id)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Transaction not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transaction",
		})
	}

	var body struct {
		Status string `json:"status,omitempty"`
	}
	_ = c.Bind(&body)

	normalized, err := ac.resolveStatus(ctx, tx, body.Status)
	if err != nil {
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Failed to determine provider status",
			Data:    err.Error(),
		})
	}
	if normalized == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A terminal status (success, failed, cancelled) is required for this transaction",
		})
	}

	outcome, err := ac.reconcile.ApplyStatus(ctx, tx, normalized)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to reconcile transaction",
		})
	}

	log.Printf("Manual reconcile of transaction %s: status=%s outcome=%s", tx.ID.Hex(), normalized, outcome)
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Reconciliation applied",
		Data:    map[string]string{"status": normalized, "outcome": outcome},
	})
}

func (ac *AdminController) resolveStatus(ctx context.Context, tx *models.Transaction, requested string) (string, error) {
	if requested != "" {
		if requested != models.TransactionStatusSuccess &&
			requested != models.TransactionStatusFailed &&
			requested != models.TransactionStatusCancelled {
			return "", nil
		}
		return requested, nil
	}

	if tx.Gateway != models.GatewayMidtrans {
		return "", nil
	}

	settings, err := config.LoadGatewaySettings(ctx, ac.db)
	if err != nil {
		return "", err
	}
	status, err := services.NewMidtransService(settings).GetTransactionStatus(ctx, tx.OrderID)
	if err != nil {
		return "", err
	}
	return services.NormalizeMidtransStatus(status.TransactionStatus, status.FraudStatus), nil
}
