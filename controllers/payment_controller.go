// controllers/payment_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/config"
	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/repositories"
	"github.com/frostextreme11/digitalsquad-sub001/services"
)

type PaymentController struct {
	db        *mongo.Database
	txRepo    *repositories.TransactionRepository
	checkout  *services.CheckoutService
	reconcile *services.ReconcileService
}

func NewPaymentController(db *mongo.Database) *PaymentController {
	txRepo := repositories.NewTransactionRepository(db)
	userRepo := repositories.NewUserRepository(db)
	return &PaymentController{
		db:        db,
		txRepo:    txRepo,
		checkout:  services.NewCheckoutService(db, txRepo, userRepo),
		reconcile: services.NewReconcileService(db),
	}
}

// CreateIntent starts a checkout, or resumes a pending one for the same buyer
// and purchase type. Returns the hosted payment link.
func (pc *PaymentController) CreateIntent(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.CreateIntentRequest
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

	resp, err := pc.checkout.CreateOrReuseIntent(ctx, &req)
	if err != nil {
		return pc.intentError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment intent created",
		Data:    resp,
	})
}

func (pc *PaymentController) intentError(c echo.Context, err error) error {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: validationErr.Message,
		})
	}

	var notFoundErr *services.NotFoundError
	if errors.As(err, &notFoundErr) {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: notFoundErr.Error(),
		})
	}

	var gatewayErr *services.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Payment provider error: " + gatewayErr.Message,
		})
	}

	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Failed to create payment intent",
		Data:    err.Error(),
	})
}

// PollStatus checks a transaction's current status. For Midtrans transactions
// it queries the provider's status API and reconciles the answer through the
// same path the webhook uses, so a dropped notification can be recovered from
// the checkout page.
func (pc *PaymentController) PollStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var req models.StatusPollRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if req.TransactionID == "" && req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "transaction_id or order_id is required",
		})
	}

	tx, err := pc.findTransaction(ctx, req)
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

	// Only Midtrans exposes a status API. Pending transactions on other
	// gateways settle through their webhook alone.
	if tx.Gateway == models.GatewayMidtrans && !models.IsTerminalStatus(tx.Status) {
		if refreshed, err := pc.refreshFromMidtrans(ctx, tx); err == nil {
			tx = refreshed
		}
	}

	data := map[string]interface{}{
		"transaction_id": tx.ID.Hex(),
		"order_id":       tx.OrderID,
		"status":         tx.Status,
		"gateway":        tx.Gateway,
		"amount":         tx.Amount,
		"paid_at":        tx.PaidAt,
	}

	// A settled product purchase carries its deliverable so the checkout page
	// can offer the download without waiting for the email.
	if tx.Status == models.TransactionStatusSuccess && tx.Type == models.TransactionTypeProductPurchase {
		if title, fileURL, err := pc.deliverable(ctx, tx); err == nil {
			data["product_title"] = title
			data["file_url"] = fileURL
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transaction status",
		Data:    data,
	})
}

func (pc *PaymentController) deliverable(ctx context.Context, tx *models.Transaction) (string, string, error) {
	var purchase models.ProductPurchase
	err := pc.db.Collection("product_purchases").FindOne(ctx, bson.M{"transactionId": tx.ID}).Decode(&purchase)
	if err != nil {
		return "", "", err
	}
	var product models.Product
	err = pc.db.Collection("products").FindOne(ctx, bson.M{"_id": purchase.ProductID}).Decode(&product)
	if err != nil {
		return "", "", err
	}
	return product.Title, product.FileURL, nil
}

func (pc *PaymentController) findTransaction(ctx context.Context, req models.StatusPollRequest) (*models.Transaction, error) {
	if req.TransactionID != "" {
		id, err := primitive.ObjectIDFromHex(req.TransactionID)
		if err != nil {
			return nil, mongo.ErrNoDocuments
		}
		return pc.txRepo.FindByID(ctx, id)
	}
	return pc.txRepo.FindByOrderID(ctx, req.OrderID)
}

func (pc *PaymentController) refreshFromMidtrans(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	settings, err := config.LoadGatewaySettings(ctx, pc.db)
	if err != nil {
		return nil, err
	}

	status, err := services.NewMidtransService(settings).GetTransactionStatus(ctx, tx.OrderID)
	if err != nil {
		return nil, err
	}

	normalized := services.NormalizeMidtransStatus(status.TransactionStatus, status.FraudStatus)
	if _, err := pc.reconcile.ApplyStatus(ctx, tx, normalized); err != nil {
		return nil, err
	}

	return pc.txRepo.FindByID(ctx, tx.ID)
}
