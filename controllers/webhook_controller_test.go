package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/frostextreme11/digitalsquad-sub001/models"
	"github.com/frostextreme11/digitalsquad-sub001/services"
)

func TestAuditOutcome(t *testing.T) {
	assert.Equal(t, models.WebhookOutcomeProcessed, auditOutcome(services.ReconcileOutcomeProcessed))
	assert.Equal(t, models.WebhookOutcomeIgnored, auditOutcome(services.ReconcileOutcomeAlreadyTerminal))
	assert.Equal(t, models.WebhookOutcomeIgnored, auditOutcome(services.ReconcileOutcomeLostRace))
	assert.Equal(t, models.WebhookOutcomeIgnored, auditOutcome(services.ReconcileOutcomeNoTransition))
}

func TestMidtransNotificationAuditedOnReceipt(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("the audit row lands before any processing", func(mt *mtest.T) {
		txID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(), // audit insert on receipt
			mtest.CreateCursorResponse(0, "digitalsquad.transactions", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: txID},
				{Key: "orderId", Value: "order-9"},
				{Key: "amount", Value: int64(100000)},
				{Key: "type", Value: models.TransactionTypeRegistration},
				{Key: "status", Value: models.TransactionStatusPending},
			}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}), // status transition
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}), // purchase mirror
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}), // audit outcome
		)
		wc := NewWebhookController(mt.DB)

		e := echo.New()
		body := `{"order_id":"order-9","transaction_status":"deny"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payment/midtrans/notification", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(mt, wc.HandleMidtransNotification(c))
		assert.Equal(mt, http.StatusOK, rec.Code)

		events := mt.GetAllStartedEvents()
		require.NotEmpty(mt, events)
		assert.Equal(mt, "insert", events[0].CommandName)
		assert.Equal(mt, "webhook_events", events[0].Command.Lookup("insert").StringValue())
	})
}

func TestPagination(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name      string
		query     string
		wantPage  int64
		wantLimit int64
	}{
		{"defaults", "", 1, 20},
		{"explicit values", "page=3&limit=50", 3, 50},
		{"zero page clamps to first", "page=0&limit=10", 1, 10},
		{"negative values clamp", "page=-2&limit=-5", 1, 20},
		{"oversized limit clamps", "page=2&limit=500", 2, 20},
		{"garbage falls back", "page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/?"+tt.query, nil)
			c := e.NewContext(req, httptest.NewRecorder())

			page, limit := pagination(c)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}
