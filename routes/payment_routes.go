package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/controllers"
)

// RegisterPaymentRoutes sets up checkout and provider callback routes. All of
// them are public: checkout runs before the buyer has an account and the
// providers do not authenticate beyond their own mechanisms.
func RegisterPaymentRoutes(e *echo.Echo, db *mongo.Database) {
	paymentController := controllers.NewPaymentController(db)
	webhookController := controllers.NewWebhookController(db)

	payment := e.Group("/api/payment")
	payment.POST("/intent", paymentController.CreateIntent)
	payment.POST("/status", paymentController.PollStatus)

	// Provider push notifications
	payment.POST("/midtrans/notification", webhookController.HandleMidtransNotification)
	payment.POST("/mayar/webhook", webhookController.HandleMayarWebhook)
}
