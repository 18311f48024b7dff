package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/controllers"
	"github.com/frostextreme11/digitalsquad-sub001/middleware"
	"github.com/frostextreme11/digitalsquad-sub001/models"
)

// RegisterAdminRoutes sets up the back-office routes. Everything here is
// admin only.
func RegisterAdminRoutes(e *echo.Echo, db *mongo.Database) {
	adminController := controllers.NewAdminController(db)

	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireUserType(models.UserTypeAdmin))

	admin.GET("/settings", adminController.GetSettings)
	admin.PUT("/settings", adminController.UpdateSettings)

	admin.GET("/transactions", adminController.ListTransactions)
	admin.POST("/transactions/:id/reconcile", adminController.ReconcileTransaction)

	admin.GET("/commissions", adminController.ListCommissions)
	admin.GET("/webhook-events", adminController.ListWebhookEvents)
}
