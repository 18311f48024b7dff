package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/controllers"
	"github.com/frostextreme11/digitalsquad-sub001/middleware"
)

// RegisterReferralRoutes sets up the agent dashboard routes.
func RegisterReferralRoutes(e *echo.Echo, db *mongo.Database) {
	referralController := controllers.NewReferralController(db)

	r := e.Group("/api/agent")
	r.Use(middleware.JWTMiddleware())

	r.GET("/profile", referralController.GetProfile)
	r.GET("/commissions", referralController.GetCommissions)
	r.GET("/downlines", referralController.GetDownlines)
	r.GET("/notifications", referralController.GetNotifications)
}
