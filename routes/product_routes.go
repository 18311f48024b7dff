package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/frostextreme11/digitalsquad-sub001/controllers"
	"github.com/frostextreme11/digitalsquad-sub001/middleware"
	"github.com/frostextreme11/digitalsquad-sub001/models"
)

// RegisterProductRoutes sets up the public catalogue and the admin-only
// product management routes.
func RegisterProductRoutes(e *echo.Echo, db *mongo.Database) {
	productController := controllers.NewProductController(db)

	products := e.Group("/api/products")
	products.GET("", productController.ListProducts)
	products.GET("/:slug", productController.GetProduct)

	admin := e.Group("/api/admin/products")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireUserType(models.UserTypeAdmin))
	admin.POST("", productController.CreateProduct)
	admin.PUT("/:id", productController.UpdateProduct)
}
