// controllers/product_controller.go
package controllers

import (
	"context"
	"encoding/json"
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
)

const (
	productCacheKey = "products:active"
	productCacheTTL = 5 * time.Minute
)

type ProductController struct {
	db *mongo.Database
}

func NewProductController(db *mongo.Database) *ProductController {
	return &ProductController{db: db}
}

// ListProducts returns the active catalogue. Served from Redis when the cache
// is warm; checkout pages hit this on every visit.
func (pc *ProductController) ListProducts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cached := pc.readCache(ctx); cached != nil {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Products retrieved",
			Data:    cached,
		})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := pc.db.Collection("products").Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load products",
		})
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decode products",
		})
	}

	// File URLs are only disclosed through the delivery email.
	for i := range products {
		products[i].FileURL = ""
	}

	pc.writeCache(ctx, products)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Products retrieved",
		Data:    products,
	})
}

// GetProduct returns one product by slug.
func (pc *ProductController) GetProduct(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slug := c.Param("slug")
	var product models.Product
	err := pc.db.Collection("products").FindOne(ctx, bson.M{"slug": slug, "active": true}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Product not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load product",
		})
	}

	// File URL is only disclosed through the delivery email.
	product.FileURL = ""

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Product retrieved",
		Data:    product,
	})
}

// CreateProduct adds a product to the catalogue. Admin only.
func (pc *ProductController) CreateProduct(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var product models.Product
	if err := c.Bind(&product); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if product.Title == "" || product.Slug == "" || product.Price <= 0 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "title, slug and a positive price are required",
		})
	}

	now := time.Now()
	product.ID = primitive.NewObjectID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if _, err := pc.db.Collection("products").InsertOne(ctx, product); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create product",
		})
	}

	pc.invalidateCache(ctx)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Product created",
		Data:    product,
	})
}

// UpdateProduct edits a product. Admin only.
func (pc *ProductController) UpdateProduct(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid product ID",
		})
	}

	var body bson.M
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	update := bson.M{"updatedAt": time.Now()}
	for _, field := range []string{"title", "slug", "description", "price", "commissionRate", "fileUrl", "active"} {
		if value, ok := body[field]; ok {
			update[field] = value
		}
	}

	result, err := pc.db.Collection("products").UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update product",
		})
	}
	if result.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Product not found",
		})
	}

	pc.invalidateCache(ctx)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Product updated",
	})
}

func (pc *ProductController) readCache(ctx context.Context) []models.Product {
	client := config.GetRedisClient()
	if client == nil {
		return nil
	}
	raw, err := client.Get(ctx, productCacheKey).Result()
	if err != nil {
		return nil
	}
	var products []models.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil
	}
	return products
}

func (pc *ProductController) writeCache(ctx context.Context, products []models.Product) {
	client := config.GetRedisClient()
	if client == nil {
		return
	}
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := client.Set(ctx, productCacheKey, raw, productCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache product list: %v", err)
	}
}

func (pc *ProductController) invalidateCache(ctx context.Context) {
	client := config.GetRedisClient()
	if client == nil {
		return
	}
	if err := client.Del(ctx, productCacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate product cache: %v", err)
	}
}
