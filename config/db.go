// config/db.go
package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB
func ConnectDB() *mongo.Client {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = os.Getenv("MONGODB_URI")
	}

	// Only use the Docker service name as fallback in development
	if mongoURI == "" {
		env := os.Getenv("ENV")
		if env == "development" || env == "dev" {
			mongoURI = "mongodb://mongodb:27017"
		} else {
			log.Fatal("MONGO_URI or MONGODB_URI environment variable is required for production")
		}
	}

	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(mongoURI))

	clientOptions := options.Client().ApplyURI(mongoURI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		log.Fatal("MongoDB ping error:", err)
	}

	log.Println("Connected to MongoDB")

	setupCollections(client)

	return client
}

// DatabaseName returns the configured database name.
func DatabaseName() string {
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "digitalsquad"
	}
	return dbName
}

// GetCollection returns MongoDB collection
func GetCollection(client *mongo.Client, collectionName string) *mongo.Collection {
	return client.Database(DatabaseName()).Collection(collectionName)
}

// setupCollections ensures all necessary collections and indexes exist.
// The unique index on commissions (agentId, transactionId) is load-bearing:
// it is what keeps the reconciliation pipeline idempotent under concurrent
// webhook and poll deliveries, so it must exist before traffic is served.
func setupCollections(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := client.Database(DatabaseName())

	collections := []string{"users", "leads", "transactions", "commissions", "products", "product_purchases", "tiers", "settings", "webhook_events", "notifications"}
	for _, collName := range collections {
		db.CreateCollection(ctx, collName)
	}

	usersColl := db.Collection("users")
	emailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := usersColl.Indexes().CreateOne(ctx, emailIndex); err != nil {
		log.Printf("Error creating users email index: %v", err)
	}
	affiliateIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "affiliateCode", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}
	if _, err := usersColl.Indexes().CreateOne(ctx, affiliateIndex); err != nil {
		log.Printf("Error creating users affiliateCode index: %v", err)
	}

	commissionsColl := db.Collection("commissions")
	commissionIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "agentId", Value: 1},
			{Key: "transactionId", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := commissionsColl.Indexes().CreateOne(ctx, commissionIndex); err != nil {
		log.Printf("Error creating commissions unique index: %v", err)
	}

	txColl := db.Collection("transactions")
	orderIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := txColl.Indexes().CreateOne(ctx, orderIndex); err != nil {
		log.Printf("Error creating transactions orderId index: %v", err)
	}
	pendingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "type", Value: 1},
			{Key: "status", Value: 1},
		},
	}
	if _, err := txColl.Indexes().CreateOne(ctx, pendingIndex); err != nil {
		log.Printf("Error creating transactions (userId, type, status) index: %v", err)
	}
	gatewayRefIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "gatewayRef", Value: 1}},
	}
	if _, err := txColl.Indexes().CreateOne(ctx, gatewayRefIndex); err != nil {
		log.Printf("Error creating transactions gatewayRef index: %v", err)
	}

	leadsColl := db.Collection("leads")
	leadEmailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	}
	if _, err := leadsColl.Indexes().CreateOne(ctx, leadEmailIndex); err != nil {
		log.Printf("Error creating leads email index: %v", err)
	}

	purchasesColl := db.Collection("product_purchases")
	purchaseTxIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "transactionId", Value: 1}},
	}
	if _, err := purchasesColl.Indexes().CreateOne(ctx, purchaseTxIndex); err != nil {
		log.Printf("Error creating product_purchases transactionId index: %v", err)
	}

	log.Println("Database collections and indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
