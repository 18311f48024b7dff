package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/gomail.v2"

	"github.com/frostextreme11/digitalsquad-sub001/models"
)

// SaveNotification saves an in-app notification to the database
func SaveNotification(db *mongo.Database, userID primitive.ObjectID, title, message, notifType string, data interface{}) error {
	collection := db.Collection("notifications")

	notification := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.InsertOne(ctx, notification)
	return err
}

// ListNotifications returns a user's notifications, newest first, capped at 50.
func ListNotifications(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(50)
	cursor, err := db.Collection("notifications").Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// SendEmail sends an email using gomail with SMTP settings from the environment
func SendEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpFrom := os.Getenv("SMTP_FROM")
	if smtpFrom == "" {
		smtpFrom = smtpUser
	}
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			smtpPort = port
		}
	}

	if smtpHost == "" || smtpUser == "" {
		return fmt.Errorf("SMTP not configured, cannot send email to %s", to)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpFrom)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}

// SendDeliveryEmail sends the buyer their product download link after a
// successful payment. Fire and forget: a failure here is logged by the caller
// and never blocks or reverts the payment itself.
func SendDeliveryEmail(buyerName, buyerEmail, productTitle, fileURL string) error {
	subject := fmt.Sprintf("Your purchase: %s", productTitle)
	body := fmt.Sprintf("Hi %s,\n\nThank you for your purchase. Your payment for %s has been received.\n\nDownload your product here:\n%s\n\nBest regards,\nDigitalsquad Team", buyerName, productTitle, fileURL)
	return SendEmail(buyerEmail, subject, body)
}

// NotifyCommissionEarned records an in-app notification for an agent who just
// earned a commission.
func NotifyCommissionEarned(db *mongo.Database, agentID primitive.ObjectID, amount int64, kind string) {
	title := "Commission earned"
	message := fmt.Sprintf("You earned a %s commission of %d", kind, amount)
	if err := SaveNotification(db, agentID, title, message, models.NotificationTypeCommission, map[string]interface{}{"amount": amount, "kind": kind}); err != nil {
		log.Printf("Failed to save commission notification for %s: %v", agentID.Hex(), err)
	}
}
