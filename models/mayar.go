package models

// Mayar webhook event types. Reminder events are acknowledged but never cause
// a status transition; acting on one could clobber an already-advanced state
// with stale information.
const (
	MayarEventPaymentReceived = "payment.received"
	MayarEventPaymentReminder = "payment.reminder"
)

// MayarCreateRequest is the body sent to the payment-link create API.
type MayarCreateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile,omitempty"`
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	OrderID     string `json:"merchantRef,omitempty"`
}

// MayarCreateResponse is the payment-link create response.
type MayarCreateResponse struct {
	StatusCode int        `json:"statusCode"`
	Messages   string     `json:"messages,omitempty"`
	Data       *MayarLink `json:"data,omitempty"`
}

type MayarLink struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

// MayarWebhookPayload is the webhook push body: an event name plus payment data.
type MayarWebhookPayload struct {
	Event string           `json:"event"`
	Data  MayarWebhookData `json:"data"`
}

type MayarWebhookData struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId,omitempty"`
	MerchantRef   string `json:"merchantRef,omitempty"`
	ProductID     string `json:"productId,omitempty"`
	Status        string `json:"status,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
}
