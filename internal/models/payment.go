package models

import "time"

// PaymentStatus tracks the lifecycle of a checkout.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentExpired   PaymentStatus = "expired"
)

// PaymentTransaction records one hosted checkout attempt.
type PaymentTransaction struct {
	ID          string        `db:"id" json:"id"`
	UserID      string        `db:"user_id" json:"user_id"`
	PriceID     string        `db:"price_id" json:"price_id"`
	Amount      int64         `db:"amount" json:"amount"`
	Currency    string        `db:"currency" json:"currency"`
	Status      PaymentStatus `db:"status" json:"status"`
	OrderID     string        `db:"order_id" json:"order_id"`
	RedirectURL string        `db:"redirect_url" json:"redirect_url"`
	Metadata    []byte        `db:"metadata" json:"-"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// CheckoutRequest starts a hosted checkout for a price.
type CheckoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

// CheckoutResponse carries the redirect target returned by the gateway.
type CheckoutResponse struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	RedirectURL   string `json:"redirect_url"`
	Token         string `json:"token"`
}

// PaymentNotification is the gateway's asynchronous status callback.
type PaymentNotification struct {
	OrderID           string `json:"order_id" validate:"required"`
	StatusCode        string `json:"status_code" validate:"required"`
	GrossAmount       string `json:"gross_amount" validate:"required"`
	SignatureKey      string `json:"signature_key" validate:"required"`
	TransactionStatus string `json:"transaction_status" validate:"required"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
}
