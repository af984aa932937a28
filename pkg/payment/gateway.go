package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrGateway wraps failures reported by the payment provider.
var ErrGateway = errors.New("payment gateway error")

// Customer identifies the payer sent to the hosted checkout.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// CheckoutInput describes one hosted checkout.
type CheckoutInput struct {
	OrderID  string
	Amount   int64
	ItemID   string
	ItemName string
	Category string
	Customer Customer
	Expiry   time.Duration
}

// CheckoutSession is the gateway response the customer is redirected with.
type CheckoutSession struct {
	Token       string
	RedirectURL string
}

// Gateway starts hosted checkouts and verifies their notifications.
type Gateway interface {
	CreateCheckout(ctx context.Context, in CheckoutInput) (*CheckoutSession, error)
	VerifySignature(orderID, statusCode, grossAmount, signature string) bool
}

// MidtransGateway implements Gateway with Midtrans Snap.
type MidtransGateway struct {
	client    snap.Client
	serverKey string
}

// NewMidtransGateway configures a Snap client for sandbox or production.
func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	g := &MidtransGateway{serverKey: serverKey}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g.client.New(serverKey, env)
	return g
}

// CreateCheckout requests a Snap token. Card data never transits through this service.
func (g *MidtransGateway) CreateCheckout(_ context.Context, in CheckoutInput) (*CheckoutSession, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrGateway)
	}
	if in.OrderID == "" {
		return nil, fmt.Errorf("%w: order id required", ErrGateway)
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  in.OrderID,
			GrossAmt: in.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: in.Customer.FirstName,
			LName: in.Customer.LastName,
			Email: in.Customer.Email,
			Phone: in.Customer.Phone,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
		Items: &[]midtrans.ItemDetails{{
			ID:       in.ItemID,
			Price:    in.Amount,
			Qty:      1,
			Name:     truncate(in.ItemName, 50),
			Category: in.Category,
		}},
	}
	if in.Expiry > 0 {
		req.Expiry = &snap.ExpiryDetails{Unit: "minute", Duration: int64(in.Expiry / time.Minute)}
	}

	resp, gwErr := g.client.CreateTransaction(req)
	if gwErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrGateway, gwErr.Message)
	}
	return &CheckoutSession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// VerifySignature checks a notification signature: SHA512(order_id + status_code + gross_amount + server_key).
func (g *MidtransGateway) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	return VerifySignature(g.serverKey, orderID, statusCode, grossAmount, signature)
}

// Signature computes the expected notification signature.
func Signature(serverKey, orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares signature with the expected value in constant time.
func VerifySignature(serverKey, orderID, statusCode, grossAmount, signature string) bool {
	if serverKey == "" || signature == "" {
		return false
	}
	expected := Signature(serverKey, orderID, statusCode, grossAmount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Outcome maps a provider transaction status to a terminal result.
// ok is false for statuses that leave the payment pending.
func Outcome(transactionStatus, fraudStatus string) (completed bool, ok bool) {
	switch transactionStatus {
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return true, true
		}
		if fraudStatus == "deny" {
			return false, true
		}
		return false, false
	case "settlement":
		return true, true
	case "deny", "cancel", "expire", "failure":
		return false, true
	default:
		return false, false
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
