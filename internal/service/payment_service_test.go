package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/payment"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
)

const testServerKey = "SB-server-key"

type mockPaymentRepo struct {
	byOrder  map[string]*models.PaymentTransaction
	statuses []models.PaymentStatus
	redirect string
	cutoff   time.Time
	expired  int64
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{byOrder: map[string]*models.PaymentTransaction{}}
}

func (m *mockPaymentRepo) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	tx.ID = "tx-1"
	m.byOrder[tx.OrderID] = tx
	return nil
}

func (m *mockPaymentRepo) SetRedirect(ctx context.Context, id, redirectURL string) error {
	m.redirect = redirectURL
	return nil
}

func (m *mockPaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	tx, ok := m.byOrder[orderID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return tx, nil
}

func (m *mockPaymentRepo) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, metadata []byte) error {
	m.statuses = append(m.statuses, status)
	for _, tx := range m.byOrder {
		if tx.ID == id {
			tx.Status = status
		}
	}
	return nil
}

func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID string) ([]models.PaymentTransaction, error) {
	return nil, nil
}

func (m *mockPaymentRepo) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	m.cutoff = cutoff
	return m.expired, nil
}

type mockPriceFinder struct {
	prices map[string]*models.PriceOption
}

func (m *mockPriceFinder) FindByID(ctx context.Context, id string) (*models.PriceOption, error) {
	p, ok := m.prices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

type mockUserFinder struct{}

func (mockUserFinder) FindByID(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Email: "claire@example.com", FirstName: "Claire", LastName: "Martin"}, nil
}

type mockGateway struct {
	inputs []payment.CheckoutInput
	err    error
}

func (m *mockGateway) CreateCheckout(ctx context.Context, in payment.CheckoutInput) (*payment.CheckoutSession, error) {
	m.inputs = append(m.inputs, in)
	if m.err != nil {
		return nil, m.err
	}
	return &payment.CheckoutSession{Token: "snap-token", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token"}, nil
}

func (m *mockGateway) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	return payment.VerifySignature(testServerKey, orderID, statusCode, grossAmount, signature)
}

type paymentFixture struct {
	svc     *PaymentService
	repo    *mockPaymentRepo
	gateway *mockGateway
	audit   *mockAuditWriter
	events  *mockPublisher
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		repo:    newMockPaymentRepo(),
		gateway: &mockGateway{},
		audit:   &mockAuditWriter{},
		events:  &mockPublisher{},
	}
	prices := &mockPriceFinder{prices: map[string]*models.PriceOption{
		"p-10": {ID: "p-10", Activity: "AQUAGYM", Label: "Carte 10 séances", Amount: 150000, Currency: "EUR", Active: true},
		"p-old": {ID: "p-old", Label: "Ancien tarif", Amount: 1000, Active: false},
	}}
	f.svc = NewPaymentService(f.repo, prices, mockUserFinder{}, f.gateway, f.audit, f.events, nil, nil, nil, PaymentConfig{PendingExpiry: time.Hour})
	return f
}

func notificationFor(orderID, status, amount string) models.PaymentNotification {
	return models.PaymentNotification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       amount,
		SignatureKey:      payment.Signature(testServerKey, orderID, "200", amount),
		TransactionStatus: status,
	}
}

func TestCheckoutCreatesPendingTransaction(t *testing.T) {
	f := newPaymentFixture()

	resp, err := f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{PriceID: "p-10"})
	require.NoError(t, err)

	assert.Equal(t, "tx-1", resp.TransactionID)
	assert.Regexp(t, `^AQC-[0-9A-F]{16}$`, resp.OrderID)
	assert.Equal(t, "snap-token", resp.Token)
	assert.Equal(t, resp.RedirectURL, f.repo.redirect)

	tx := f.repo.byOrder[resp.OrderID]
	require.NotNil(t, tx)
	assert.Equal(t, models.PaymentPending, tx.Status)
	assert.Equal(t, int64(150000), tx.Amount)

	require.Len(t, f.gateway.inputs, 1)
	assert.Equal(t, "claire@example.com", f.gateway.inputs[0].Customer.Email)
	assert.Equal(t, time.Hour, f.gateway.inputs[0].Expiry)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionPaymentCheckout, f.audit.logs[0].Action)
}

func TestCheckoutRejectsUnknownOrInactivePrice(t *testing.T) {
	f := newPaymentFixture()

	_, err := f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{PriceID: "missing"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{PriceID: "p-old"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, f.gateway.inputs)
}

func TestCheckoutGatewayFailureMarksTransactionFailed(t *testing.T) {
	f := newPaymentFixture()
	f.gateway.err = payment.ErrGateway

	_, err := f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{PriceID: "p-10"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrPaymentGateway))
	assert.Equal(t, []models.PaymentStatus{models.PaymentFailed}, f.repo.statuses)
}

func TestHandleNotificationCompletesPayment(t *testing.T) {
	f := newPaymentFixture()
	resp, err := f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{PriceID: "p-10"})
	require.NoError(t, err)

	n := notificationFor(resp.OrderID, "settlement", "150000.00")
	require.NoError(t, f.svc.HandleNotification(context.Background(), n, []byte(`{}`)))
	assert.Equal(t, models.PaymentCompleted, f.repo.byOrder[resp.OrderID].Status)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, realtime.TablePayments, f.events.events[0].Table)
	assert.Equal(t, "u1", f.events.events[0].UserID)

	// replay is a no-op
	require.NoError(t, f.svc.HandleNotification(context.Background(), n, []byte(`{}`)))
	assert.Len(t, f.repo.statuses, 1)
}

func TestHandleNotificationRejectsBadSignatureAndAmount(t *testing.T) {
	f := newPaymentFixture()
	resp, err := f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{PriceID: "p-10"})
	require.NoError(t, err)

	forged := notificationFor(resp.OrderID, "settlement", "150000.00")
	forged.SignatureKey = "deadbeef"
	err = f.svc.HandleNotification(context.Background(), forged, nil)
	assert.True(t, errors.Is(err, appErrors.ErrSignature))

	wrongAmount := notificationFor(resp.OrderID, "settlement", "1.00")
	err = f.svc.HandleNotification(context.Background(), wrongAmount, nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	unknown := notificationFor("AQC-UNKNOWN", "settlement", "150000.00")
	err = f.svc.HandleNotification(context.Background(), unknown, nil)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	assert.Empty(t, f.repo.statuses)
}

func TestHandleNotificationIgnoresPendingStatus(t *testing.T) {
	f := newPaymentFixture()
	resp, err := f.svc.Checkout(context.Background(), "u1", models.CheckoutRequest{PriceID: "p-10"})
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleNotification(context.Background(), notificationFor(resp.OrderID, "pending", "150000.00"), nil))
	assert.Empty(t, f.repo.statuses)

	require.NoError(t, f.svc.HandleNotification(context.Background(), notificationFor(resp.OrderID, "expire", "150000.00"), nil))
	assert.Equal(t, []models.PaymentStatus{models.PaymentFailed}, f.repo.statuses)
}

func TestExpireStaleUsesCutoff(t *testing.T) {
	f := newPaymentFixture()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.repo.expired = 2

	require.NoError(t, f.svc.ExpireStale(context.Background()))
	assert.Equal(t, now.Add(-time.Hour), f.repo.cutoff)
}
