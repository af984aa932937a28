package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/payment"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
)

type paymentRepository interface {
	Create(ctx context.Context, tx *models.PaymentTransaction) error
	SetRedirect(ctx context.Context, id, redirectURL string) error
	FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, metadata []byte) error
	ListByUser(ctx context.Context, userID string) ([]models.PaymentTransaction, error)
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type priceFinder interface {
	FindByID(ctx context.Context, id string) (*models.PriceOption, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// PaymentConfig tunes checkout behaviour.
type PaymentConfig struct {
	PendingExpiry time.Duration
}

// PaymentService runs hosted checkouts and applies gateway notifications.
type PaymentService struct {
	repo      paymentRepository
	prices    priceFinder
	users     userFinder
	gateway   payment.Gateway
	audit     auditWriter
	events    EventPublisher
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    PaymentConfig
	now       func() time.Time
}

// NewPaymentService wires the payment service.
func NewPaymentService(repo paymentRepository, prices priceFinder, users userFinder, gateway payment.Gateway, audit auditWriter, events EventPublisher, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg PaymentConfig) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PendingExpiry <= 0 {
		cfg.PendingExpiry = 24 * time.Hour
	}
	return &PaymentService{
		repo:      repo,
		prices:    prices,
		users:     users,
		gateway:   gateway,
		audit:     audit,
		events:    events,
		validator: ensureValidator(validate),
		metrics:   metrics,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Checkout creates a pending transaction for a price and returns the gateway redirect.
func (s *PaymentService) Checkout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "price_id is required")
	}
	price, err := s.prices.FindByID(ctx, req.PriceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "price not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load price")
	}
	if !price.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "price not found")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	tx := &models.PaymentTransaction{
		UserID:   userID,
		PriceID:  price.ID,
		Amount:   price.Amount,
		Currency: price.Currency,
		Status:   models.PaymentPending,
		OrderID:  "AQC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16]),
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transaction")
	}

	session, err := s.gateway.CreateCheckout(ctx, payment.CheckoutInput{
		OrderID:  tx.OrderID,
		Amount:   price.Amount,
		ItemID:   price.ID,
		ItemName: price.Label,
		Category: price.Activity,
		Customer: payment.Customer{FirstName: user.FirstName, LastName: user.LastName, Email: user.Email, Phone: user.Phone},
		Expiry:   s.config.PendingExpiry,
	})
	if err != nil {
		if updErr := s.repo.UpdateStatus(ctx, tx.ID, models.PaymentFailed, nil); updErr != nil {
			s.logger.Warn("failed to mark checkout as failed", zap.String("order_id", tx.OrderID), zap.Error(updErr))
		}
		s.metrics.RecordPaymentStatus(string(models.PaymentFailed))
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentGateway.Code, appErrors.ErrPaymentGateway.Status, "le paiement n'a pas pu être initié")
	}
	if err := s.repo.SetRedirect(ctx, tx.ID, session.RedirectURL); err != nil {
		s.logger.Warn("failed to store checkout redirect", zap.String("order_id", tx.OrderID), zap.Error(err))
	}

	s.recordAudit(ctx, userID, models.AuditActionPaymentCheckout, tx.ID, map[string]interface{}{"order_id": tx.OrderID, "price_id": price.ID, "amount": price.Amount})
	s.metrics.RecordPaymentStatus(string(models.PaymentPending))
	return &models.CheckoutResponse{TransactionID: tx.ID, OrderID: tx.OrderID, RedirectURL: session.RedirectURL, Token: session.Token}, nil
}

// HandleNotification verifies and applies a gateway status callback. Replays are idempotent.
func (s *PaymentService) HandleNotification(ctx context.Context, n models.PaymentNotification, raw []byte) error {
	if err := s.validator.Struct(n); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	if !s.gateway.VerifySignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		return appErrors.Clone(appErrors.ErrSignature, "")
	}

	tx, err := s.repo.FindByOrderID(ctx, n.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "transaction not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	if n.GrossAmount != fmt.Sprintf("%d.00", tx.Amount) {
		s.logger.Warn("notification amount mismatch", zap.String("order_id", n.OrderID), zap.String("gross_amount", n.GrossAmount), zap.Int64("expected", tx.Amount))
		return appErrors.Clone(appErrors.ErrValidation, "amount mismatch")
	}

	completed, final := payment.Outcome(n.TransactionStatus, n.FraudStatus)
	if !final || tx.Status == models.PaymentCompleted {
		return nil
	}
	status := models.PaymentFailed
	if completed {
		status = models.PaymentCompleted
	}
	if status == tx.Status {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, tx.ID, status, raw); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transaction")
	}

	s.metrics.RecordPaymentStatus(string(status))
	s.recordAudit(ctx, tx.UserID, models.AuditActionPaymentStatus, tx.ID, map[string]interface{}{"status": status, "transaction_status": n.TransactionStatus})
	if s.events != nil {
		s.events.Publish(ctx, realtime.Event{Table: realtime.TablePayments, Type: realtime.EventUpdate, UserID: tx.UserID, RecordID: tx.ID})
	}
	s.logger.Info("payment status updated", zap.String("order_id", tx.OrderID), zap.String("status", string(status)))
	return nil
}

// ListForUser returns the caller's transactions.
func (s *PaymentService) ListForUser(ctx context.Context, userID string) ([]models.PaymentTransaction, error) {
	txs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if txs == nil {
		txs = []models.PaymentTransaction{}
	}
	return txs, nil
}

// ExpireStale marks pending transactions older than the configured expiry as expired.
func (s *PaymentService) ExpireStale(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.config.PendingExpiry)
	n, err := s.repo.ExpirePending(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("expired pending payments", zap.Int64("count", n))
		s.metrics.AddPaymentStatus(string(models.PaymentExpired), n)
	}
	return nil
}

func (s *PaymentService) recordAudit(ctx context.Context, userID, action, txID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(values)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "payment",
		ResourceID: &txID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record payment audit log", zap.Error(err))
	}
}
