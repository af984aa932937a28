package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

const paymentColumns = `id, user_id, price_id, amount, currency, status, order_id, redirect_url, metadata, created_at, updated_at`

// PaymentRepository persists checkout transactions.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create stores a pending transaction.
func (r *PaymentRepository) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	const query = `INSERT INTO payment_transactions (id, user_id, price_id, amount, currency, status, order_id, redirect_url, metadata, created_at, updated_at) VALUES (:id, :user_id, :price_id, :amount, :currency, :status, :order_id, :redirect_url, :metadata, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tx); err != nil {
		return wrapInsert("create payment transaction", err)
	}
	return nil
}

// SetRedirect records the gateway redirect target of a transaction.
func (r *PaymentRepository) SetRedirect(ctx context.Context, id, redirectURL string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE payment_transactions SET redirect_url = $2, updated_at = $3 WHERE id = $1`, id, redirectURL, time.Now().UTC()); err != nil {
		return fmt.Errorf("set payment redirect: %w", err)
	}
	return nil
}

// FindByOrderID loads a transaction by gateway order id.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	if err := r.db.GetContext(ctx, &tx, `SELECT `+paymentColumns+` FROM payment_transactions WHERE order_id = $1`, orderID); err != nil {
		return nil, err
	}
	return &tx, nil
}

// UpdateStatus moves a transaction to a new status and stores the raw notification.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, metadata []byte) error {
	const query = `UPDATE payment_transactions SET status = $2, metadata = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, metadata, time.Now().UTC()); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

// ListByUser returns a user's transactions, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	if err := r.db.SelectContext(ctx, &txs, `SELECT `+paymentColumns+` FROM payment_transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID); err != nil {
		return nil, fmt.Errorf("list payments by user: %w", err)
	}
	return txs, nil
}

// ExpirePending marks pending transactions created before cutoff as expired.
func (r *PaymentRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE payment_transactions SET status = $1, updated_at = NOW() WHERE status = $2 AND created_at < $3`
	result, err := r.db.ExecContext(ctx, query, models.PaymentExpired, models.PaymentPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending payments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire pending payments rows: %w", err)
	}
	return affected, nil
}
