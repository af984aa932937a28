package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

const pricingColumns = `id, activity, label, description, amount, currency, sessions, active, sort_order, created_at, updated_at`

// PricingRepository persists price options.
type PricingRepository struct {
	db *sqlx.DB
}

// NewPricingRepository creates a pricing repository.
func NewPricingRepository(db *sqlx.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// List returns price options, only active ones when activeOnly is set.
func (r *PricingRepository) List(ctx context.Context, activeOnly bool) ([]models.PriceOption, error) {
	query := `SELECT ` + pricingColumns + ` FROM pricing`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY activity ASC, sort_order ASC, amount ASC`
	var prices []models.PriceOption
	if err := r.db.SelectContext(ctx, &prices, query); err != nil {
		return nil, fmt.Errorf("list pricing: %w", err)
	}
	return prices, nil
}

// FindByID loads a price option.
func (r *PricingRepository) FindByID(ctx context.Context, id string) (*models.PriceOption, error) {
	var price models.PriceOption
	if err := r.db.GetContext(ctx, &price, `SELECT `+pricingColumns+` FROM pricing WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &price, nil
}

// Create stores a price option.
func (r *PricingRepository) Create(ctx context.Context, price *models.PriceOption) error {
	if price.ID == "" {
		price.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	price.CreatedAt, price.UpdatedAt = now, now
	const query = `INSERT INTO pricing (id, activity, label, description, amount, currency, sessions, active, sort_order, created_at, updated_at) VALUES (:id, :activity, :label, :description, :amount, :currency, :sessions, :active, :sort_order, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, price); err != nil {
		return fmt.Errorf("create pricing: %w", err)
	}
	return nil
}

// Update modifies a price option.
func (r *PricingRepository) Update(ctx context.Context, price *models.PriceOption) error {
	price.UpdatedAt = time.Now().UTC()
	const query = `UPDATE pricing SET activity = :activity, label = :label, description = :description, amount = :amount, currency = :currency, sessions = :sessions, active = :active, sort_order = :sort_order, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, price); err != nil {
		return fmt.Errorf("update pricing: %w", err)
	}
	return nil
}

// Delete removes a price option.
func (r *PricingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pricing WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete pricing: %w", err)
	}
	return nil
}
