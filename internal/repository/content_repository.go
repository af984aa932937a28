package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

// ContentRepository persists site settings, newsletter subscriptions and visitor messages.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a content repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// GetSettings returns the settings row, or zero values when none was saved yet.
func (r *ContentRepository) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	const query = `SELECT floating_bubble_active, floating_bubble_text, mardi_chill_text, mardi_chill_subtitle, mardi_chill_schedule, mardi_chill_color, mardi_chill_icon, updated_at FROM site_settings WHERE id = 1`
	var settings models.SiteSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.SiteSettings{MardiChillColor: "blue"}, nil
		}
		return nil, fmt.Errorf("get site settings: %w", err)
	}
	return &settings, nil
}

// UpsertSettings replaces the settings row.
func (r *ContentRepository) UpsertSettings(ctx context.Context, settings *models.SiteSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO site_settings (id, floating_bubble_active, floating_bubble_text, mardi_chill_text, mardi_chill_subtitle, mardi_chill_schedule, mardi_chill_color, mardi_chill_icon, updated_at)
VALUES (1, :floating_bubble_active, :floating_bubble_text, :mardi_chill_text, :mardi_chill_subtitle, :mardi_chill_schedule, :mardi_chill_color, :mardi_chill_icon, :updated_at)
ON CONFLICT (id) DO UPDATE SET floating_bubble_active = EXCLUDED.floating_bubble_active, floating_bubble_text = EXCLUDED.floating_bubble_text, mardi_chill_text = EXCLUDED.mardi_chill_text, mardi_chill_subtitle = EXCLUDED.mardi_chill_subtitle, mardi_chill_schedule = EXCLUDED.mardi_chill_schedule, mardi_chill_color = EXCLUDED.mardi_chill_color, mardi_chill_icon = EXCLUDED.mardi_chill_icon, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert site settings: %w", err)
	}
	return nil
}

// Subscribe adds an email to the newsletter. It returns false when the email was already subscribed.
func (r *ContentRepository) Subscribe(ctx context.Context, email string) (bool, error) {
	const query = `INSERT INTO newsletter_subscriptions (id, email, created_at) VALUES ($1, $2, $3) ON CONFLICT ON CONSTRAINT newsletter_subscriptions_email_key DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, uuid.NewString(), email, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("subscribe newsletter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("subscribe newsletter rows: %w", err)
	}
	return affected > 0, nil
}

// ListSubscriptions returns every subscription, newest first.
func (r *ContentRepository) ListSubscriptions(ctx context.Context) ([]models.NewsletterSubscription, error) {
	var subs []models.NewsletterSubscription
	if err := r.db.SelectContext(ctx, &subs, `SELECT id, email, created_at FROM newsletter_subscriptions ORDER BY created_at DESC`); err != nil {
		return nil, fmt.Errorf("list newsletter subscriptions: %w", err)
	}
	return subs, nil
}

// CreateMessage stores a visitor message.
func (r *ContentRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, kind, name, email, phone, content, event_date, guests, created_at) VALUES (:id, :kind, :name, :email, :phone, :content, :event_date, :guests, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListMessages returns a page of messages, newest first.
func (r *ContentRepository) ListMessages(ctx context.Context, page, pageSize int) ([]models.Message, int, error) {
	page, pageSize = models.NormalizePage(page, pageSize)
	query := fmt.Sprintf(`SELECT id, kind, name, email, phone, content, event_date, guests, created_at FROM messages ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, (page-1)*pageSize)
	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query); err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages`); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	return msgs, total, nil
}
