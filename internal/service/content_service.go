package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/export"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
)

const settingsCacheKey = "settings:site"

type contentRepository interface {
	GetSettings(ctx context.Context) (*models.SiteSettings, error)
	UpsertSettings(ctx context.Context, settings *models.SiteSettings) error
	Subscribe(ctx context.Context, email string) (bool, error)
	ListSubscriptions(ctx context.Context) ([]models.NewsletterSubscription, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, page, pageSize int) ([]models.Message, int, error)
}

// ContentService covers site settings, the newsletter and visitor messages.
type ContentService struct {
	repo      contentRepository
	cache     *CacheService
	audit     auditWriter
	events    EventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContentService builds the content service.
func NewContentService(repo contentRepository, cache *CacheService, audit auditWriter, events EventPublisher, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{repo: repo, cache: cache, audit: audit, events: events, validator: ensureValidator(validate), logger: logger}
}

// Settings returns the homepage settings.
func (s *ContentService) Settings(ctx context.Context) (*models.SiteSettings, error) {
	var cached models.SiteSettings
	if hit, _ := s.cache.Get(ctx, settingsCacheKey, &cached); hit {
		return &cached, nil
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	_ = s.cache.Set(ctx, settingsCacheKey, settings, 0)
	return settings, nil
}

// UpdateSettings replaces the homepage settings.
func (s *ContentService) UpdateSettings(ctx context.Context, actorID string, settings models.SiteSettings) (*models.SiteSettings, error) {
	if err := s.validator.Struct(settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if settings.MardiChillColor == "" {
		settings.MardiChillColor = "blue"
	}
	if err := s.repo.UpsertSettings(ctx, &settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	_ = s.cache.Delete(ctx, settingsCacheKey)

	if s.events != nil {
		s.events.Publish(ctx, realtime.Event{Table: realtime.TableSettings, Type: realtime.EventUpdate, RecordID: "1"})
	}
	if s.audit != nil {
		payload, _ := json.Marshal(settings)
		id := "1"
		entry := &models.AuditLog{Action: models.AuditActionSettingsUpdate, Resource: "site_settings", ResourceID: &id, NewValues: payload}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record settings audit log", zap.Error(err))
		}
	}
	return &settings, nil
}

// Subscribe adds an email to the newsletter; subscribing twice is not an error.
func (s *ContentService) Subscribe(ctx context.Context, req models.SubscribeRequest) (bool, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "adresse e-mail invalide")
	}
	created, err := s.repo.Subscribe(ctx, req.Email)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to subscribe")
	}
	return created, nil
}

// Subscriptions lists newsletter subscribers.
func (s *ContentService) Subscriptions(ctx context.Context) ([]models.NewsletterSubscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscriptions")
	}
	if subs == nil {
		subs = []models.NewsletterSubscription{}
	}
	return subs, nil
}

// ExportSubscriptions renders subscribers as CSV.
func (s *ContentService) ExportSubscriptions(ctx context.Context) ([]byte, error) {
	subs, err := s.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: []string{"email", "subscribed_at"}}
	for _, sub := range subs {
		data.Rows = append(data.Rows, map[string]string{
			"email":         sub.Email,
			"subscribed_at": sub.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return export.NewCSVExporter(';').Render(data)
}

// Contact stores a contact form submission.
func (s *ContentService) Contact(ctx context.Context, req models.ContactRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}
	msg := &models.Message{
		Kind:    models.MessageContact,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Content: strings.TrimSpace(req.Message),
	}
	return s.storeMessage(ctx, msg)
}

// RequestEventQuote stores a private event quote request.
func (s *ContentService) RequestEventQuote(ctx context.Context, req models.EventQuoteRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quote payload")
	}
	msg := &models.Message{
		Kind:      models.MessageEventQuote,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Content:   strings.TrimSpace(req.Message),
		EventDate: req.Date,
		Guests:    req.Guests,
	}
	return s.storeMessage(ctx, msg)
}

// Messages lists visitor messages for administrators.
func (s *ContentService) Messages(ctx context.Context, page, pageSize int) ([]models.Message, *models.Pagination, error) {
	msgs, total, err := s.repo.ListMessages(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	page, pageSize = models.NormalizePage(page, pageSize)
	return msgs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *ContentService) storeMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store message")
	}
	s.logger.Info("visitor message received", zap.String("kind", string(msg.Kind)), zap.String("message_id", msg.ID))
	return msg, nil
}
