package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
)

type pricingRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.PriceOption, error)
	FindByID(ctx context.Context, id string) (*models.PriceOption, error)
	Create(ctx context.Context, price *models.PriceOption) error
	Update(ctx context.Context, price *models.PriceOption) error
	Delete(ctx context.Context, id string) error
}

// PricingService manages the price list.
type PricingService struct {
	repo      pricingRepository
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	currency  string
}

// NewPricingService builds the pricing service. currency is applied when a request omits one.
func NewPricingService(repo pricingRepository, audit auditWriter, validate *validator.Validate, logger *zap.Logger, currency string) *PricingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "EUR"
	}
	return &PricingService{repo: repo, audit: audit, validator: ensureValidator(validate), logger: logger, currency: currency}
}

// List returns prices; the public listing only sees active ones.
func (s *PricingService) List(ctx context.Context, activeOnly bool) ([]models.PriceOption, error) {
	prices, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prices")
	}
	if prices == nil {
		prices = []models.PriceOption{}
	}
	return prices, nil
}

// Create adds a price.
func (s *PricingService) Create(ctx context.Context, actorID string, req models.UpsertPriceRequest) (*models.PriceOption, error) {
	price, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, price); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create price")
	}
	s.recordAudit(ctx, actorID, price.ID, nil, price)
	return price, nil
}

// Update replaces a price.
func (s *PricingService) Update(ctx context.Context, actorID, id string, req models.UpsertPriceRequest) (*models.PriceOption, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	price, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	price.ID = existing.ID
	price.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, price); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update price")
	}
	s.recordAudit(ctx, actorID, price.ID, existing, price)
	return price, nil
}

// Delete removes a price.
func (s *PricingService) Delete(ctx context.Context, actorID, id string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "price is referenced by payments, deactivate it instead")
	}
	s.recordAudit(ctx, actorID, id, existing, nil)
	return nil
}

func (s *PricingService) fromRequest(req models.UpsertPriceRequest) (*models.PriceOption, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid price payload")
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.currency
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &models.PriceOption{
		Activity:    models.NormalizeActivity(req.Activity),
		Label:       strings.TrimSpace(req.Label),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Currency:    currency,
		Sessions:    req.Sessions,
		Active:      active,
		SortOrder:   req.SortOrder,
	}, nil
}

func (s *PricingService) find(ctx context.Context, id string) (*models.PriceOption, error) {
	price, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "price not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load price")
	}
	return price, nil
}

func (s *PricingService) recordAudit(ctx context.Context, actorID, id string, before, after *models.PriceOption) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: models.AuditActionPricingWrite, Resource: "pricing", ResourceID: &id}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record pricing audit log", zap.Error(err))
	}
}
