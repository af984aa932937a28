package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/repository"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleTemplateFilter) ([]models.ScheduleTemplate, int, error)
	Activities(ctx context.Context) ([]string, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleTemplate, error)
	Create(ctx context.Context, tpl *models.ScheduleTemplate) error
	SeedMany(ctx context.Context, templates []models.ScheduleTemplate) (int, error)
	Update(ctx context.Context, tpl *models.ScheduleTemplate) error
	Delete(ctx context.Context, id string) error
}

// ScheduleService manages the weekly schedule templates.
type ScheduleService struct {
	repo      scheduleRepository
	cache     *CacheService
	audit     auditWriter
	events    EventPublisher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, cache *CacheService, audit auditWriter, events EventPublisher, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, cache: cache, audit: audit, events: events, validator: ensureValidator(validate), logger: logger}
}

// List returns templates with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleTemplateFilter) ([]models.ScheduleTemplate, *models.Pagination, error) {
	filter.Activity = models.NormalizeActivity(filter.Activity)
	templates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	return templates, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Activities lists the activity keys that have at least one template.
func (s *ScheduleService) Activities(ctx context.Context) ([]string, error) {
	activities, err := s.repo.Activities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return activities, nil
}

// Create inserts a new template.
func (s *ScheduleService) Create(ctx context.Context, actorID string, req models.UpsertScheduleTemplateRequest) (*models.ScheduleTemplate, error) {
	tpl, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tpl); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a schedule already exists for this slot and location")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.changed(ctx, actorID, models.AuditActionScheduleCreate, realtime.EventInsert, nil, tpl)
	return tpl, nil
}

// Update replaces an existing template.
func (s *ScheduleService) Update(ctx context.Context, actorID, id string, req models.UpsertScheduleTemplateRequest) (*models.ScheduleTemplate, error) {
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	tpl.ID = existing.ID
	tpl.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, tpl); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a schedule already exists for this slot and location")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	if existing.Activity != tpl.Activity {
		s.invalidate(ctx, existing.Activity)
	}
	s.changed(ctx, actorID, models.AuditActionScheduleUpdate, realtime.EventUpdate, existing, tpl)
	return tpl, nil
}

// Delete removes a template.
func (s *ScheduleService) Delete(ctx context.Context, actorID, id string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.changed(ctx, actorID, models.AuditActionScheduleDelete, realtime.EventDelete, existing, existing)
	return nil
}

// SeedFromFile loads templates from a YAML document and inserts the missing ones.
func (s *ScheduleService) SeedFromFile(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read schedule seed: %w", err)
	}
	var seed models.ScheduleSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return 0, fmt.Errorf("parse schedule seed %s: %w", path, err)
	}

	templates := make([]models.ScheduleTemplate, 0, len(seed.Templates))
	for i, tpl := range seed.Templates {
		h, m, err := models.ParseClock(tpl.StartTime)
		if err != nil {
			return 0, fmt.Errorf("seed entry %d: %w", i, err)
		}
		tpl.Activity = models.NormalizeActivity(tpl.Activity)
		tpl.StartTime = fmt.Sprintf("%02d:%02d", h, m)
		if tpl.Activity == "" || tpl.Location == "" {
			return 0, fmt.Errorf("seed entry %d: activity and location are required", i)
		}
		templates = append(templates, tpl)
	}

	inserted, err := s.repo.SeedMany(ctx, templates)
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		if err := s.cache.Invalidate(ctx, "schedules:*"); err != nil {
			s.logger.Warn("failed to invalidate schedule cache after seed", zap.Error(err))
		}
	}
	s.logger.Info("schedule seed applied", zap.String("file", path), zap.Int("entries", len(templates)), zap.Int("inserted", inserted))
	return inserted, nil
}

func (s *ScheduleService) fromRequest(req models.UpsertScheduleTemplateRequest) (*models.ScheduleTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	h, m, _ := models.ParseClock(req.Time)
	capacity := 1
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	return &models.ScheduleTemplate{
		Activity:  models.NormalizeActivity(req.Activity),
		Weekday:   req.Weekday,
		StartTime: fmt.Sprintf("%02d:%02d", h, m),
		Location:  req.Location,
		Capacity:  capacity,
	}, nil
}

func (s *ScheduleService) find(ctx context.Context, id string) (*models.ScheduleTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return tpl, nil
}

func (s *ScheduleService) invalidate(ctx context.Context, activity string) {
	if err := s.cache.Delete(ctx, TemplateCacheKey(activity)); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.String("activity", activity), zap.Error(err))
	}
}

// changed invalidates the cached templates and records the write.
func (s *ScheduleService) changed(ctx context.Context, actorID, action string, kind realtime.EventType, before, after *models.ScheduleTemplate) {
	s.invalidate(ctx, after.Activity)

	if s.events != nil {
		s.events.Publish(ctx, realtime.Event{Table: realtime.TableSchedules, Type: kind, Activity: after.Activity, RecordID: after.ID})
	}
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "schedule", ResourceID: &after.ID}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if kind != realtime.EventDelete {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record schedule audit log", zap.Error(err))
	}
}
