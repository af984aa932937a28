package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
)

type templateReader interface {
	ListByActivity(ctx context.Context, activity string) ([]models.ScheduleTemplate, error)
}

type bookedReader interface {
	BookedBetween(ctx context.Context, activity, fromDate, toDate string) ([]models.SlotKey, error)
}

// AvailabilityConfig bounds the expansion horizon.
type AvailabilityConfig struct {
	DefaultDays int
	MaxDays     int
	TemplateTTL time.Duration
}

// AvailabilityService computes the per day slot availability of an activity.
// Templates may come from cache; reservations are always read fresh.
type AvailabilityService struct {
	templates templateReader
	booked    bookedReader
	expander  *Expander
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	config    AvailabilityConfig
	now       func() time.Time
}

// NewAvailabilityService wires the availability computation.
func NewAvailabilityService(templates templateReader, booked bookedReader, expander *Expander, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg AvailabilityConfig) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if expander == nil {
		expander = NewExpander(time.UTC)
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 7
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = 120
	}
	return &AvailabilityService{
		templates: templates,
		booked:    booked,
		expander:  expander,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Location returns the timezone used for dates.
func (s *AvailabilityService) Location() *time.Location {
	return s.expander.Location()
}

// Today returns the current calendar day in the service timezone.
func (s *AvailabilityService) Today() time.Time {
	local := s.now().In(s.expander.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}

// Compute expands the next days of activity starting today. days <= 0 uses the default horizon.
func (s *AvailabilityService) Compute(ctx context.Context, activity string, days int) (*models.Availability, error) {
	return s.ComputeFrom(ctx, activity, s.Today(), days)
}

// ComputeFrom expands days of activity starting at from.
func (s *AvailabilityService) ComputeFrom(ctx context.Context, activity string, from time.Time, days int) (*models.Availability, error) {
	activity = models.NormalizeActivity(activity)
	if activity == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity is required")
	}
	if days == 0 {
		days = s.config.DefaultDays
	}
	if days < 1 || days > s.config.MaxDays {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("days must be between 1 and %d", s.config.MaxDays))
	}

	started := time.Now()
	templates, err := s.Templates(ctx, activity)
	if err != nil {
		return nil, err
	}

	first := from.In(s.expander.Location())
	last := first.AddDate(0, 0, days-1)
	booked, err := s.booked.BookedBetween(ctx, activity, first.Format(models.DateLayout), last.Format(models.DateLayout))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservations")
	}

	groups, err := s.expander.Expand(activity, from, days, templates, booked)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand schedule")
	}
	s.metrics.ObserveAvailability(activity, time.Since(started))

	return &models.Availability{
		Activity:    activity,
		From:        groups[0].Date,
		Days:        groups,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Templates returns the schedule templates of an activity, using the cache when enabled.
func (s *AvailabilityService) Templates(ctx context.Context, activity string) ([]models.ScheduleTemplate, error) {
	activity = models.NormalizeActivity(activity)
	key := TemplateCacheKey(activity)

	var cached []models.ScheduleTemplate
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	templates, err := s.templates.ListByActivity(ctx, activity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	if err := s.cache.Set(ctx, key, templates, s.config.TemplateTTL); err != nil {
		s.logger.Debug("schedule cache not populated", zap.String("activity", activity), zap.Error(err))
	}
	return templates, nil
}

// TemplateCacheKey is the cache key of an activity's templates.
func TemplateCacheKey(activity string) string {
	return "schedules:" + models.NormalizeActivity(activity)
}
