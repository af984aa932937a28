package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/repository"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
)

const slotTakenMessage = "Ce créneau est déjà réservé"

type templateSource interface {
	Templates(ctx context.Context, activity string) ([]models.ScheduleTemplate, error)
}

type reservationStore interface {
	ExistsAt(ctx context.Context, key models.SlotKey) (bool, error)
	Insert(ctx context.Context, res *models.Reservation) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EventPublisher distributes change events.
type EventPublisher interface {
	Publish(ctx context.Context, e realtime.Event)
}

// AdmissionConfig tunes reservation admission.
type AdmissionConfig struct {
	LoginPath string
	MaxDays   int
	Location  *time.Location
}

// AdmissionService decides whether a reservation is accepted. The unique constraint
// on (activity, slot_date, slot_time) is the authoritative conflict check.
type AdmissionService struct {
	templates templateSource
	store     reservationStore
	audit     auditWriter
	events    EventPublisher
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	config    AdmissionConfig
	now       func() time.Time
}

// NewAdmissionService constructs the admission service.
func NewAdmissionService(templates templateSource, store reservationStore, audit auditWriter, events EventPublisher, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg AdmissionConfig) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &AdmissionService{
		templates: templates,
		store:     store,
		audit:     audit,
		events:    events,
		validator: ensureValidator(validate),
		metrics:   metrics,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

// Admit attempts to book the requested slot for the caller.
func (s *AdmissionService) Admit(ctx context.Context, req models.AdmissionRequest) (*models.Reservation, error) {
	req.Activity = models.NormalizeActivity(req.Activity)

	if req.UserID == "" {
		s.metrics.RecordAdmission(req.Activity, AdmissionUnauthed)
		return nil, AuthRequired(s.config.LoginPath, req.OriginPath)
	}
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordAdmission(req.Activity, AdmissionRejected)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "activité, date et heure sont requises")
	}

	slotAt, tpl, err := s.resolveSlot(ctx, req)
	if err != nil {
		s.metrics.RecordAdmission(req.Activity, AdmissionRejected)
		return nil, err
	}

	key := models.SlotKey{Activity: req.Activity, Date: req.Date, Time: req.Time}
	exists, err := s.store.ExistsAt(ctx, key)
	if err != nil {
		s.metrics.RecordAdmission(req.Activity, AdmissionStoreError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot")
	}
	if exists {
		s.metrics.RecordAdmission(req.Activity, AdmissionConflict)
		return nil, appErrors.Clone(appErrors.ErrSlotTaken, slotTakenMessage)
	}

	reservation := &models.Reservation{
		UserID:   req.UserID,
		Activity: req.Activity,
		SlotDate: req.Date,
		SlotTime: req.Time,
		SlotAt:   slotAt.UTC(),
		Location: tpl.Location,
	}
	if err := s.store.Insert(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordAdmission(req.Activity, AdmissionConflict)
			return nil, appErrors.Clone(appErrors.ErrSlotTaken, slotTakenMessage)
		}
		s.metrics.RecordAdmission(req.Activity, AdmissionStoreError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}
	s.metrics.RecordAdmission(req.Activity, AdmissionAccepted)

	s.publish(ctx, realtime.EventInsert, reservation)
	s.recordAudit(ctx, req.UserID, models.AuditActionReservationCreate, reservation, nil, reservation, req.IP, req.UserAgent)
	s.logger.Info("reservation admitted",
		zap.String("reservation_id", reservation.ID),
		zap.String("activity", reservation.Activity),
		zap.String("date", reservation.SlotDate),
		zap.String("time", reservation.SlotTime),
	)
	return reservation, nil
}

// Cancel removes a reservation on behalf of an administrator.
func (s *AdmissionService) Cancel(ctx context.Context, id, actorID string) error {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete reservation")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
	}

	s.publish(ctx, realtime.EventDelete, existing)
	s.recordAudit(ctx, actorID, models.AuditActionReservationDelete, existing, existing, nil, "", "")
	return nil
}

// resolveSlot finds the template offering the requested slot and returns its instant.
func (s *AdmissionService) resolveSlot(ctx context.Context, req models.AdmissionRequest) (time.Time, *models.ScheduleTemplate, error) {
	loc := s.config.Location
	day, err := time.ParseInLocation(models.DateLayout, req.Date, loc)
	if err != nil {
		return time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	hour, minute, err := models.ParseClock(req.Time)
	if err != nil {
		return time.Time{}, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time")
	}

	templates, err := s.templates.Templates(ctx, req.Activity)
	if err != nil {
		return time.Time{}, nil, err
	}

	weekday := models.WeekdayOf(day)
	clock := fmt.Sprintf("%02d:%02d", hour, minute)
	var match *models.ScheduleTemplate
	for i := range templates {
		tpl := templates[i]
		if tpl.Weekday != weekday || tpl.Capacity <= 0 {
			continue
		}
		h, m, err := models.ParseClock(tpl.StartTime)
		if err != nil || fmt.Sprintf("%02d:%02d", h, m) != clock {
			continue
		}
		match = &tpl
		break
	}
	if match == nil {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrSlotUnknown, "ce créneau n'est pas proposé")
	}

	slotAt := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	now := s.now()
	if !slotAt.After(now) {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrSlotPast, "ce créneau est déjà passé")
	}
	if s.config.MaxDays > 0 {
		limit := now.In(loc).AddDate(0, 0, s.config.MaxDays)
		if slotAt.After(limit) {
			return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "date trop éloignée")
		}
	}
	return slotAt, match, nil
}

func (s *AdmissionService) publish(ctx context.Context, kind realtime.EventType, res *models.Reservation) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, realtime.Event{
		Table:    realtime.TableReservations,
		Type:     kind,
		UserID:   res.UserID,
		Activity: res.Activity,
		RecordID: res.ID,
	})
}

func (s *AdmissionService) recordAudit(ctx context.Context, actorID, action string, res *models.Reservation, oldValue, newValue interface{}, ip, userAgent string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "reservation",
		ResourceID: &res.ID,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if oldValue != nil {
		entry.OldValues, _ = json.Marshal(oldValue)
	}
	if newValue != nil {
		entry.NewValues, _ = json.Marshal(newValue)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record reservation audit log", zap.String("reservation_id", res.ID), zap.Error(err))
	}
}

// AuthRequired builds the redirect outcome for unauthenticated callers.
func AuthRequired(loginPath, from string) *appErrors.Error {
	meta := map[string]interface{}{"redirect": loginPath}
	if from != "" {
		meta["from"] = from
	}
	return appErrors.WithMeta(appErrors.ErrAuthRequired, meta)
}
