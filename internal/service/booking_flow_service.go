package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
)

type availabilityComputer interface {
	Compute(ctx context.Context, activity string, days int) (*models.Availability, error)
}

type reservationAdmitter interface {
	Admit(ctx context.Context, req models.AdmissionRequest) (*models.Reservation, error)
}

// ConfirmRequest carries the request context of a booking confirmation.
type ConfirmRequest struct {
	UserID     string
	Activity   string
	OriginPath string
	IP         string
	UserAgent  string
}

// BookingFlowService drives the per user selection state machine of the booking page.
type BookingFlowService struct {
	availability availabilityComputer
	admission    reservationAdmitter
	store        SelectionStore
	logger       *zap.Logger
	loginPath    string
	submitHold   time.Duration
	now          func() time.Time
}

// NewBookingFlowService wires the booking flow.
func NewBookingFlowService(availability availabilityComputer, admission reservationAdmitter, store SelectionStore, logger *zap.Logger, loginPath string) *BookingFlowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemorySelectionStore(0)
	}
	if loginPath == "" {
		loginPath = "/login"
	}
	return &BookingFlowService{
		availability: availability,
		admission:    admission,
		store:        store,
		logger:       logger,
		loginPath:    loginPath,
		submitHold:   DefaultSubmitHold,
		now:          time.Now,
	}
}

// View returns the availability of the activity with the caller's current selection.
func (s *BookingFlowService) View(ctx context.Context, userID, activity string) (*models.BookingView, error) {
	avail, sel, err := s.load(ctx, userID, activity)
	if err != nil {
		return nil, err
	}
	return &models.BookingView{Availability: avail, Selection: sel}, nil
}

// SelectDay picks a day. Days without slots or outside the horizon leave the selection unchanged,
// as does a confirmation still in flight.
func (s *BookingFlowService) SelectDay(ctx context.Context, userID, activity, date string) (*models.BookingView, error) {
	avail, sel, err := s.load(ctx, userID, activity)
	if err != nil {
		return nil, err
	}
	if !SubmitInFlight(sel, s.now(), s.submitHold) && PickDay(sel, avail, date, s.now()) {
		if err := s.save(ctx, sel); err != nil {
			return nil, err
		}
	}
	return &models.BookingView{Availability: avail, Selection: sel}, nil
}

// SelectTime picks an available time in the selected day.
func (s *BookingFlowService) SelectTime(ctx context.Context, userID, activity, at string) (*models.BookingView, error) {
	avail, sel, err := s.load(ctx, userID, activity)
	if err != nil {
		return nil, err
	}
	if !SubmitInFlight(sel, s.now(), s.submitHold) && PickTime(sel, avail, at, s.now()) {
		if err := s.save(ctx, sel); err != nil {
			return nil, err
		}
	}
	return &models.BookingView{Availability: avail, Selection: sel}, nil
}

// Reset discards the caller's selection.
func (s *BookingFlowService) Reset(ctx context.Context, userID, activity string) error {
	if userID == "" {
		return AuthRequired(s.loginPath, "")
	}
	if err := s.store.Clear(ctx, userID, activity); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset selection")
	}
	return nil
}

// Confirm submits the selection. The returned view always reflects the outcome;
// the error is the admission failure, if any.
func (s *BookingFlowService) Confirm(ctx context.Context, req ConfirmRequest) (*models.BookingView, error) {
	if req.UserID == "" {
		return nil, AuthRequired(s.loginPath, req.OriginPath)
	}
	activity := models.NormalizeActivity(req.Activity)
	sel, err := s.selection(ctx, req.UserID, activity)
	if err != nil {
		return nil, err
	}

	if SubmitInFlight(sel, s.now(), s.submitHold) {
		return s.viewAfterSubmit(ctx, sel), appErrors.Clone(appErrors.ErrSubmitPending, MessageSubmitPending)
	}
	if !BeginSubmit(sel, s.now()) {
		_ = s.save(ctx, sel)
		return s.viewAfterSubmit(ctx, sel), appErrors.Clone(appErrors.ErrValidation, MessageSelectionIncomplete)
	}
	claimed, err := s.store.ClaimSubmit(ctx, sel, s.submitHold)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")
	}
	if !claimed {
		if current, loadErr := s.store.Load(ctx, req.UserID, activity); loadErr == nil && current != nil {
			sel = current
		}
		return s.viewAfterSubmit(ctx, sel), appErrors.Clone(appErrors.ErrSubmitPending, MessageSubmitPending)
	}

	res, admitErr := s.admission.Admit(ctx, models.AdmissionRequest{
		UserID:     req.UserID,
		Activity:   activity,
		Date:       sel.Date,
		Time:       sel.Time,
		OriginPath: req.OriginPath,
		IP:         req.IP,
		UserAgent:  req.UserAgent,
	})
	if admitErr != nil {
		FailSubmit(sel, admitErr, s.now())
		s.logger.Info("booking confirmation failed",
			zap.String("user_id", req.UserID),
			zap.String("activity", activity),
			zap.String("code", sel.ErrorCode),
		)
	} else {
		CompleteSubmit(sel, res.ID, s.now())
	}

	if err := s.save(ctx, sel); err != nil {
		s.logger.Warn("failed to persist selection outcome", zap.String("user_id", req.UserID), zap.Error(err))
	}
	return s.viewAfterSubmit(ctx, sel), admitErr
}

func (s *BookingFlowService) viewAfterSubmit(ctx context.Context, sel *models.Selection) *models.BookingView {
	view := &models.BookingView{Selection: sel}
	avail, err := s.availability.Compute(ctx, sel.Activity, 0)
	if err != nil {
		s.logger.Warn("failed to refresh availability", zap.String("activity", sel.Activity), zap.Error(err))
		return view
	}
	view.Availability = avail
	return view
}

func (s *BookingFlowService) load(ctx context.Context, userID, activity string) (*models.Availability, *models.Selection, error) {
	if userID == "" {
		return nil, nil, AuthRequired(s.loginPath, "")
	}
	avail, err := s.availability.Compute(ctx, activity, 0)
	if err != nil {
		return nil, nil, err
	}
	sel, err := s.selection(ctx, userID, avail.Activity)
	if err != nil {
		return nil, nil, err
	}
	if sel.Date != "" {
		if _, ok := avail.Day(sel.Date); !ok {
			sel = NewSelection(userID, avail.Activity, s.now())
		}
	}
	return avail, sel, nil
}

func (s *BookingFlowService) selection(ctx context.Context, userID, activity string) (*models.Selection, error) {
	sel, err := s.store.Load(ctx, userID, activity)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	if sel == nil {
		sel = NewSelection(userID, activity, s.now())
	}
	return sel, nil
}

func (s *BookingFlowService) save(ctx context.Context, sel *models.Selection) error {
	if err := s.store.Save(ctx, sel); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save selection")
	}
	return nil
}
