package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aquacentre-api/internal/middleware"
	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/service"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/response"
)

type bookingFlow interface {
	View(ctx context.Context, userID, activity string) (*models.BookingView, error)
	SelectDay(ctx context.Context, userID, activity, date string) (*models.BookingView, error)
	SelectTime(ctx context.Context, userID, activity, at string) (*models.BookingView, error)
	Reset(ctx context.Context, userID, activity string) error
	Confirm(ctx context.Context, req service.ConfirmRequest) (*models.BookingView, error)
}

type admitter interface {
	Admit(ctx context.Context, req models.AdmissionRequest) (*models.Reservation, error)
}

type availabilityReader interface {
	Compute(ctx context.Context, activity string, days int) (*models.Availability, error)
}

type eventLister interface {
	Upcoming(ctx context.Context) (*models.Availability, error)
}

// BookingHandler exposes availability, the selection flow and direct admission.
type BookingHandler struct {
	flow         bookingFlow
	admission    admitter
	availability availabilityReader
	events       eventLister
}

// NewBookingHandler constructs the booking handler.
func NewBookingHandler(flow bookingFlow, admission admitter, availability availabilityReader, events eventLister) *BookingHandler {
	return &BookingHandler{flow: flow, admission: admission, availability: availability, events: events}
}

// Availability godoc
// @Summary Slot availability of an activity
// @Description Repeated calls with unchanged reservations return identical days; generated_at is the computation time.
// @Tags Booking
// @Produce json
// @Param activity path string true "Activity key"
// @Param days query int false "Number of days (default horizon when omitted)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability/{activity} [get]
func (h *BookingHandler) Availability(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be a number"))
			return
		}
		days = n
	}
	avail, err := h.availability.Compute(c.Request.Context(), c.Param("activity"), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avail, nil, middleware.ExtractMeta(c))
}

// Events godoc
// @Summary Upcoming events
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *BookingHandler) Events(c *gin.Context) {
	upcoming, err := h.events.Upcoming(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, upcoming, nil, middleware.ExtractMeta(c))
}

// View godoc
// @Summary Booking page state
// @Description Availability of the next days plus the caller's current selection
// @Tags Booking
// @Produce json
// @Param activity path string true "Activity key"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /booking/{activity} [get]
func (h *BookingHandler) View(c *gin.Context) {
	view, err := h.flow.View(c.Request.Context(), currentUserID(c), c.Param("activity"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// SelectDay godoc
// @Summary Pick a day
// @Tags Booking
// @Accept json
// @Produce json
// @Param activity path string true "Activity key"
// @Param payload body models.SelectDayRequest true "Day"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /booking/{activity}/selection/day [put]
func (h *BookingHandler) SelectDay(c *gin.Context) {
	var req models.SelectDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid day payload"))
		return
	}
	view, err := h.flow.SelectDay(c.Request.Context(), currentUserID(c), c.Param("activity"), req.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// SelectTime godoc
// @Summary Pick a time within the selected day
// @Tags Booking
// @Accept json
// @Produce json
// @Param activity path string true "Activity key"
// @Param payload body models.SelectTimeRequest true "Time"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /booking/{activity}/selection/time [put]
func (h *BookingHandler) SelectTime(c *gin.Context) {
	var req models.SelectTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time payload"))
		return
	}
	view, err := h.flow.SelectTime(c.Request.Context(), currentUserID(c), c.Param("activity"), req.Time)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Reset godoc
// @Summary Clear the selection
// @Tags Booking
// @Param activity path string true "Activity key"
// @Success 204
// @Security BearerAuth
// @Router /booking/{activity}/selection [delete]
func (h *BookingHandler) Reset(c *gin.Context) {
	if err := h.flow.Reset(c.Request.Context(), currentUserID(c), c.Param("activity")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Confirm godoc
// @Summary Confirm the selected slot
// @Description Failures return the selection with its user facing message alongside the error.
// @Tags Booking
// @Produce json
// @Param activity path string true "Activity key"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /booking/{activity}/confirm [post]
func (h *BookingHandler) Confirm(c *gin.Context) {
	view, err := h.flow.Confirm(c.Request.Context(), service.ConfirmRequest{
		UserID:     currentUserID(c),
		Activity:   c.Param("activity"),
		OriginPath: bookingPath(c),
		IP:         c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		if view == nil {
			response.Error(c, err)
			return
		}
		response.ErrorWithData(c, err, view)
		return
	}
	response.Created(c, view)
}

// Admit godoc
// @Summary Reserve a slot directly
// @Tags Booking
// @Accept json
// @Produce json
// @Param payload body models.CreateReservationRequest true "Slot"
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /reservations [post]
func (h *BookingHandler) Admit(c *gin.Context) {
	var req models.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	res, err := h.admission.Admit(c.Request.Context(), models.AdmissionRequest{
		UserID:     currentUserID(c),
		Activity:   req.Activity,
		Date:       req.Date,
		Time:       req.Time,
		OriginPath: "/booking/" + models.NormalizeActivity(req.Activity),
		IP:         c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// bookingPath is where an unauthenticated visitor returns to after signing in.
func bookingPath(c *gin.Context) string {
	return "/booking/" + models.NormalizeActivity(c.Param("activity"))
}
