package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
	"github.com/noah-isme/aquacentre-api/pkg/response"
)

type reservationAdmin interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationWithUser, *models.Pagination, error)
	Export(ctx context.Context, filter models.ReservationFilter) ([]byte, error)
	Delete(ctx context.Context, id, actorID string) error
}

// AdminHandler serves the administrator reservation screens and change stream.
type AdminHandler struct {
	reservations reservationAdmin
	streams      streamServer
	now          func() time.Time
}

// NewAdminHandler constructs handler.
func NewAdminHandler(reservations reservationAdmin, streams streamServer) *AdminHandler {
	return &AdminHandler{reservations: reservations, streams: streams, now: time.Now}
}

// Reservations godoc
// @Summary All reservations
// @Tags Admin
// @Produce json
// @Param activity query string false "Filter by activity"
// @Param user_id query string false "Filter by user"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations [get]
func (h *AdminHandler) Reservations(c *gin.Context) {
	filter, err := reservationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, err := h.reservations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// ExportReservations godoc
// @Summary All reservations as CSV
// @Tags Admin
// @Produce text/csv
// @Param activity query string false "Filter by activity"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/reservations/export [get]
func (h *AdminHandler) ExportReservations(c *gin.Context) {
	filter, err := reservationFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := h.reservations.Export(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	attachment(c, "reservations-"+h.now().Format("20060102")+".csv", "text/csv; charset=utf-8", body)
}

// DeleteReservation godoc
// @Summary Cancel a reservation
// @Tags Admin
// @Param id path string true "Reservation ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/reservations/{id} [delete]
func (h *AdminHandler) DeleteReservation(c *gin.Context) {
	if err := h.reservations.Delete(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Change notifications for every table
// @Description Websocket, unfiltered by user. Messages are EVENT or STALE.
// @Tags Admin
// @Param table query string false "Restrict to one table"
// @Security BearerAuth
// @Router /admin/stream [get]
func (h *AdminHandler) Stream(c *gin.Context) {
	h.streams.Serve(c.Writer, c.Request, realtime.Filter{Table: c.Query("table")})
}

func reservationFilter(c *gin.Context) (models.ReservationFilter, error) {
	filter := models.ReservationFilter{
		Activity: c.Query("activity"),
		UserID:   c.Query("user_id"),
	}
	filter.Page, filter.PageSize = pageParams(c)
	for key, target := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, key+" must be YYYY-MM-DD")
		}
		*target = &t
	}
	return filter, nil
}
