package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleTemplateFilter) ([]models.ScheduleTemplate, *models.Pagination, error)
	Activities(ctx context.Context) ([]string, error)
	Create(ctx context.Context, actorID string, req models.UpsertScheduleTemplateRequest) (*models.ScheduleTemplate, error)
	Update(ctx context.Context, actorID, id string, req models.UpsertScheduleTemplateRequest) (*models.ScheduleTemplate, error)
	Delete(ctx context.Context, actorID, id string) error
}

// ScheduleHandler manages the weekly timetable endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedule templates
// @Tags Schedules
// @Produce json
// @Param activity query string false "Filter by activity"
// @Param weekday query string false "Filter by weekday (name or ISO number)"
// @Param location query string false "Filter by location"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleTemplateFilter{
		Activity: c.Query("activity"),
		Location: c.Query("location"),
	}
	if raw := c.Query("weekday"); raw != "" {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weekday"))
			return
		}
		filter.Weekday = &day
	}
	filter.Page, filter.PageSize = pageParams(c)

	templates, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, pagination)
}

// Activities godoc
// @Summary List activities with a timetable
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/activities [get]
func (h *ScheduleHandler) Activities(c *gin.Context) {
	activities, err := h.service.Activities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, activities)
}

// Create godoc
// @Summary Create schedule template
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body models.UpsertScheduleTemplateRequest true "Template"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req models.UpsertScheduleTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	tpl, err := h.service.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}

// Update godoc
// @Summary Replace schedule template
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body models.UpsertScheduleTemplateRequest true "Template"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req models.UpsertScheduleTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	tpl, err := h.service.Update(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tpl)
}

// Delete godoc
// @Summary Delete schedule template
// @Tags Schedules
// @Param id path string true "Template ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
