package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/response"
)

type pricingService interface {
	List(ctx context.Context, activeOnly bool) ([]models.PriceOption, error)
	Create(ctx context.Context, actorID string, req models.UpsertPriceRequest) (*models.PriceOption, error)
	Update(ctx context.Context, actorID, id string, req models.UpsertPriceRequest) (*models.PriceOption, error)
	Delete(ctx context.Context, actorID, id string) error
}

// PricingHandler serves the price list.
type PricingHandler struct {
	service pricingService
}

// NewPricingHandler constructs handler.
func NewPricingHandler(svc pricingService) *PricingHandler {
	return &PricingHandler{service: svc}
}

// List godoc
// @Summary Active prices
// @Tags Pricing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pricing [get]
func (h *PricingHandler) List(c *gin.Context) {
	h.list(c, true)
}

// ListAll godoc
// @Summary All prices including inactive ones
// @Tags Pricing
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/pricing [get]
func (h *PricingHandler) ListAll(c *gin.Context) {
	h.list(c, false)
}

func (h *PricingHandler) list(c *gin.Context, activeOnly bool) {
	prices, err := h.service.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, prices)
}

// Create godoc
// @Summary Create price
// @Tags Pricing
// @Accept json
// @Produce json
// @Param payload body models.UpsertPriceRequest true "Price"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/pricing [post]
func (h *PricingHandler) Create(c *gin.Context) {
	var req models.UpsertPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid price payload"))
		return
	}
	price, err := h.service.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, price)
}

// Update godoc
// @Summary Replace price
// @Tags Pricing
// @Accept json
// @Produce json
// @Param id path string true "Price ID"
// @Param payload body models.UpsertPriceRequest true "Price"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/pricing/{id} [put]
func (h *PricingHandler) Update(c *gin.Context) {
	var req models.UpsertPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid price payload"))
		return
	}
	price, err := h.service.Update(c.Request.Context(), currentUserID(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, price)
}

// Delete godoc
// @Summary Delete price
// @Tags Pricing
// @Param id path string true "Price ID"
// @Success 204
// @Security BearerAuth
// @Router /admin/pricing/{id} [delete]
func (h *PricingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
