package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/response"
)

const maxNotificationBytes = 64 << 10

type paymentService interface {
	Checkout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	HandleNotification(ctx context.Context, n models.PaymentNotification, raw []byte) error
}

// PaymentHandler starts hosted checkouts and receives gateway callbacks.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler constructs handler.
func NewPaymentHandler(svc paymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// Checkout godoc
// @Summary Start a hosted checkout
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body models.CheckoutRequest true "Price"
// @Success 201 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Security BearerAuth
// @Router /payments/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid checkout payload"))
		return
	}
	res, err := h.service.Checkout(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Notification godoc
// @Summary Gateway payment notification
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /payments/notifications [post]
func (h *PaymentHandler) Notification(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable notification"))
		return
	}
	var n models.PaymentNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notification payload"))
		return
	}
	if err := h.service.HandleNotification(c.Request.Context(), n, raw); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"received": true})
}
