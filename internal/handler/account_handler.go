package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/service"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
	"github.com/noah-isme/aquacentre-api/pkg/response"
)

type accountService interface {
	Reservations(ctx context.Context, userID string) ([]models.Reservation, error)
	Calendar(ctx context.Context, userID string) ([]byte, error)
	ReceiptLink(ctx context.Context, userID, reservationID string) (*service.ReceiptLink, error)
	OpenReceipt(token string) (io.ReadCloser, string, error)
}

type paymentLister interface {
	ListForUser(ctx context.Context, userID string) ([]models.PaymentTransaction, error)
}

type streamServer interface {
	Serve(w http.ResponseWriter, r *http.Request, filter realtime.Filter)
}

// AccountHandler serves the signed-in customer's own data.
type AccountHandler struct {
	account  accountService
	payments paymentLister
	streams  streamServer
	logger   *zap.Logger
}

// NewAccountHandler constructs handler.
func NewAccountHandler(account accountService, payments paymentLister, streams streamServer, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{account: account, payments: payments, streams: streams, logger: logger}
}

// Reservations godoc
// @Summary My reservations
// @Tags Account
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /account/reservations [get]
func (h *AccountHandler) Reservations(c *gin.Context) {
	items, err := h.account.Reservations(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Calendar godoc
// @Summary My reservations as iCalendar
// @Tags Account
// @Produce text/calendar
// @Success 200 {file} file
// @Security BearerAuth
// @Router /account/reservations.ics [get]
func (h *AccountHandler) Calendar(c *gin.Context) {
	body, err := h.account.Calendar(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	attachment(c, "reservations.ics", "text/calendar; charset=utf-8", body)
}

// ReceiptLink godoc
// @Summary Signed download link of a reservation receipt
// @Tags Account
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /account/reservations/{id}/receipt [get]
func (h *AccountHandler) ReceiptLink(c *gin.Context) {
	link, err := h.account.ReceiptLink(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, link)
}

// DownloadReceipt godoc
// @Summary Download a receipt through a signed link
// @Tags Account
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /receipts [get]
func (h *AccountHandler) DownloadReceipt(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, name, err := h.account.OpenReceipt(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", `inline; filename="`+name+`"`)
	c.Header("Cache-Control", "private, max-age=300")
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		h.logger.Warn("receipt download interrupted", zap.Error(err))
	}
}

// Payments godoc
// @Summary My payments
// @Tags Account
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /account/payments [get]
func (h *AccountHandler) Payments(c *gin.Context) {
	txs, err := h.payments.ListForUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, txs)
}

// Stream godoc
// @Summary Change notifications for my reservations and payments
// @Description Websocket. Messages are EVENT or STALE; send {"type":"resync"} after reloading.
// @Tags Account
// @Param table query string false "reservations or payments"
// @Security BearerAuth
// @Router /account/stream [get]
func (h *AccountHandler) Stream(c *gin.Context) {
	h.streams.Serve(c.Writer, c.Request, realtime.Filter{Table: c.Query("table"), UserID: currentUserID(c)})
}
