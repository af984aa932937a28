package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/response"
)

type contentService interface {
	Settings(ctx context.Context) (*models.SiteSettings, error)
	UpdateSettings(ctx context.Context, actorID string, settings models.SiteSettings) (*models.SiteSettings, error)
	Subscribe(ctx context.Context, req models.SubscribeRequest) (bool, error)
	Subscriptions(ctx context.Context) ([]models.NewsletterSubscription, error)
	ExportSubscriptions(ctx context.Context) ([]byte, error)
	Contact(ctx context.Context, req models.ContactRequest) (*models.Message, error)
	RequestEventQuote(ctx context.Context, req models.EventQuoteRequest) (*models.Message, error)
	Messages(ctx context.Context, page, pageSize int) ([]models.Message, *models.Pagination, error)
}

// ContentHandler serves the site settings, newsletter and visitor messages.
type ContentHandler struct {
	service contentService
	now     func() time.Time
}

// NewContentHandler constructs handler.
func NewContentHandler(svc contentService) *ContentHandler {
	return &ContentHandler{service: svc, now: time.Now}
}

// Settings godoc
// @Summary Homepage settings
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /settings [get]
func (h *ContentHandler) Settings(c *gin.Context) {
	settings, err := h.service.Settings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, settings)
}

// UpdateSettings godoc
// @Summary Replace homepage settings
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body models.SiteSettings true "Settings"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/settings [put]
func (h *ContentHandler) UpdateSettings(c *gin.Context) {
	var req models.SiteSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	saved, err := h.service.UpdateSettings(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, saved)
}

// Subscribe godoc
// @Summary Subscribe to the newsletter
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body models.SubscribeRequest true "Email"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /newsletter [post]
func (h *ContentHandler) Subscribe(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid subscription payload"))
		return
	}
	created, err := h.service.Subscribe(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, gin.H{"subscribed": true}, nil)
}

// Subscriptions godoc
// @Summary Newsletter subscribers
// @Tags Content
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/newsletter [get]
func (h *ContentHandler) Subscriptions(c *gin.Context) {
	subs, err := h.service.Subscriptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, subs)
}

// ExportSubscriptions godoc
// @Summary Newsletter subscribers as CSV
// @Tags Content
// @Produce text/csv
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/newsletter/export [get]
func (h *ContentHandler) ExportSubscriptions(c *gin.Context) {
	body, err := h.service.ExportSubscriptions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	attachment(c, "newsletter-"+h.now().Format("20060102")+".csv", "text/csv; charset=utf-8", body)
}

// Contact godoc
// @Summary Send a contact message
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body models.ContactRequest true "Message"
// @Success 201 {object} response.Envelope
// @Router /contact [post]
func (h *ContentHandler) Contact(c *gin.Context) {
	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}
	msg, err := h.service.Contact(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": msg.ID})
}

// EventQuote godoc
// @Summary Request a private event quote
// @Tags Content
// @Accept json
// @Produce json
// @Param payload body models.EventQuoteRequest true "Quote request"
// @Success 201 {object} response.Envelope
// @Router /events/quote [post]
func (h *ContentHandler) EventQuote(c *gin.Context) {
	var req models.EventQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quote payload"))
		return
	}
	msg, err := h.service.RequestEventQuote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": msg.ID})
}

// Messages godoc
// @Summary Visitor messages
// @Tags Content
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/messages [get]
func (h *ContentHandler) Messages(c *gin.Context) {
	page, size := pageParams(c)
	msgs, pagination, err := h.service.Messages(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msgs, pagination)
}
