package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/service"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
)

type accountServiceMock struct{}

func (accountServiceMock) Reservations(ctx context.Context, userID string) ([]models.Reservation, error) {
	return []models.Reservation{{ID: "r1", UserID: userID}}, nil
}

func (accountServiceMock) Calendar(ctx context.Context, userID string) ([]byte, error) {
	return []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), nil
}

func (accountServiceMock) ReceiptLink(ctx context.Context, userID, reservationID string) (*service.ReceiptLink, error) {
	if reservationID != "r1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
	}
	return &service.ReceiptLink{URL: "/api/v1/receipts?token=abc"}, nil
}

func (accountServiceMock) OpenReceipt(token string) (io.ReadCloser, string, error) {
	if token != "abc" {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired link")
	}
	return io.NopCloser(strings.NewReader("%PDF")), "r1.pdf", nil
}

type streamRecorder struct {
	filters []realtime.Filter
}

func (s *streamRecorder) Serve(w http.ResponseWriter, r *http.Request, filter realtime.Filter) {
	s.filters = append(s.filters, filter)
}

func TestAccountCalendarIsAttachment(t *testing.T) {
	h := NewAccountHandler(accountServiceMock{}, nil, &streamRecorder{}, nil)
	c, w := newTestContext(http.MethodGet, "/api/v1/account/reservations.ics", nil)
	asUser(c, "u1", models.RoleCustomer)

	h.Calendar(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reservations.ics")
}

func TestDownloadReceipt(t *testing.T) {
	h := NewAccountHandler(accountServiceMock{}, nil, &streamRecorder{}, nil)

	c, w := newTestContext(http.MethodGet, "/api/v1/receipts?token=abc", nil)
	h.DownloadReceipt(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", w.Body.String())

	c, w = newTestContext(http.MethodGet, "/api/v1/receipts?token=bad", nil)
	h.DownloadReceipt(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newTestContext(http.MethodGet, "/api/v1/receipts", nil)
	h.DownloadReceipt(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreamsFilterByAudience(t *testing.T) {
	streams := &streamRecorder{}
	account := NewAccountHandler(accountServiceMock{}, nil, streams, nil)
	admin := NewAdminHandler(nil, streams)

	c, _ := newTestContext(http.MethodGet, "/api/v1/account/stream?table=reservations", nil)
	asUser(c, "u1", models.RoleCustomer)
	account.Stream(c)

	c, _ = newTestContext(http.MethodGet, "/api/v1/admin/stream", nil)
	asUser(c, "a1", models.RoleAdmin)
	admin.Stream(c)

	require.Len(t, streams.filters, 2)
	assert.Equal(t, realtime.Filter{Table: "reservations", UserID: "u1"}, streams.filters[0])
	assert.Equal(t, realtime.Filter{}, streams.filters[1])
}

type paymentServiceMock struct {
	raw []byte
	err error
}

func (m *paymentServiceMock) Checkout(ctx context.Context, userID string, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	return &models.CheckoutResponse{OrderID: "AQC-1", RedirectURL: "https://pay.example/AQC-1"}, nil
}

func (m *paymentServiceMock) HandleNotification(ctx context.Context, n models.PaymentNotification, raw []byte) error {
	m.raw = raw
	return m.err
}

func TestPaymentNotificationPassesRawBody(t *testing.T) {
	svc := &paymentServiceMock{}
	h := NewPaymentHandler(svc)
	body := `{"order_id":"AQC-1","status_code":"200","gross_amount":"1000.00","signature_key":"x","transaction_status":"settlement"}`

	c, w := newTestContext(http.MethodPost, "/api/v1/payments/notifications", []byte(body))
	h.Notification(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, body, string(svc.raw))

	svc.err = appErrors.Clone(appErrors.ErrSignature, "")
	c, w = newTestContext(http.MethodPost, "/api/v1/payments/notifications", []byte(body))
	h.Notification(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newTestContext(http.MethodPost, "/api/v1/payments/notifications", []byte(`{`))
	h.Notification(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type contentServiceMock struct {
	created bool
}

func (m *contentServiceMock) Settings(ctx context.Context) (*models.SiteSettings, error) {
	return &models.SiteSettings{MardiChillColor: "blue"}, nil
}

func (m *contentServiceMock) UpdateSettings(ctx context.Context, actorID string, settings models.SiteSettings) (*models.SiteSettings, error) {
	return &settings, nil
}

func (m *contentServiceMock) Subscribe(ctx context.Context, req models.SubscribeRequest) (bool, error) {
	return m.created, nil
}

func (m *contentServiceMock) Subscriptions(ctx context.Context) ([]models.NewsletterSubscription, error) {
	return nil, nil
}

func (m *contentServiceMock) ExportSubscriptions(ctx context.Context) ([]byte, error) {
	return []byte("email;subscribed_at\n"), nil
}

func (m *contentServiceMock) Contact(ctx context.Context, req models.ContactRequest) (*models.Message, error) {
	return &models.Message{ID: "m1"}, nil
}

func (m *contentServiceMock) RequestEventQuote(ctx context.Context, req models.EventQuoteRequest) (*models.Message, error) {
	return &models.Message{ID: "m2"}, nil
}

func (m *contentServiceMock) Messages(ctx context.Context, page, pageSize int) ([]models.Message, *models.Pagination, error) {
	return []models.Message{}, &models.Pagination{Page: page, PageSize: pageSize}, nil
}

func TestSubscribeStatusReflectsCreation(t *testing.T) {
	svc := &contentServiceMock{created: true}
	h := NewContentHandler(svc)

	c, w := newTestContext(http.MethodPost, "/api/v1/newsletter", []byte(`{"email":"nina@example.com"}`))
	h.Subscribe(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.created = false
	c, w = newTestContext(http.MethodPost, "/api/v1/newsletter", []byte(`{"email":"nina@example.com"}`))
	h.Subscribe(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMessagesPagination(t *testing.T) {
	h := NewContentHandler(&contentServiceMock{})
	c, w := newTestContext(http.MethodGet, "/api/v1/admin/messages?page=2&limit=500", nil)
	asUser(c, "a1", models.RoleAdmin)

	h.Messages(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 20, env.Pagination.PageSize)
}

type reservationAdminMock struct {
	filter  models.ReservationFilter
	deleted string
}

func (m *reservationAdminMock) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationWithUser, *models.Pagination, error) {
	m.filter = filter
	return []models.ReservationWithUser{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *reservationAdminMock) Export(ctx context.Context, filter models.ReservationFilter) ([]byte, error) {
	m.filter = filter
	return []byte("id;activity\n"), nil
}

func (m *reservationAdminMock) Delete(ctx context.Context, id, actorID string) error {
	if id != "r1" {
		return appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
	}
	m.deleted = id
	return nil
}

func TestAdminReservationFilters(t *testing.T) {
	svc := &reservationAdminMock{}
	h := NewAdminHandler(svc, &streamRecorder{})

	c, w := newTestContext(http.MethodGet, "/api/v1/admin/reservations?activity=aquagym&from=2026-03-01&to=2026-03-31", nil)
	h.Reservations(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "aquagym", svc.filter.Activity)
	require.NotNil(t, svc.filter.From)
	assert.Equal(t, "2026-03-31", svc.filter.To.Format(models.DateLayout))

	c, w = newTestContext(http.MethodGet, "/api/v1/admin/reservations?from=01/03/2026", nil)
	h.Reservations(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodGet, "/api/v1/admin/reservations/export", nil)
	h.ExportReservations(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reservations-")
}

func TestAdminDeleteReservation(t *testing.T) {
	svc := &reservationAdminMock{}
	h := NewAdminHandler(svc, &streamRecorder{})

	c, w := newTestContext(http.MethodDelete, "/api/v1/admin/reservations/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	asUser(c, "a1", models.RoleAdmin)
	h.DeleteReservation(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "r1", svc.deleted)

	c, w = newTestContext(http.MethodDelete, "/api/v1/admin/reservations/zz", nil)
	c.Params = gin.Params{{Key: "id", Value: "zz"}}
	h.DeleteReservation(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": PingFunc(func(ctx context.Context) error { return nil }),
		"redis":    PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})
	c, w := newTestContext(http.MethodGet, "/ready", nil)

	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
