package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/export"
	"github.com/noah-isme/aquacentre-api/pkg/storage"
)

type mockAccountReader struct {
	rows []models.Reservation
}

func (m *mockAccountReader) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockAccountReader) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	for _, r := range m.rows {
		if r.ID == id {
			copied := r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type countingRenderer struct {
	calls    int
	receipts []export.Receipt
}

func (r *countingRenderer) RenderReceipt(rc export.Receipt) ([]byte, error) {
	r.calls++
	r.receipts = append(r.receipts, rc)
	return []byte("%PDF-1.3 fake"), nil
}

func newAccountFixture(t *testing.T) (*AccountService, *countingRenderer) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	reader := &mockAccountReader{rows: []models.Reservation{{
		ID:        "r1",
		UserID:    "u1",
		Activity:  "AQUAGYM",
		SlotDate:  "2026-03-02",
		SlotTime:  "09:15",
		SlotAt:    time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC),
		Location:  "CenterA",
		CreatedAt: time.Date(2026, 2, 27, 18, 30, 0, 0, time.UTC),
	}}}
	renderer := &countingRenderer{}
	signer := storage.NewSignedURLSigner("receipt-secret", time.Hour)
	return NewAccountService(reader, renderer, files, signer, nil, time.UTC, "/api/v1/receipts"), renderer
}

func TestCalendarContainsReservation(t *testing.T) {
	svc, _ := newAccountFixture(t)

	out, err := svc.Calendar(context.Background(), "u1")
	require.NoError(t, err)

	body := string(out)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "UID:r1@aquacentre")
	assert.Contains(t, body, "SUMMARY:AQUAGYM")
	assert.Contains(t, body, "DTSTART:20260302T091500Z")
	assert.Contains(t, body, "DTEND:20260302T101500Z")

	empty, err := svc.Calendar(context.Background(), "someone-else")
	require.NoError(t, err)
	assert.NotContains(t, string(empty), "BEGIN:VEVENT")
}

func TestReceiptLinkRendersOnceAndOpens(t *testing.T) {
	svc, renderer := newAccountFixture(t)

	link, err := svc.ReceiptLink(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/receipts?token="))

	_, err = svc.ReceiptLink(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, "RES:r1", renderer.receipts[0].QRContent)

	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	file, name, err := svc.OpenReceipt(parsed.Query().Get("token"))
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "r1.pdf", name)
	assert.Equal(t, "%PDF-1.3 fake", string(content))
}

func TestReceiptLinkHidesOtherUsersReservations(t *testing.T) {
	svc, renderer := newAccountFixture(t)

	_, err := svc.ReceiptLink(context.Background(), "u2", "r1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = svc.ReceiptLink(context.Background(), "u1", "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Zero(t, renderer.calls)

	_, _, err = svc.OpenReceipt("garbage")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}
