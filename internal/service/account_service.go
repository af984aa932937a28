package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/export"
	"github.com/noah-isme/aquacentre-api/pkg/storage"
)

const sessionLength = time.Hour

type accountReservationReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
}

type receiptRenderer interface {
	RenderReceipt(r export.Receipt) ([]byte, error)
}

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Exists(name string) bool
	Open(name string) (io.ReadCloser, error)
}

type urlSigner interface {
	Generate(subject, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (*storage.SignedToken, error)
}

// ReceiptLink is a signed, time limited download link for a receipt.
type ReceiptLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccountService serves a customer's own reservations and their exports.
type AccountService struct {
	reservations accountReservationReader
	renderer     receiptRenderer
	files        fileStore
	signer       urlSigner
	logger       *zap.Logger
	loc          *time.Location
	downloadPath string
}

// NewAccountService wires the account service. downloadPath is the public route receipts are served from.
func NewAccountService(reservations accountReservationReader, renderer receiptRenderer, files fileStore, signer urlSigner, logger *zap.Logger, loc *time.Location, downloadPath string) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AccountService{
		reservations: reservations,
		renderer:     renderer,
		files:        files,
		signer:       signer,
		logger:       logger,
		loc:          loc,
		downloadPath: downloadPath,
	}
}

// Reservations lists the caller's reservations.
func (s *AccountService) Reservations(ctx context.Context, userID string) ([]models.Reservation, error) {
	items, err := s.reservations.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	if items == nil {
		items = []models.Reservation{}
	}
	return items, nil
}

// Calendar renders the caller's reservations as an iCalendar feed.
func (s *AccountService) Calendar(ctx context.Context, userID string) ([]byte, error) {
	items, err := s.Reservations(ctx, userID)
	if err != nil {
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Aquacentre//Reservations//FR")
	cal.SetXWRCalName("Mes réservations")

	for _, res := range items {
		event := cal.AddEvent(res.ID + "@aquacentre")
		event.SetCreatedTime(res.CreatedAt)
		event.SetDtStampTime(res.CreatedAt)
		event.SetStartAt(res.SlotAt)
		event.SetEndAt(res.SlotAt.Add(sessionLength))
		event.SetSummary(res.Activity)
		if res.Location != "" {
			event.SetLocation(res.Location)
		}
		event.SetDescription(fmt.Sprintf("Réservation %s le %s à %s", res.Activity, models.FrenchDateLabel(res.SlotAt.In(s.loc)), res.SlotTime))
	}
	return []byte(cal.Serialize()), nil
}

// ReceiptLink renders the receipt of a reservation once and returns a signed link to it.
func (s *AccountService) ReceiptLink(ctx context.Context, userID, reservationID string) (*ReceiptLink, error) {
	res, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if res.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
	}

	name := path.Join("receipts", userID, res.ID+".pdf")
	if !s.files.Exists(name) {
		pdf, err := s.renderer.RenderReceipt(s.receipt(res))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
		}
		if _, err := s.files.Save(name, pdf); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store receipt")
		}
		s.logger.Info("receipt generated", zap.String("reservation_id", res.ID))
	}

	token, expiresAt, err := s.signer.Generate(userID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &ReceiptLink{URL: s.downloadPath + "?token=" + token, ExpiresAt: expiresAt}, nil
}

// OpenReceipt resolves a signed token to the stored document.
func (s *AccountService) OpenReceipt(token string) (io.ReadCloser, string, error) {
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired link")
	}
	file, err := s.files.Open(parsed.Path)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}
	return file, path.Base(parsed.Path), nil
}

func (s *AccountService) receipt(res *models.Reservation) export.Receipt {
	local := res.SlotAt.In(s.loc)
	return export.Receipt{
		Title:     "Confirmation de réservation",
		Reference: res.ID,
		Lines: []export.ReceiptLine{
			{Label: "Activité", Value: res.Activity},
			{Label: "Date", Value: models.FrenchDateLabel(local)},
			{Label: "Heure", Value: res.SlotTime},
			{Label: "Lieu", Value: res.Location},
			{Label: "Réservé le", Value: res.CreatedAt.In(s.loc).Format("02/01/2006 15:04")},
		},
		Footer:    "Présentez ce code à l'accueil.",
		QRContent: "RES:" + res.ID,
	}
}
