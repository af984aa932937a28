package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/export"
)

// exportPageSize bounds one CSV export; the admin list is paginated, the export is not.
const exportPageSize = 10000

type reservationLister interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationWithUser, int, error)
}

type reservationCanceller interface {
	Cancel(ctx context.Context, id, actorID string) error
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ReservationAdminService backs the administrator reservation screens.
type ReservationAdminService struct {
	reservations reservationLister
	admission    reservationCanceller
	csv          csvRenderer
	logger       *zap.Logger
}

// NewReservationAdminService constructs the service. A nil renderer uses a semicolon CSV exporter.
func NewReservationAdminService(reservations reservationLister, admission reservationCanceller, csv csvRenderer, logger *zap.Logger) *ReservationAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter(';')
	}
	return &ReservationAdminService{reservations: reservations, admission: admission, csv: csv, logger: logger}
}

// List returns a page of reservations across all users.
func (s *ReservationAdminService) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationWithUser, *models.Pagination, error) {
	filter.Activity = models.NormalizeActivity(filter.Activity)
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)
	rows, total, err := s.reservations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	if rows == nil {
		rows = []models.ReservationWithUser{}
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Export renders every reservation matching filter as CSV.
func (s *ReservationAdminService) Export(ctx context.Context, filter models.ReservationFilter) ([]byte, error) {
	filter.Activity = models.NormalizeActivity(filter.Activity)
	filter.Page, filter.PageSize = 1, exportPageSize
	rows, total, err := s.reservations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	if total > len(rows) {
		s.logger.Warn("reservation export truncated", zap.Int("total", total), zap.Int("exported", len(rows)))
	}

	data := export.Dataset{Headers: []string{"id", "activity", "date", "time", "location", "email", "first_name", "last_name", "created_at"}}
	for _, r := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"id":         r.ID,
			"activity":   r.Activity,
			"date":       r.SlotDate,
			"time":       r.SlotTime,
			"location":   r.Location,
			"email":      r.UserEmail,
			"first_name": r.UserFirstName,
			"last_name":  r.UserLastName,
			"created_at": r.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	out, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return out, nil
}

// Delete cancels a reservation.
func (s *ReservationAdminService) Delete(ctx context.Context, id, actorID string) error {
	return s.admission.Cancel(ctx, id, actorID)
}
