package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

const reservationColumns = `r.id, r.user_id, r.activity, r.slot_date, r.slot_time, r.slot_at, r.location, r.created_at`

// ReservationRepository persists reservations. The (activity, slot_date, slot_time)
// unique constraint is what prevents double booking.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ExistsAt reports whether a reservation holds the exact slot.
func (r *ReservationRepository) ExistsAt(ctx context.Context, key models.SlotKey) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM reservations WHERE activity = $1 AND slot_date = $2 AND slot_time = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, key.Activity, key.Date, key.Time); err != nil {
		return false, fmt.Errorf("check reservation exists: %w", err)
	}
	return exists, nil
}

// Insert stores a reservation. A concurrent booking of the same slot yields ErrDuplicate.
func (r *ReservationRepository) Insert(ctx context.Context, res *models.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reservations (id, user_id, activity, slot_date, slot_time, slot_at, location, created_at) VALUES (:id, :user_id, :activity, :slot_date, :slot_time, :slot_at, :location, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return wrapInsert("insert reservation", err)
	}
	return nil
}

// BookedBetween returns the booked slot keys of an activity for dates in [fromDate, toDate].
func (r *ReservationRepository) BookedBetween(ctx context.Context, activity, fromDate, toDate string) ([]models.SlotKey, error) {
	const query = `SELECT activity, slot_date, slot_time FROM reservations WHERE activity = $1 AND slot_date BETWEEN $2 AND $3`
	rows, err := r.db.QueryxContext(ctx, query, activity, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	defer rows.Close()

	var keys []models.SlotKey
	for rows.Next() {
		var key models.SlotKey
		if err := rows.Scan(&key.Activity, &key.Date, &key.Time); err != nil {
			return nil, fmt.Errorf("scan booked slot: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booked slots: %w", err)
	}
	return keys, nil
}

// ListByUser returns a user's reservations in slot order.
func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.user_id = $1 ORDER BY r.slot_at ASC`
	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, query, userID); err != nil {
		return nil, fmt.Errorf("list reservations by user: %w", err)
	}
	return reservations, nil
}

// FindByID loads a reservation by id.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, `SELECT `+reservationColumns+` FROM reservations r WHERE r.id = $1`, id); err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns reservations joined with their owner for administration.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationWithUser, int, error) {
	base := "FROM reservations r JOIN users u ON u.id = r.user_id WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Activity != "" {
		conditions = append(conditions, fmt.Sprintf("r.activity = $%d", len(args)+1))
		args = append(args, filter.Activity)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("r.slot_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("r.slot_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s, u.email AS user_email, u.first_name AS user_first_name, u.last_name AS user_last_name %s ORDER BY r.slot_at DESC LIMIT %d OFFSET %d", reservationColumns, base, size, offset)
	var items []models.ReservationWithUser
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return items, total, nil
}

// Delete removes a reservation and reports whether a row was deleted.
func (r *ReservationRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reservation rows: %w", err)
	}
	return affected > 0, nil
}
