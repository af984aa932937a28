package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

const scheduleColumns = `id, activity, weekday, start_time, location, capacity, created_at, updated_at`

// ScheduleTemplateRepository persists recurring weekly templates.
type ScheduleTemplateRepository struct {
	db *sqlx.DB
}

// NewScheduleTemplateRepository creates a new template repository.
func NewScheduleTemplateRepository(db *sqlx.DB) *ScheduleTemplateRepository {
	return &ScheduleTemplateRepository{db: db}
}

// ListByActivity returns every template of an activity ordered by weekday and time.
func (r *ScheduleTemplateRepository) ListByActivity(ctx context.Context, activity string) ([]models.ScheduleTemplate, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE activity = $1 ORDER BY weekday ASC, start_time ASC, location ASC`
	var templates []models.ScheduleTemplate
	if err := r.db.SelectContext(ctx, &templates, query, activity); err != nil {
		return nil, fmt.Errorf("list schedules by activity: %w", err)
	}
	return templates, nil
}

// Activities returns the distinct activity keys having at least one template.
func (r *ScheduleTemplateRepository) Activities(ctx context.Context) ([]string, error) {
	var activities []string
	if err := r.db.SelectContext(ctx, &activities, `SELECT DISTINCT activity FROM schedules ORDER BY activity ASC`); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// List returns templates with optional filtering and pagination.
func (r *ScheduleTemplateRepository) List(ctx context.Context, filter models.ScheduleTemplateFilter) ([]models.ScheduleTemplate, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Activity != "" {
		conditions = append(conditions, fmt.Sprintf("activity = $%d", len(args)+1))
		args = append(args, filter.Activity)
	}
	if filter.Weekday != nil {
		conditions = append(conditions, fmt.Sprintf("weekday = $%d", len(args)+1))
		args = append(args, int(*filter.Weekday))
	}
	if filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location = $%d", len(args)+1))
		args = append(args, filter.Location)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY activity ASC, weekday ASC, start_time ASC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var templates []models.ScheduleTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return templates, total, nil
}

// FindByID loads a template by id.
func (r *ScheduleTemplateRepository) FindByID(ctx context.Context, id string) (*models.ScheduleTemplate, error) {
	var tpl models.ScheduleTemplate
	if err := r.db.GetContext(ctx, &tpl, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Create stores a new template.
func (r *ScheduleTemplateRepository) Create(ctx context.Context, tpl *models.ScheduleTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	const query = `INSERT INTO schedules (id, activity, weekday, start_time, location, capacity, created_at, updated_at) VALUES (:id, :activity, :weekday, :start_time, :location, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return wrapInsert("create schedule", err)
	}
	return nil
}

// SeedMany inserts templates inside one transaction, skipping rows that already exist.
func (r *ScheduleTemplateRepository) SeedMany(ctx context.Context, templates []models.ScheduleTemplate) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed schedules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inserted := 0
	now := time.Now().UTC()
	for i := range templates {
		tpl := templates[i]
		if tpl.ID == "" {
			tpl.ID = uuid.NewString()
		}
		tpl.CreatedAt, tpl.UpdatedAt = now, now

		var res sql.Result
		res, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO schedules (id, activity, weekday, start_time, location, capacity, created_at, updated_at) VALUES (:id, :activity, :weekday, :start_time, :location, :capacity, :created_at, :updated_at) ON CONFLICT ON CONSTRAINT schedules_activity_weekday_time_location_key DO NOTHING`, &tpl)
		if err != nil {
			return 0, fmt.Errorf("seed schedule: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed schedules: %w", err)
	}
	return inserted, nil
}

// Update modifies a template.
func (r *ScheduleTemplateRepository) Update(ctx context.Context, tpl *models.ScheduleTemplate) error {
	tpl.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET activity = :activity, weekday = :weekday, start_time = :start_time, location = :location, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return wrapInsert("update schedule", err)
	}
	return nil
}

// Delete removes a template by id.
func (r *ScheduleTemplateRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
