package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
	"github.com/noah-isme/aquacentre-api/internal/repository"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
	"github.com/noah-isme/aquacentre-api/pkg/realtime"
)

type mockScheduleRepo struct {
	rows      map[string]*models.ScheduleTemplate
	seeded    []models.ScheduleTemplate
	createErr error
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{rows: map[string]*models.ScheduleTemplate{}}
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleTemplateFilter) ([]models.ScheduleTemplate, int, error) {
	var out []models.ScheduleTemplate
	for _, tpl := range m.rows {
		if filter.Activity == "" || tpl.Activity == filter.Activity {
			out = append(out, *tpl)
		}
	}
	return out, len(out), nil
}

func (m *mockScheduleRepo) Activities(ctx context.Context) ([]string, error) {
	return []string{"AQUAGYM"}, nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.ScheduleTemplate, error) {
	tpl, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *tpl
	return &copied, nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, tpl *models.ScheduleTemplate) error {
	if m.createErr != nil {
		return m.createErr
	}
	tpl.ID = "tpl-1"
	m.rows[tpl.ID] = tpl
	return nil
}

func (m *mockScheduleRepo) SeedMany(ctx context.Context, templates []models.ScheduleTemplate) (int, error) {
	m.seeded = append(m.seeded, templates...)
	return len(templates), nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, tpl *models.ScheduleTemplate) error {
	m.rows[tpl.ID] = tpl
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

func TestScheduleCreateNormalisesAndPublishes(t *testing.T) {
	repo := newMockScheduleRepo()
	audit := &mockAuditWriter{}
	events := &mockPublisher{}
	svc := NewScheduleService(repo, nil, audit, events, nil, nil)

	tpl, err := svc.Create(context.Background(), "admin", models.UpsertScheduleTemplateRequest{
		Activity: "aquagym",
		Weekday:  models.Monday,
		Time:     "09:15",
		Location: "CenterA",
	})
	require.NoError(t, err)

	assert.Equal(t, "AQUAGYM", tpl.Activity)
	assert.Equal(t, 1, tpl.Capacity)
	require.Len(t, events.events, 1)
	assert.Equal(t, realtime.TableSchedules, events.events[0].Table)
	assert.Equal(t, realtime.EventInsert, events.events[0].Type)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionScheduleCreate, audit.logs[0].Action)
}

func TestScheduleCreateMapsDuplicate(t *testing.T) {
	repo := newMockScheduleRepo()
	repo.createErr = repository.ErrDuplicate
	svc := NewScheduleService(repo, nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), "admin", models.UpsertScheduleTemplateRequest{Activity: "AQUAGYM", Time: "09:15", Location: "CenterA"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(context.Background(), "admin", models.UpsertScheduleTemplateRequest{Activity: "AQUAGYM", Time: "9h15", Location: "CenterA"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestScheduleUpdateAndDelete(t *testing.T) {
	repo := newMockScheduleRepo()
	repo.rows["tpl-1"] = &models.ScheduleTemplate{ID: "tpl-1", Activity: "AQUAGYM", Weekday: models.Monday, StartTime: "09:15", Location: "CenterA", Capacity: 1}
	events := &mockPublisher{}
	svc := NewScheduleService(repo, nil, nil, events, nil, nil)

	zero := 0
	updated, err := svc.Update(context.Background(), "admin", "tpl-1", models.UpsertScheduleTemplateRequest{Activity: "AQUAGYM", Weekday: models.Tuesday, Time: "10:00", Location: "CenterA", Capacity: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Capacity)
	assert.Equal(t, models.Tuesday, repo.rows["tpl-1"].Weekday)

	require.NoError(t, svc.Delete(context.Background(), "admin", "tpl-1"))
	assert.Empty(t, repo.rows)
	require.Len(t, events.events, 2)
	assert.Equal(t, realtime.EventDelete, events.events[1].Type)

	err = svc.Delete(context.Background(), "admin", "tpl-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestSeedFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "schedules.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`templates:
  - activity: aquagym
    weekday: lundi
    time: "9:15"
    location: CenterA
    capacity: 1
  - activity: AQUABIKE
    weekday: 3
    time: "18:30"
    location: CenterB
    capacity: 1
`), 0o600))

	repo := newMockScheduleRepo()
	svc := NewScheduleService(repo, nil, nil, nil, nil, nil)

	inserted, err := svc.SeedFromFile(context.Background(), file)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.Len(t, repo.seeded, 2)
	assert.Equal(t, "AQUAGYM", repo.seeded[0].Activity)
	assert.Equal(t, "09:15", repo.seeded[0].StartTime)
	assert.Equal(t, models.Monday, repo.seeded[0].Weekday)
	assert.Equal(t, models.Wednesday, repo.seeded[1].Weekday)

	_, err = svc.SeedFromFile(context.Background(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
