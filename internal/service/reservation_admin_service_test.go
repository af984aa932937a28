package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

type mockReservationLister struct {
	rows    []models.ReservationWithUser
	filters []models.ReservationFilter
}

func (m *mockReservationLister) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationWithUser, int, error) {
	m.filters = append(m.filters, filter)
	return m.rows, len(m.rows), nil
}

type mockCanceller struct {
	cancelled []string
}

func (m *mockCanceller) Cancel(ctx context.Context, id, actorID string) error {
	m.cancelled = append(m.cancelled, id)
	return nil
}

func sampleAdminRows() []models.ReservationWithUser {
	return []models.ReservationWithUser{{
		Reservation: models.Reservation{
			ID:        "r1",
			Activity:  "AQUAGYM",
			SlotDate:  "2026-03-02",
			SlotTime:  "09:15",
			Location:  "CenterA",
			CreatedAt: time.Date(2026, 2, 27, 18, 30, 0, 0, time.UTC),
		},
		UserEmail:     "claire@example.com",
		UserFirstName: "Claire",
		UserLastName:  "Martin",
	}}
}

func TestReservationAdminListNormalisesFilter(t *testing.T) {
	lister := &mockReservationLister{rows: sampleAdminRows()}
	svc := NewReservationAdminService(lister, &mockCanceller{}, nil, nil)

	rows, page, err := svc.List(context.Background(), models.ReservationFilter{Activity: "aquagym"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "AQUAGYM", lister.filters[0].Activity)
	assert.Equal(t, 1, lister.filters[0].Page)
	assert.Equal(t, 20, lister.filters[0].PageSize)
}

func TestReservationAdminExport(t *testing.T) {
	lister := &mockReservationLister{rows: sampleAdminRows()}
	svc := NewReservationAdminService(lister, &mockCanceller{}, nil, nil)

	out, err := svc.Export(context.Background(), models.ReservationFilter{Page: 3, PageSize: 5})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id;activity;date;time;location;email;first_name;last_name;created_at", lines[0])
	assert.Equal(t, "r1;AQUAGYM;2026-03-02;09:15;CenterA;claire@example.com;Claire;Martin;2026-02-27 18:30:00", lines[1])
	assert.Equal(t, 1, lister.filters[0].Page)
	assert.Equal(t, exportPageSize, lister.filters[0].PageSize)
}

func TestReservationAdminDeleteDelegatesToAdmission(t *testing.T) {
	canceller := &mockCanceller{}
	svc := NewReservationAdminService(&mockReservationLister{}, canceller, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "r1", "admin"))
	assert.Equal(t, []string{"r1"}, canceller.cancelled)
}

func TestEventServiceListsOnlyEventDays(t *testing.T) {
	templates := &mockTemplateReader{templates: []models.ScheduleTemplate{
		{ID: "e1", Activity: "EVENEMENTS", Weekday: models.Saturday, StartTime: "20:00", Location: "CenterB", Capacity: 1},
	}}
	store := newMockReservationStore()
	store.rows[models.SlotKey{Activity: "EVENEMENTS", Date: "2026-03-07", Time: "20:00"}] = &models.Reservation{ID: "x"}

	avail := NewAvailabilityService(templates, &mockBookedReader{admission: store}, NewExpander(time.UTC), nil, nil, nil, AvailabilityConfig{DefaultDays: 7, MaxDays: 120})
	avail.now = func() time.Time { return monday }

	upcoming, err := NewEventService(avail, "evenements", 3, 120).Upcoming(context.Background())
	require.NoError(t, err)

	require.Len(t, upcoming.Days, 13)
	assert.Equal(t, "2026-03-07", upcoming.Days[0].Date)
	assert.False(t, upcoming.Days[0].Slots[0].Available)
	assert.True(t, upcoming.Days[1].Slots[0].Available)
	assert.Equal(t, "2026-05-30", upcoming.Days[12].Date)
	assert.Equal(t, "2026-03-02", upcoming.From)
}

func TestEventServiceClampsHorizonToMaxDays(t *testing.T) {
	templates := &mockTemplateReader{templates: []models.ScheduleTemplate{
		{ID: "e1", Activity: "EVENEMENTS", Weekday: models.Saturday, StartTime: "20:00", Location: "CenterB", Capacity: 1},
	}}
	avail := NewAvailabilityService(templates, &mockBookedReader{admission: newMockReservationStore()}, NewExpander(time.UTC), nil, nil, nil, AvailabilityConfig{DefaultDays: 7, MaxDays: 120})
	avail.now = func() time.Time { return monday }

	_, err := avail.ComputeFrom(context.Background(), "EVENEMENTS", monday, 153)
	require.Error(t, err)

	upcoming, err := NewEventService(avail, "evenements", 5, 120).Upcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, upcoming.Days, 17)
	assert.Equal(t, "2026-03-07", upcoming.Days[0].Date)
	assert.Equal(t, "2026-06-27", upcoming.Days[16].Date)
}
