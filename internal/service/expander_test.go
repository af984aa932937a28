package service

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func aquagymMonday() []models.ScheduleTemplate {
	return []models.ScheduleTemplate{
		{ID: "t1", Activity: "AQUAGYM", Weekday: models.Monday, StartTime: "09:15", Location: "CenterA", Capacity: 1},
	}
}

func TestExpandReturnsExactlyRequestedDays(t *testing.T) {
	exp := NewExpander(time.UTC)

	for _, days := range []int{1, 7, 30} {
		groups, err := exp.Expand("AQUAGYM", monday, days, aquagymMonday(), nil)
		require.NoError(t, err)
		require.Len(t, groups, days)
		assert.Equal(t, "2026-03-02", groups[0].Date)
		for i, g := range groups {
			assert.Equal(t, monday.AddDate(0, 0, i).Format(models.DateLayout), g.Date)
			assert.NotNil(t, g.Slots)
		}
	}
}

func TestExpandMarksUnbookedSlotAvailable(t *testing.T) {
	groups, err := NewExpander(time.UTC).Expand("AQUAGYM", monday, 7, aquagymMonday(), nil)
	require.NoError(t, err)

	require.Len(t, groups[0].Slots, 1)
	slot := groups[0].Slots[0]
	assert.Equal(t, "09:15", slot.Time)
	assert.Equal(t, "CenterA", slot.Location)
	assert.True(t, slot.Available)
	assert.Equal(t, models.Monday, groups[0].Weekday)
	assert.Equal(t, "lundi 2 mars", groups[0].Label)
	for _, g := range groups[1:] {
		assert.Empty(t, g.Slots)
	}
}

func TestExpandKeepsBookedSlotAsUnavailable(t *testing.T) {
	booked := []models.SlotKey{{Activity: "AQUAGYM", Date: "2026-03-02", Time: "09:15"}}
	groups, err := NewExpander(time.UTC).Expand("aquagym", monday, 14, aquagymMonday(), booked)
	require.NoError(t, err)

	require.Len(t, groups[0].Slots, 1)
	assert.False(t, groups[0].Slots[0].Available)
	assert.False(t, groups[0].HasAvailable())

	require.Len(t, groups[7].Slots, 1)
	assert.True(t, groups[7].Slots[0].Available)
}

func TestExpandIgnoresBookingsOfOtherActivities(t *testing.T) {
	booked := []models.SlotKey{{Activity: "AQUABIKE", Date: "2026-03-02", Time: "09:15"}}
	groups, err := NewExpander(time.UTC).Expand("AQUAGYM", monday, 1, aquagymMonday(), booked)
	require.NoError(t, err)
	assert.True(t, groups[0].Slots[0].Available)
}

func TestExpandUnknownActivityYieldsEmptyDays(t *testing.T) {
	groups, err := NewExpander(time.UTC).Expand("PILATES", monday, 7, aquagymMonday(), nil)
	require.NoError(t, err)
	require.Len(t, groups, 7)
	for _, g := range groups {
		assert.Empty(t, g.Slots)
	}
}

func TestExpandRejectsNonPositiveDays(t *testing.T) {
	_, err := NewExpander(time.UTC).Expand("AQUAGYM", monday, 0, aquagymMonday(), nil)
	assert.Error(t, err)
}

func TestExpandSortsByTimeThenLocation(t *testing.T) {
	templates := []models.ScheduleTemplate{
		{ID: "a", Activity: "AQUABIKE", Weekday: models.Monday, StartTime: "18:00", Location: "CenterA", Capacity: 1},
		{ID: "b", Activity: "AQUABIKE", Weekday: models.Monday, StartTime: "9:30", Location: "CenterB", Capacity: 1},
		{ID: "c", Activity: "AQUABIKE", Weekday: models.Monday, StartTime: "09:30", Location: "CenterA", Capacity: 0},
	}
	groups, err := NewExpander(time.UTC).Expand("AQUABIKE", monday, 1, templates, nil)
	require.NoError(t, err)

	slots := groups[0].Slots
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"09:30", "09:30", "18:00"}, []string{slots[0].Time, slots[1].Time, slots[2].Time})
	assert.Equal(t, "CenterA", slots[0].Location)
	assert.False(t, slots[0].Available, "capacity 0 disables the slot")
	assert.Equal(t, "CenterB", slots[1].Location)
	assert.True(t, slots[1].Available)
}

func TestExpandIsIdempotent(t *testing.T) {
	exp := NewExpander(time.UTC)
	booked := []models.SlotKey{{Activity: "AQUAGYM", Date: "2026-03-09", Time: "09:15"}}

	first, err := exp.Expand("AQUAGYM", monday, 21, aquagymMonday(), booked)
	require.NoError(t, err)
	second, err := exp.Expand("AQUAGYM", monday, 21, aquagymMonday(), booked)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExpandKeepsWallClockAcrossDaylightSaving(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	start := time.Date(2026, 3, 23, 7, 0, 0, 0, paris)
	groups, err := NewExpander(paris).Expand("AQUAGYM", start, 15, aquagymMonday(), nil)
	require.NoError(t, err)

	var dates []string
	for _, g := range groups {
		for _, s := range g.Slots {
			assert.Equal(t, "09:15", s.Time)
			dates = append(dates, s.Date)
		}
	}
	assert.Equal(t, []string{"2026-03-23", "2026-03-30", "2026-04-06"}, dates)
}
