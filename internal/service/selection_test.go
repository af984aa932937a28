package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
)

func sampleAvailability() *models.Availability {
	return &models.Availability{
		Activity: "AQUAGYM",
		From:     "2026-03-02",
		Days: []models.DaySchedule{
			{Date: "2026-03-02", Slots: []models.SlotView{
				{Date: "2026-03-02", Time: "09:15", Location: "CenterA", Capacity: 1, Available: true},
				{Date: "2026-03-02", Time: "18:00", Location: "CenterA", Capacity: 1, Available: false},
			}},
			{Date: "2026-03-03", Slots: []models.SlotView{}},
			{Date: "2026-03-04", Slots: []models.SlotView{
				{Date: "2026-03-04", Time: "10:00", Location: "CenterB", Capacity: 1, Available: false},
			}},
		},
	}
}

func TestPickDayResetsTime(t *testing.T) {
	sel := NewSelection("u1", "aquagym", monday)
	avail := sampleAvailability()

	require.True(t, PickDay(sel, avail, "2026-03-02", monday))
	require.True(t, PickTime(sel, avail, "09:15", monday))
	assert.Equal(t, models.SelectionTime, sel.State)

	require.True(t, PickDay(sel, avail, "2026-03-04", monday))
	assert.Equal(t, "2026-03-04", sel.Date)
	assert.Empty(t, sel.Time)
	assert.Equal(t, models.SelectionDate, sel.State)
}

func TestPickDayIgnoresEmptyOrUnknownDays(t *testing.T) {
	sel := NewSelection("u1", "AQUAGYM", monday)
	avail := sampleAvailability()

	assert.False(t, PickDay(sel, avail, "2026-03-03", monday))
	assert.False(t, PickDay(sel, avail, "2026-04-01", monday))
	assert.Equal(t, models.SelectionNoDate, sel.State)
	assert.Empty(t, sel.Date)
}

func TestPickDayAllowsFullyBookedDay(t *testing.T) {
	sel := NewSelection("u1", "AQUAGYM", monday)
	assert.True(t, PickDay(sel, sampleAvailability(), "2026-03-04", monday))
}

func TestPickTimeRequiresDayAndAvailableSlot(t *testing.T) {
	sel := NewSelection("u1", "AQUAGYM", monday)
	avail := sampleAvailability()

	assert.False(t, PickTime(sel, avail, "09:15", monday), "no day selected")

	require.True(t, PickDay(sel, avail, "2026-03-02", monday))
	assert.False(t, PickTime(sel, avail, "18:00", monday), "booked slot")
	assert.False(t, PickTime(sel, avail, "07:00", monday), "unknown slot")
	assert.Empty(t, sel.Time)
	assert.Equal(t, models.SelectionDate, sel.State)
}

func TestBeginSubmitRequiresCompleteSelection(t *testing.T) {
	sel := NewSelection("u1", "AQUAGYM", monday)
	sel.Date = "2026-03-02"

	assert.False(t, BeginSubmit(sel, monday))
	assert.Equal(t, MessageSelectionIncomplete, sel.Error)
	assert.NotEqual(t, models.SelectionSubmitting, sel.State)
}

func TestSubmitOutcomes(t *testing.T) {
	avail := sampleAvailability()

	ok := NewSelection("u1", "AQUAGYM", monday)
	PickDay(ok, avail, "2026-03-02", monday)
	PickTime(ok, avail, "09:15", monday)
	require.True(t, BeginSubmit(ok, monday))
	CompleteSubmit(ok, "res-1", monday)
	assert.Equal(t, models.SelectionDone, ok.State)
	assert.Empty(t, ok.Date)
	assert.Empty(t, ok.Time)
	assert.Equal(t, "res-1", ok.ReservationID)

	failed := NewSelection("u1", "AQUAGYM", monday)
	PickDay(failed, avail, "2026-03-02", monday)
	PickTime(failed, avail, "09:15", monday)
	require.True(t, BeginSubmit(failed, monday))
	FailSubmit(failed, appErrors.Clone(appErrors.ErrSlotTaken, slotTakenMessage), monday)
	assert.Equal(t, models.SelectionError, failed.State)
	assert.Equal(t, "2026-03-02", failed.Date)
	assert.Equal(t, "09:15", failed.Time)
	assert.Equal(t, slotTakenMessage, failed.Error)
	assert.Equal(t, "SLOT_TAKEN", failed.ErrorCode)

	FailSubmit(failed, errors.New("connection reset"), monday)
	assert.Equal(t, MessageGenericFailure, failed.Error)
}

func TestMemorySelectionStoreExpires(t *testing.T) {
	store := NewMemorySelectionStore(time.Minute)
	now := monday
	store.now = func() time.Time { return now }
	ctx := context.Background()

	sel := NewSelection("u1", "AQUAGYM", now)
	sel.Date = "2026-03-02"
	require.NoError(t, store.Save(ctx, sel))

	loaded, err := store.Load(ctx, "u1", "aquagym")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "2026-03-02", loaded.Date)

	other, err := store.Load(ctx, "u2", "AQUAGYM")
	require.NoError(t, err)
	assert.Nil(t, other)

	now = now.Add(2 * time.Minute)
	expired, err := store.Load(ctx, "u1", "AQUAGYM")
	require.NoError(t, err)
	assert.Nil(t, expired)
}

type memoryCacheRepo struct {
	items map[string]interface{}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	v, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.Selection) = *v.(*models.Selection)
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.items[key] = value
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, key string) error {
	delete(m.items, key)
	return nil
}

func (m *memoryCacheRepo) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if _, ok := m.items[key]; ok {
		return false, nil
	}
	m.items[key] = value
	return true, nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

func TestCacheSelectionStoreRoundTrip(t *testing.T) {
	repo := &memoryCacheRepo{items: map[string]interface{}{}}
	store := NewCacheSelectionStore(repo, time.Minute)
	ctx := context.Background()

	missing, err := store.Load(ctx, "u1", "AQUAGYM")
	require.NoError(t, err)
	assert.Nil(t, missing)

	sel := NewSelection("u1", "AQUAGYM", monday)
	require.NoError(t, store.Save(ctx, sel))
	assert.Contains(t, repo.items, "selection:u1:AQUAGYM")

	require.NoError(t, store.Clear(ctx, "u1", "AQUAGYM"))
	assert.Empty(t, repo.items)
}

func TestCacheSelectionStoreClaimSubmitIsExclusive(t *testing.T) {
	repo := &memoryCacheRepo{items: map[string]interface{}{}}
	store := NewCacheSelectionStore(repo, time.Minute)
	ctx := context.Background()

	sel := NewSelection("u1", "AQUAGYM", monday)
	sel.Date, sel.Time = "2026-03-02", "09:15"
	require.True(t, BeginSubmit(sel, monday))

	ok, err := store.ClaimSubmit(ctx, sel, DefaultSubmitHold)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, repo.items, "selection-submit:u1:AQUAGYM")

	ok, err = store.ClaimSubmit(ctx, sel, DefaultSubmitHold)
	require.NoError(t, err)
	assert.False(t, ok)

	CompleteSubmit(sel, "r1", monday)
	require.NoError(t, store.Save(ctx, sel))
	assert.NotContains(t, repo.items, "selection-submit:u1:AQUAGYM")
}

func TestMemorySelectionStoreClaimSubmitReleasesStaleHold(t *testing.T) {
	store := NewMemorySelectionStore(time.Hour)
	ctx := context.Background()

	first := NewSelection("u1", "AQUAGYM", monday)
	first.Date, first.Time = "2026-03-02", "09:15"
	require.True(t, BeginSubmit(first, monday))
	ok, err := store.ClaimSubmit(ctx, first, DefaultSubmitHold)
	require.NoError(t, err)
	require.True(t, ok)

	second := *first
	second.UpdatedAt = monday.Add(time.Second)
	ok, err = store.ClaimSubmit(ctx, &second, DefaultSubmitHold)
	require.NoError(t, err)
	assert.False(t, ok)

	second.UpdatedAt = monday.Add(DefaultSubmitHold + time.Second)
	ok, err = store.ClaimSubmit(ctx, &second, DefaultSubmitHold)
	require.NoError(t, err)
	assert.True(t, ok)
}
