package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

var rruleWeekdays = [7]rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Expander turns weekly schedule templates into dated slots.
type Expander struct {
	loc *time.Location
}

// NewExpander builds an expander evaluating dates in loc.
func NewExpander(loc *time.Location) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	return &Expander{loc: loc}
}

// Location returns the timezone dates are evaluated in.
func (e *Expander) Location() *time.Location {
	return e.loc
}

// Expand returns exactly days consecutive day groups starting at today. Templates of
// other activities are ignored; slots matching a booked key are marked unavailable.
func (e *Expander) Expand(activity string, today time.Time, days int, templates []models.ScheduleTemplate, booked []models.SlotKey) ([]models.DaySchedule, error) {
	if days < 1 {
		return nil, fmt.Errorf("days must be at least 1, got %d", days)
	}
	activity = models.NormalizeActivity(activity)

	local := today.In(e.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.loc)
	end := start.AddDate(0, 0, days)

	groups := make([]models.DaySchedule, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := day.Format(models.DateLayout)
		groups[i] = models.DaySchedule{
			Date:    key,
			Weekday: models.WeekdayOf(day),
			Label:   models.FrenchDateLabel(day),
			Slots:   []models.SlotView{},
		}
		index[key] = i
	}

	taken := make(map[models.SlotKey]struct{}, len(booked))
	for _, b := range booked {
		taken[models.SlotKey{Activity: models.NormalizeActivity(b.Activity), Date: b.Date, Time: b.Time}] = struct{}{}
	}

	for _, tpl := range templates {
		if models.NormalizeActivity(tpl.Activity) != activity || !tpl.Weekday.Valid() {
			continue
		}
		hour, minute, err := models.ParseClock(tpl.StartTime)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
		}
		clock := fmt.Sprintf("%02d:%02d", hour, minute)

		rule, err := rrule.NewRRule(rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   start,
			Byweekday: []rrule.Weekday{rruleWeekdays[tpl.Weekday]},
			Byhour:    []int{hour},
			Byminute:  []int{minute},
			Bysecond:  []int{0},
		})
		if err != nil {
			return nil, fmt.Errorf("template %s recurrence: %w", tpl.ID, err)
		}

		for _, occ := range rule.Between(start, end, true) {
			date := occ.In(e.loc).Format(models.DateLayout)
			i, ok := index[date]
			if !ok {
				continue
			}
			_, isBooked := taken[models.SlotKey{Activity: activity, Date: date, Time: clock}]
			groups[i].Slots = append(groups[i].Slots, models.SlotView{
				Date:      date,
				Time:      clock,
				Location:  tpl.Location,
				Capacity:  tpl.Capacity,
				Available: tpl.Capacity > 0 && !isBooked,
			})
		}
	}

	for i := range groups {
		slots := groups[i].Slots
		sort.SliceStable(slots, func(a, b int) bool {
			if slots[a].Time != slots[b].Time {
				return slots[a].Time < slots[b].Time
			}
			return slots[a].Location < slots[b].Location
		})
	}
	return groups, nil
}
