package models

import "time"

// SlotView is a derived, non persisted slot with its availability.
type SlotView struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Location  string `json:"location"`
	Capacity  int    `json:"capacity"`
	Available bool   `json:"available"`
}

// DaySchedule groups the slots of one calendar day.
type DaySchedule struct {
	Date    string     `json:"date"`
	Weekday Weekday    `json:"weekday"`
	Label   string     `json:"label"`
	Slots   []SlotView `json:"slots"`
}

// HasAvailable reports whether at least one slot of the day can be picked.
func (d DaySchedule) HasAvailable() bool {
	for _, s := range d.Slots {
		if s.Available {
			return true
		}
	}
	return false
}

// Slot returns the slot at the given time, if any.
func (d DaySchedule) Slot(at string) (SlotView, bool) {
	for _, s := range d.Slots {
		if s.Time == at {
			return s, true
		}
	}
	return SlotView{}, false
}

// Availability is the expanded schedule of an activity over a horizon.
// Days depends only on templates, reservations and the current date;
// GeneratedAt changes on every computation.
type Availability struct {
	Activity string        `json:"activity"`
	From     string        `json:"from"`
	Days     []DaySchedule `json:"days"`
	// GeneratedAt is informational and not part of the comparable result.
	GeneratedAt time.Time `json:"generated_at"`
}

// Day returns the day group for date.
func (a *Availability) Day(date string) (DaySchedule, bool) {
	if a == nil {
		return DaySchedule{}, false
	}
	for _, d := range a.Days {
		if d.Date == date {
			return d, true
		}
	}
	return DaySchedule{}, false
}
