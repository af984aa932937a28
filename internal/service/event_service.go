package service

import (
	"context"
	"time"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

type horizonComputer interface {
	ComputeFrom(ctx context.Context, activity string, from time.Time, days int) (*models.Availability, error)
	Today() time.Time
}

// EventService lists upcoming event dates over a horizon of whole months.
type EventService struct {
	availability horizonComputer
	activity     string
	months       int
	maxDays      int
}

// NewEventService builds the event listing. maxDays caps the horizon at the
// availability limit; zero leaves it uncapped.
func NewEventService(availability horizonComputer, activity string, months, maxDays int) *EventService {
	if activity == "" {
		activity = "EVENEMENTS"
	}
	if months <= 0 {
		months = 3
	}
	return &EventService{availability: availability, activity: models.NormalizeActivity(activity), months: months, maxDays: maxDays}
}

// Upcoming returns the days in the horizon that have at least one event slot.
func (s *EventService) Upcoming(ctx context.Context) (*models.Availability, error) {
	today := s.availability.Today()
	days := int(today.AddDate(0, s.months, 0).Sub(today).Hours()/24 + 0.5)
	if s.maxDays > 0 && days > s.maxDays {
		days = s.maxDays
	}

	all, err := s.availability.ComputeFrom(ctx, s.activity, today, days)
	if err != nil {
		return nil, err
	}
	listed := make([]models.DaySchedule, 0, len(all.Days))
	for _, d := range all.Days {
		if len(d.Slots) > 0 {
			listed = append(listed, d)
		}
	}
	all.Days = listed
	return all, nil
}
