package service

import (
	"time"

	"github.com/noah-isme/aquacentre-api/internal/models"
	appErrors "github.com/noah-isme/aquacentre-api/pkg/errors"
)

// User facing messages of the booking flow.
const (
	MessageSelectionIncomplete = "Veuillez sélectionner une activité et une date"
	MessageGenericFailure      = "Une erreur est survenue"
	MessageSubmitPending       = "Votre réservation est en cours de traitement"
)

// DefaultSubmitHold bounds how long a SUBMITTING selection blocks new confirmations.
const DefaultSubmitHold = 30 * time.Second

// NewSelection returns the initial selection of a user for an activity.
func NewSelection(userID, activity string, now time.Time) *models.Selection {
	return &models.Selection{
		UserID:    userID,
		Activity:  models.NormalizeActivity(activity),
		State:     models.SelectionNoDate,
		UpdatedAt: now.UTC(),
	}
}

// PickDay selects date when the availability offers at least one slot on it.
// The previous time is always cleared. It reports whether the selection changed.
func PickDay(sel *models.Selection, avail *models.Availability, date string, now time.Time) bool {
	day, ok := avail.Day(date)
	if !ok || len(day.Slots) == 0 {
		return false
	}
	sel.Date = date
	sel.Time = ""
	sel.State = models.SelectionDate
	clearOutcome(sel)
	sel.UpdatedAt = now.UTC()
	return true
}

// PickTime selects an available time within the selected day.
func PickTime(sel *models.Selection, avail *models.Availability, at string, now time.Time) bool {
	if sel.Date == "" {
		return false
	}
	day, ok := avail.Day(sel.Date)
	if !ok {
		return false
	}
	slot, ok := day.Slot(at)
	if !ok || !slot.Available {
		return false
	}
	sel.Time = at
	sel.State = models.SelectionTime
	clearOutcome(sel)
	sel.UpdatedAt = now.UTC()
	return true
}

// BeginSubmit moves a complete selection to SUBMITTING. An incomplete selection
// gets the validation message instead and false is returned.
func BeginSubmit(sel *models.Selection, now time.Time) bool {
	sel.UpdatedAt = now.UTC()
	if sel.Activity == "" || sel.Date == "" || sel.Time == "" {
		sel.Error = MessageSelectionIncomplete
		sel.ErrorCode = appErrors.ErrValidation.Code
		return false
	}
	sel.State = models.SelectionSubmitting
	clearOutcome(sel)
	return true
}

// SubmitInFlight reports whether sel is SUBMITTING and younger than hold.
// Older submissions are treated as abandoned.
func SubmitInFlight(sel *models.Selection, now time.Time, hold time.Duration) bool {
	return sel.State == models.SelectionSubmitting && now.Sub(sel.UpdatedAt) < hold
}

// CompleteSubmit records a successful reservation and clears the choice.
func CompleteSubmit(sel *models.Selection, reservationID string, now time.Time) {
	sel.State = models.SelectionDone
	sel.Date = ""
	sel.Time = ""
	clearOutcome(sel)
	sel.ReservationID = reservationID
	sel.UpdatedAt = now.UTC()
}

// FailSubmit keeps the choice and exposes the failure to the user.
func FailSubmit(sel *models.Selection, err error, now time.Time) {
	sel.State = models.SelectionError
	sel.Error, sel.ErrorCode = userMessage(err)
	sel.UpdatedAt = now.UTC()
}

func clearOutcome(sel *models.Selection) {
	sel.Error = ""
	sel.ErrorCode = ""
	sel.ReservationID = ""
}

// userMessage maps domain errors to their display text; anything unexpected gets the generic one.
func userMessage(err error) (string, string) {
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrSlotTaken.Code, appErrors.ErrSlotPast.Code, appErrors.ErrSlotUnknown.Code, appErrors.ErrValidation.Code, appErrors.ErrAuthRequired.Code:
		return appErr.Message, appErr.Code
	default:
		return MessageGenericFailure, appErr.Code
	}
}
