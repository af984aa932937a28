package models

import "time"

// SelectionState enumerates the booking flow states.
type SelectionState string

const (
	SelectionNoDate     SelectionState = "NO_DATE_SELECTED"
	SelectionDate       SelectionState = "DATE_SELECTED"
	SelectionTime       SelectionState = "TIME_SELECTED"
	SelectionSubmitting SelectionState = "SUBMITTING"
	SelectionDone       SelectionState = "DONE"
	SelectionError      SelectionState = "ERROR_SHOWN"
)

// Selection is the transient per-user booking choice for one activity.
type Selection struct {
	UserID        string         `json:"user_id"`
	Activity      string         `json:"activity"`
	State         SelectionState `json:"state"`
	Date          string         `json:"date,omitempty"`
	Time          string         `json:"time,omitempty"`
	Error         string         `json:"error,omitempty"`
	ErrorCode     string         `json:"error_code,omitempty"`
	ReservationID string         `json:"reservation_id,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// BookingView is the combined response of the booking page.
type BookingView struct {
	Availability *Availability `json:"availability"`
	Selection    *Selection    `json:"selection"`
}

// SelectDayRequest picks a day in the booking flow.
type SelectDayRequest struct {
	Date string `json:"date" validate:"required,isodate"`
}

// SelectTimeRequest picks a time within the selected day.
type SelectTimeRequest struct {
	Time string `json:"time" validate:"required,hhmm"`
}
