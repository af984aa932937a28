package models

import "time"

// DateLayout is the calendar date format used for slot dates.
const DateLayout = "2006-01-02"

// Reservation is a user's claim on a concrete slot. Rows are immutable; only deletion is allowed.
type Reservation struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Activity  string    `db:"activity" json:"activity"`
	SlotDate  string    `db:"slot_date" json:"date"`
	SlotTime  string    `db:"slot_time" json:"time"`
	SlotAt    time.Time `db:"slot_at" json:"slot_at"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReservationWithUser enriches a reservation with account details for admin views.
type ReservationWithUser struct {
	Reservation
	UserEmail     string `db:"user_email" json:"user_email"`
	UserFirstName string `db:"user_first_name" json:"user_first_name"`
	UserLastName  string `db:"user_last_name" json:"user_last_name"`
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	Activity string
	UserID   string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// SlotKey identifies a slot by activity, date and time.
type SlotKey struct {
	Activity string
	Date     string
	Time     string
}

// CreateReservationRequest is the payload accepted by the direct admission endpoint.
type CreateReservationRequest struct {
	Activity string `json:"activity" validate:"required,max=64"`
	Date     string `json:"date" validate:"required,isodate"`
	Time     string `json:"time" validate:"required,hhmm"`
}

// AdmissionRequest carries everything reservation admission needs.
// An empty UserID means the caller is not identified.
type AdmissionRequest struct {
	UserID     string `validate:"-"`
	Activity   string `validate:"required,max=64"`
	Date       string `validate:"required,isodate"`
	Time       string `validate:"required,hhmm"`
	OriginPath string `validate:"-"`
	IP         string `validate:"-"`
	UserAgent  string `validate:"-"`
}
