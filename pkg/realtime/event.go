package realtime

import "time"

// EventType is the kind of row change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Table names carried by change events.
const (
	TableReservations = "reservations"
	TableSchedules    = "schedules"
	TablePayments     = "payment_transactions"
	TableSettings     = "site_settings"
)

// Event describes a change to a stored row.
type Event struct {
	Table    string    `json:"table"`
	Type     EventType `json:"type"`
	UserID   string    `json:"user_id,omitempty"`
	Activity string    `json:"activity,omitempty"`
	RecordID string    `json:"record_id,omitempty"`
	At       time.Time `json:"at"`
	// Origin identifies the instance that produced the event.
	Origin string `json:"origin,omitempty"`
}

// Filter selects the events a subscriber receives. Empty fields match everything.
type Filter struct {
	Table  string
	UserID string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.Table != "" && f.Table != e.Table {
		return false
	}
	if f.UserID != "" && f.UserID != e.UserID {
		return false
	}
	return true
}
