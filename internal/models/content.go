package models

import "time"

// SiteSettings holds the single row of homepage toggles edited by administrators.
type SiteSettings struct {
	FloatingBubbleActive bool      `db:"floating_bubble_active" json:"floating_bubble_active"`
	FloatingBubbleText   string    `db:"floating_bubble_text" json:"floating_bubble_text" validate:"max=280"`
	MardiChillText       string    `db:"mardi_chill_text" json:"mardi_chill_text" validate:"max=120"`
	MardiChillSubtitle   string    `db:"mardi_chill_subtitle" json:"mardi_chill_subtitle" validate:"max=200"`
	MardiChillSchedule   string    `db:"mardi_chill_schedule" json:"mardi_chill_schedule" validate:"max=120"`
	MardiChillColor      string    `db:"mardi_chill_color" json:"mardi_chill_color" validate:"omitempty,oneof=blue purple green orange pink"`
	MardiChillIcon       string    `db:"mardi_chill_icon" json:"mardi_chill_icon" validate:"max=32"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// NewsletterSubscription is one subscribed email address.
type NewsletterSubscription struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SubscribeRequest subscribes an email to the newsletter.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// MessageKind distinguishes contact messages from event quote requests.
type MessageKind string

const (
	MessageContact    MessageKind = "contact"
	MessageEventQuote MessageKind = "event_quote"
)

// Message is an inbound visitor message.
type Message struct {
	ID        string      `db:"id" json:"id"`
	Kind      MessageKind `db:"kind" json:"kind"`
	Name      string      `db:"name" json:"name"`
	Email     string      `db:"email" json:"email"`
	Phone     string      `db:"phone" json:"phone"`
	Content   string      `db:"content" json:"content"`
	EventDate string      `db:"event_date" json:"event_date,omitempty"`
	Guests    int         `db:"guests" json:"guests,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// ContactRequest is the public contact form.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Message string `json:"message" validate:"required,max=5000"`
}

// EventQuoteRequest asks for a private event quote.
type EventQuoteRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Date    string `json:"date" validate:"required,isodate"`
	Guests  int    `json:"guests" validate:"required,min=1,max=500"`
	Message string `json:"message" validate:"max=5000"`
}
