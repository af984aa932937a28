package models

import "time"

// PriceOption is a purchasable offer; its ID is the checkout price identifier.
type PriceOption struct {
	ID          string    `db:"id" json:"id"`
	Activity    string    `db:"activity" json:"activity"`
	Label       string    `db:"label" json:"label"`
	Description string    `db:"description" json:"description"`
	Amount      int64     `db:"amount" json:"amount"`
	Currency    string    `db:"currency" json:"currency"`
	Sessions    int       `db:"sessions" json:"sessions"`
	Active      bool      `db:"active" json:"active"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// UpsertPriceRequest is the admin payload for pricing rows. Amount is in minor units.
type UpsertPriceRequest struct {
	Activity    string `json:"activity" validate:"required,max=64"`
	Label       string `json:"label" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
	Amount      int64  `json:"amount" validate:"min=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Sessions    int    `json:"sessions" validate:"min=1"`
	Active      *bool  `json:"active"`
	SortOrder   int    `json:"sort_order"`
}
