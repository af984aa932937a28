package models

import "time"

// ScheduleTemplate is a recurring weekly definition of when an activity runs.
type ScheduleTemplate struct {
	ID        string    `db:"id" json:"id" yaml:"-"`
	Activity  string    `db:"activity" json:"activity" yaml:"activity"`
	Weekday   Weekday   `db:"weekday" json:"weekday" yaml:"weekday"`
	StartTime string    `db:"start_time" json:"time" yaml:"time"`
	Location  string    `db:"location" json:"location" yaml:"location"`
	Capacity  int       `db:"capacity" json:"capacity" yaml:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at" yaml:"-"`
}

// ScheduleTemplateFilter describes query params for listing templates.
type ScheduleTemplateFilter struct {
	Activity string
	Weekday  *Weekday
	Location string
	Page     int
	PageSize int
}

// UpsertScheduleTemplateRequest is the admin payload for creating or replacing a template.
type UpsertScheduleTemplateRequest struct {
	Activity string  `json:"activity" validate:"required,max=64"`
	Weekday  Weekday `json:"weekday" validate:"min=0,max=6"`
	Time     string  `json:"time" validate:"required,hhmm"`
	Location string  `json:"location" validate:"required,max=120"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=0"`
}

// ScheduleSeed is the document shape of the YAML seed file.
type ScheduleSeed struct {
	Templates []ScheduleTemplate `yaml:"templates"`
}
