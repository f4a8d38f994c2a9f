package models

import "time"

// Calendar describes a registered calendar without its events.
type Calendar struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CalendarProperty names an editable calendar attribute.
type CalendarProperty string

const (
	CalendarPropertyName     CalendarProperty = "name"
	CalendarPropertyTimezone CalendarProperty = "timezone"
)
