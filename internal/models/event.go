package models

import (
	"fmt"
	"strings"
	"time"
)

// Business-hours block used for all-day events.
const (
	AllDayStartHour = 8
	AllDayEndHour   = 17
)

// Location enumerates where an event takes place.
type Location string

const (
	LocationNone     Location = ""
	LocationPhysical Location = "PHYSICAL"
	LocationOnline   Location = "ONLINE"
)

// Status enumerates event visibility.
type Status string

const (
	StatusNone    Status = ""
	StatusPublic  Status = "PUBLIC"
	StatusPrivate Status = "PRIVATE"
)

// Event is one stored occurrence. Start and End are wall-clock values in the
// owning calendar's timezone; see Wall.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Subject     string    `db:"subject" json:"subject"`
	Start       time.Time `db:"start_at" json:"start"`
	End         time.Time `db:"end_at" json:"end"`
	AllDay      bool      `db:"all_day" json:"all_day"`
	Description string    `db:"description" json:"description,omitempty"`
	Location    Location  `db:"location" json:"location,omitempty"`
	Status      Status    `db:"status" json:"status,omitempty"`
	SeriesID    *int64    `db:"series_id" json:"series_id,omitempty"`
}

// EventKey is the identity used for duplicate rejection and lookup. It only
// covers subject and start; two events with the same key are the same event
// even when their other fields differ.
type EventKey struct {
	Subject string
	Start   int64
}

// NewEventKey builds the lookup key for subject at start.
func NewEventKey(subject string, start time.Time) EventKey {
	return EventKey{Subject: subject, Start: Wall(start).Unix()}
}

// Key returns the identity key of the event.
func (e Event) Key() EventKey {
	return NewEventKey(e.Subject, e.Start)
}

// InSeries reports whether the event belongs to a series.
func (e Event) InSeries() bool {
	return e.SeriesID != nil
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Covers reports whether t falls within [Start, End].
func (e Event) Covers(t time.Time) bool {
	t = Wall(t)
	return !t.Before(e.Start) && !t.After(e.End)
}

// Clone returns a copy that does not share the series pointer.
func (e Event) Clone() Event {
	if e.SeriesID != nil {
		id := *e.SeriesID
		e.SeriesID = &id
	}
	return e
}

// String is used in log lines and error messages.
func (e Event) String() string {
	return fmt.Sprintf("%q@%s", e.Subject, e.Start.Format("2006-01-02T15:04"))
}

// Wall strips the location from t, keeping its clock fields. Stored times
// are always wall-clock values in UTC so that comparisons ignore zones.
func Wall(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// DateOf truncates t to midnight of its wall-clock day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same wall-clock day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// AllDayBounds returns the business-hours block for date.
func AllDayBounds(date time.Time) (time.Time, time.Time) {
	day := DateOf(date)
	return day.Add(AllDayStartHour * time.Hour), day.Add(AllDayEndHour * time.Hour)
}

// ParseLocation parses a location name case-insensitively.
func ParseLocation(v string) (Location, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case string(LocationPhysical):
		return LocationPhysical, nil
	case string(LocationOnline):
		return LocationOnline, nil
	}
	return LocationNone, fmt.Errorf("unknown location %q", v)
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(v string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case string(StatusPublic):
		return StatusPublic, nil
	case string(StatusPrivate):
		return StatusPrivate, nil
	}
	return StatusNone, fmt.Errorf("unknown status %q", v)
}

// Timestamp layouts accepted from callers.
var timestampLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// ParseTimestamp parses a wall-clock date-time.
func ParseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}

// ParseDate parses a yyyy-mm-dd date.
func ParseDate(v string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(v), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	return t, nil
}
