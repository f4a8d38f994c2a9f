package models

import (
	"fmt"
	"strings"
	"time"
)

// Recurrence describes a weekly repetition. Exactly one of Count or Until
// terminates it.
type Recurrence struct {
	Weekdays []time.Weekday
	Count    int
	Until    *time.Time
}

var weekdayLetters = map[rune]time.Weekday{
	'M': time.Monday,
	'T': time.Tuesday,
	'W': time.Wednesday,
	'R': time.Thursday,
	'F': time.Friday,
	'S': time.Saturday,
	'U': time.Sunday,
}

// ParseWeekdays parses letter codes such as "MWF" (R is Thursday, U is
// Sunday). Repeated letters are collapsed.
func ParseWeekdays(v string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, 7)
	var out []time.Weekday
	for _, r := range strings.ToUpper(strings.TrimSpace(v)) {
		day, ok := weekdayLetters[r]
		if !ok {
			return nil, fmt.Errorf("unknown weekday code %q", r)
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	return out, nil
}

// Includes reports whether day is part of the weekday set.
func (r Recurrence) Includes(day time.Weekday) bool {
	for _, d := range r.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
