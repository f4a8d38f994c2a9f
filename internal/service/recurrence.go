package service

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// ValidateRecurrence checks a weekly rule against the anchor start before
// anything is generated.
func ValidateRecurrence(anchor time.Time, rule models.Recurrence) error {
	if len(rule.Weekdays) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "recurrence needs at least one weekday")
	}
	for _, d := range rule.Weekdays {
		if _, ok := rruleWeekdays[d]; !ok {
			return appErrors.Clonef(appErrors.ErrValidation, "invalid weekday %d", int(d))
		}
	}
	switch {
	case rule.Count < 0:
		return appErrors.Clone(appErrors.ErrValidation, "recurrence count must be positive")
	case rule.Count > 0 && rule.Until != nil:
		return appErrors.Clone(appErrors.ErrValidation, "recurrence takes either a count or an until date, not both")
	case rule.Count == 0 && rule.Until == nil:
		return appErrors.Clone(appErrors.ErrValidation, "recurrence needs a positive count or an until date")
	case rule.Until != nil && !models.DateOf(*rule.Until).After(models.DateOf(anchor)):
		return appErrors.Clonef(appErrors.ErrValidation, "until date %s must be after %s",
			rule.Until.Format("2006-01-02"), anchor.Format("2006-01-02"))
	}
	return nil
}

// ExpandRecurrence materialises the occurrences of template under rule.
// Days are walked from the template's date; each day whose weekday is in the
// rule yields one occurrence at the template's time of day. Timed events keep
// the template duration, all-day events get the business-hours block. Every
// occurrence carries seriesID.
func ExpandRecurrence(template models.Event, rule models.Recurrence, seriesID int64) ([]models.Event, error) {
	anchor := models.Wall(template.Start)
	if err := ValidateRecurrence(anchor, rule); err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: anchor,
		Wkst:    rrule.MO,
	}
	for _, d := range rule.Weekdays {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
	}
	if rule.Count > 0 {
		opt.Count = rule.Count
	} else {
		u := *rule.Until
		opt.Until = time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 0, time.UTC)
	}
	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid recurrence for %q", template.Subject))
	}

	duration := template.End.Sub(template.Start)
	starts := rr.All()
	out := make([]models.Event, 0, len(starts))
	for _, start := range starts {
		ev := template.Clone()
		ev.ID = ""
		id := seriesID
		ev.SeriesID = &id
		if template.AllDay {
			ev.Start, ev.End = models.AllDayBounds(start)
		} else {
			ev.Start = models.Wall(start)
			ev.End = ev.Start.Add(duration)
		}
		out = append(out, ev)
	}
	return out, nil
}
