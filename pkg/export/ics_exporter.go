package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//calendar-manager//calendard//EN"

// SeriesProperty carries the series id of an exported event so that an
// import can regroup recurring events.
const SeriesProperty = ical.ComponentProperty("X-CALENDAR-SERIES-ID")

// ICSExporter renders agendas as iCalendar and reads them back.
type ICSExporter struct {
	now func() time.Time
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{now: time.Now}
}

// Render serialises the agenda as a VCALENDAR. Timed events are written as
// UTC instants, all-day events as DATE values with an exclusive end.
func (e *ICSExporter) Render(a Agenda) ([]byte, error) {
	loc := a.Timezone
	if loc == nil {
		loc = time.UTC
	}
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(a.Name)
	cal.SetXWRTimezone(loc.String())

	stamp := a.GeneratedAt
	if stamp.IsZero() {
		stamp = e.now()
	}
	for _, entry := range a.sorted() {
		if entry.UID == "" {
			return nil, fmt.Errorf("event %q has no uid", entry.Subject)
		}
		ev := cal.AddEvent(entry.UID)
		ev.SetDtStampTime(stamp)
		if entry.AllDay {
			day := time.Date(entry.Start.Year(), entry.Start.Month(), entry.Start.Day(), 0, 0, 0, 0, time.UTC)
			ev.SetAllDayStartAt(day)
			ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		} else {
			ev.SetStartAt(inZone(entry.Start, loc))
			ev.SetEndAt(inZone(entry.End, loc))
		}
		ev.SetSummary(entry.Subject)
		if entry.Description != "" {
			ev.SetDescription(entry.Description)
		}
		if entry.Location != "" {
			ev.SetLocation(entry.Location)
		}
		if entry.Status != "" {
			ev.SetProperty(ical.ComponentPropertyClass, entry.Status)
		}
		if entry.SeriesID != nil {
			ev.SetProperty(SeriesProperty, strconv.FormatInt(*entry.SeriesID, 10))
		}
	}
	return []byte(cal.Serialize()), nil
}

// Parse reads VEVENTs from r. Timed values are converted to wall-clock
// times in loc; all-day events keep their date.
func (e *ICSExporter) Parse(r io.Reader, loc *time.Location) ([]Entry, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}
	var entries []Entry
	for _, ve := range cal.Events() {
		entry, err := parseVEvent(ve, loc)
		if err != nil {
			return nil, fmt.Errorf("parse vevent %s: %w", ve.Id(), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (Entry, error) {
	entry := Entry{UID: ve.Id()}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		entry.Subject = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		entry.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		entry.Location = strings.ToUpper(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyClass); p != nil {
		entry.Status = strings.ToUpper(p.Value)
	}
	if p := ve.GetProperty(SeriesProperty); p != nil {
		id, err := strconv.ParseInt(strings.TrimSpace(p.Value), 10, 64)
		if err != nil {
			return entry, fmt.Errorf("bad %s %q: %w", SeriesProperty, p.Value, err)
		}
		entry.SeriesID = &id
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return entry, errors.New("missing DTSTART")
	}
	if isDateValue(dtStart) {
		day, err := ve.GetAllDayStartAt()
		if err != nil {
			return entry, err
		}
		entry.AllDay = true
		entry.Start = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		entry.End = entry.Start
		return entry, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return entry, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return entry, err
	}
	entry.Start = wallIn(start, loc)
	entry.End = wallIn(end, loc)
	return entry, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// inZone reads the clock fields of wall as a time in loc.
func inZone(wall time.Time, loc *time.Location) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
}

// wallIn expresses the instant t as clock fields of loc, without a zone.
func wallIn(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
