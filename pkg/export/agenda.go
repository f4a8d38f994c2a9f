package export

import (
	"sort"
	"strconv"
	"time"
)

// Entry is one event as seen by the renderers. Start and End are
// wall-clock values in the agenda's timezone.
type Entry struct {
	UID         string
	Subject     string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Description string
	Location    string
	Status      string
	SeriesID    *int64
}

// Private reports whether the entry is marked private.
func (e Entry) Private() bool {
	return e.Status == "PRIVATE"
}

// Agenda is a calendar ready to be rendered.
type Agenda struct {
	Name        string
	Timezone    *time.Location
	Entries     []Entry
	GeneratedAt time.Time
}

// Dataset is tabular export content shared by the CSV and PDF renderers.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

func (a Agenda) sorted() []Entry {
	out := append([]Entry(nil), a.Entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func seriesLabel(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
