package models

import "strings"

// EditScope selects which events an edit touches.
type EditScope string

const (
	EditScopeSingle   EditScope = "single"
	EditScopeFromDate EditScope = "from_date"
	EditScopeSeries   EditScope = "series"
)

// EventProperty names an editable event attribute.
type EventProperty string

const (
	PropertySubject     EventProperty = "subject"
	PropertyStart       EventProperty = "start"
	PropertyEnd         EventProperty = "end"
	PropertyDescription EventProperty = "description"
	PropertyLocation    EventProperty = "location"
	PropertyStatus      EventProperty = "status"
)

var eventProperties = map[EventProperty]struct{}{
	PropertySubject:     {},
	PropertyStart:       {},
	PropertyEnd:         {},
	PropertyDescription: {},
	PropertyLocation:    {},
	PropertyStatus:      {},
}

// LookupEventProperty resolves a property name case-insensitively.
func LookupEventProperty(name string) (EventProperty, bool) {
	p := EventProperty(strings.ToLower(strings.TrimSpace(name)))
	_, ok := eventProperties[p]
	return p, ok
}
