package dto

import "time"

// CreateEventRequest creates a single timed event.
type CreateEventRequest struct {
	Subject     string    `json:"subject" validate:"notblank"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location" validate:"omitempty,location"`
	Status      string    `json:"status" validate:"omitempty,status"`
}

// CreateAllDayEventRequest creates a single all-day event on Date.
type CreateAllDayEventRequest struct {
	Subject     string    `json:"subject" validate:"notblank"`
	Date        time.Time `json:"date" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location" validate:"omitempty,location"`
	Status      string    `json:"status" validate:"omitempty,status"`
}

// RecurrenceRequest terminates with either Count or Until.
type RecurrenceRequest struct {
	Weekdays []time.Weekday `json:"weekdays" validate:"required,min=1,dive,min=0,max=6"`
	Count    int            `json:"count"`
	Until    *time.Time     `json:"until"`
}

// CreateRecurringEventRequest creates a timed weekly series.
type CreateRecurringEventRequest struct {
	CreateEventRequest
	Recurrence RecurrenceRequest `json:"recurrence"`
}

// CreateRecurringAllDayRequest creates an all-day weekly series.
type CreateRecurringAllDayRequest struct {
	CreateAllDayEventRequest
	Recurrence RecurrenceRequest `json:"recurrence"`
}

// EditEventRequest locates an anchor event by subject and start and
// changes one property. End, when set, must match the anchor too.
type EditEventRequest struct {
	Subject  string     `json:"subject" validate:"notblank"`
	Start    time.Time  `json:"start" validate:"required"`
	End      *time.Time `json:"end"`
	Property string     `json:"property" validate:"notblank"`
	Value    string     `json:"value"`
}
