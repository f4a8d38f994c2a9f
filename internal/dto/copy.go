package dto

import "time"

// CopyEventRequest copies one event of the current calendar.
type CopyEventRequest struct {
	Subject        string    `json:"subject" validate:"notblank"`
	SourceStart    time.Time `json:"source_start" validate:"required"`
	TargetCalendar string    `json:"target_calendar" validate:"notblank"`
	TargetStart    time.Time `json:"target_start" validate:"required"`
}

// CopyDateRequest copies every event starting on Date onto TargetDate.
type CopyDateRequest struct {
	Date           time.Time `json:"date" validate:"required"`
	TargetCalendar string    `json:"target_calendar" validate:"notblank"`
	TargetDate     time.Time `json:"target_date" validate:"required"`
}

// CopyRangeRequest copies every event in [StartDate, EndDate], shifted so
// that StartDate lands on TargetStart.
type CopyRangeRequest struct {
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	TargetCalendar string    `json:"target_calendar" validate:"notblank"`
	TargetStart    time.Time `json:"target_start" validate:"required"`
}
