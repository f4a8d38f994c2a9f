package dto

// CreateCalendarRequest registers a calendar.
type CreateCalendarRequest struct {
	Name     string `json:"name" validate:"notblank"`
	Timezone string `json:"timezone"`
}

// EditCalendarRequest changes the name or timezone of a calendar.
type EditCalendarRequest struct {
	Name     string `json:"name" validate:"notblank"`
	Property string `json:"property" validate:"notblank"`
	Value    string `json:"value"`
}
