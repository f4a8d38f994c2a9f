package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-manager/internal/dto"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

func TestCalendarManagerCreate(t *testing.T) {
	metrics := NewMetricsService()
	m := newTestManager(t, metrics)
	ctx := context.Background()

	cal, err := m.CreateCalendar(ctx, dto.CreateCalendarRequest{Name: "Work", Timezone: "America/New_York"})
	require.NoError(t, err)
	assert.NotEmpty(t, cal.ID())
	assert.Equal(t, "America/New_York", cal.Location().String())
	assert.Zero(t, cal.Store().Len())

	_, err = m.CreateCalendar(ctx, dto.CreateCalendarRequest{Name: "Work", Timezone: "UTC"})
	requireCode(t, err, appErrors.ErrDuplicateCalendarName)

	for _, tz := range []string{"Mars/Olympus", "", "Local"} {
		_, err = m.CreateCalendar(ctx, dto.CreateCalendarRequest{Name: "Other " + tz, Timezone: tz})
		requireCode(t, err, appErrors.ErrInvalidTimezone)
	}

	_, err = m.CreateCalendar(ctx, dto.CreateCalendarRequest{Name: " ", Timezone: "UTC"})
	requireCode(t, err, appErrors.ErrValidation)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.calendars))
}

func TestCalendarManagerUseAndCurrent(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()

	_, err := m.Current()
	requireCode(t, err, appErrors.ErrUnknownCalendar)

	work := createTestCalendar(t, m, "Work", "UTC")
	_, err = m.UseCalendar(ctx, "Home")
	requireCode(t, err, appErrors.ErrUnknownCalendar)

	_, err = m.UseCalendar(ctx, "Work")
	require.NoError(t, err)
	current, err := m.Current()
	require.NoError(t, err)
	assert.Same(t, work, current)
}

func TestCalendarManagerRename(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()
	work := createTestCalendar(t, m, "Work", "UTC")
	createTestCalendar(t, m, "Home", "UTC")
	_, err := m.UseCalendar(ctx, "Work")
	require.NoError(t, err)

	_, err = m.EditCalendar(ctx, dto.EditCalendarRequest{Name: "Work", Property: "name", Value: "Home"})
	requireCode(t, err, appErrors.ErrDuplicateCalendarName)

	renamed, err := m.EditCalendar(ctx, dto.EditCalendarRequest{Name: "Work", Property: "Name", Value: "Office"})
	require.NoError(t, err)
	assert.Same(t, work, renamed)
	assert.Equal(t, "Office", renamed.Name())

	_, err = m.Get("Work")
	requireCode(t, err, appErrors.ErrUnknownCalendar)
	got, err := m.Get("Office")
	require.NoError(t, err)
	assert.Same(t, work, got)

	current, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "Office", current.Name())

	same, err := m.EditCalendar(ctx, dto.EditCalendarRequest{Name: "Office", Property: "name", Value: "Office"})
	require.NoError(t, err)
	assert.Same(t, work, same)

	names := []string{}
	for _, info := range m.List() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"Home", "Office"}, names)
}

func TestCalendarManagerRezoneKeepsWallClock(t *testing.T) {
	m := newTestManager(t, nil)
	ctx := context.Background()
	cal := createTestCalendar(t, m, "Work", "America/Los_Angeles")
	events := NewEventService(nil, nil, nil, nil)
	_, err := events.CreateTimed(ctx, cal, dto.CreateEventRequest{
		Subject: "Standup",
		Start:   mustTime(t, "2024-03-20T09:00"),
		End:     mustTime(t, "2024-03-20T09:30"),
	})
	require.NoError(t, err)

	_, err = m.EditCalendar(ctx, dto.EditCalendarRequest{Name: "Work", Property: "timezone", Value: "America/New_York"})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", cal.Location().String())

	stored := cal.Store().All()
	require.Len(t, stored, 1)
	assert.Equal(t, mustTime(t, "2024-03-20T09:00"), stored[0].Start)

	_, err = m.EditCalendar(ctx, dto.EditCalendarRequest{Name: "Work", Property: "timezone", Value: "Nowhere/City"})
	requireCode(t, err, appErrors.ErrInvalidTimezone)
	_, err = m.EditCalendar(ctx, dto.EditCalendarRequest{Name: "Work", Property: "colour", Value: "red"})
	requireCode(t, err, appErrors.ErrUnknownProperty)
	_, err = m.EditCalendar(ctx, dto.EditCalendarRequest{Name: "Play", Property: "name", Value: "x"})
	requireCode(t, err, appErrors.ErrUnknownCalendar)
}
