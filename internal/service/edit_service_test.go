package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-manager/internal/dto"
	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

type editFixture struct {
	events  *EventService
	edits   *EditService
	cal     *Calendar
	metrics *MetricsService
	series  []models.Event
}

func newEditFixture(t *testing.T) editFixture {
	t.Helper()
	metrics := NewMetricsService()
	cal := createTestCalendar(t, newTestManager(t, metrics), "Work", "UTC")
	events := NewEventService(nil, nil, metrics, nil)
	series, err := events.CreateRecurringTimed(context.Background(), cal, standupSeries(t))
	require.NoError(t, err)
	return editFixture{
		events:  events,
		edits:   NewEditService(nil, nil, metrics, nil),
		cal:     cal,
		metrics: metrics,
		series:  series,
	}
}

func editReq(t *testing.T, subject, start, property, value string) dto.EditEventRequest {
	return dto.EditEventRequest{Subject: subject, Start: mustTime(t, start), Property: property, Value: value}
}

func TestEditSeriesChangesEveryMember(t *testing.T) {
	f := newEditFixture(t)

	updated, err := f.edits.EditSeries(context.Background(), f.cal, editReq(t, "Standup", "2024-03-20T09:00", "location", "online"))
	require.NoError(t, err)
	require.Len(t, updated, 3)

	for _, ev := range f.cal.Store().All() {
		assert.Equal(t, models.LocationOnline, ev.Location)
		require.NotNil(t, ev.SeriesID)
		assert.Equal(t, *f.series[0].SeriesID, *ev.SeriesID)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.eventsEdited.WithLabelValues(string(models.EditScopeSeries))))
}

func TestEditFromDateSplitsSeries(t *testing.T) {
	f := newEditFixture(t)
	oldID := *f.series[0].SeriesID

	updated, err := f.edits.EditFromDate(context.Background(), f.cal, editReq(t, "Standup", "2024-03-20T09:00", "subject", "Sync"))
	require.NoError(t, err)
	require.Len(t, updated, 2)

	all := f.cal.Store().All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Standup", "Sync", "Sync"}, subjects(all))
	assert.Equal(t, oldID, *all[0].SeriesID)
	newID := *all[1].SeriesID
	assert.NotEqual(t, oldID, newID)
	assert.Equal(t, newID, *all[2].SeriesID)
	assert.Len(t, f.cal.Store().Series(oldID), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.seriesSplits))

	// The split-off part is a series of its own for later edits.
	_, err = f.edits.EditSeries(context.Background(), f.cal, editReq(t, "Sync", "2024-03-22T09:00", "description", "moved"))
	require.NoError(t, err)
	for _, ev := range f.cal.Store().Series(newID) {
		assert.Equal(t, "moved", ev.Description)
	}
	assert.Empty(t, f.cal.Store().Series(oldID)[0].Description)
}

func TestEditFromDateOnFirstMemberMovesWholeSeries(t *testing.T) {
	f := newEditFixture(t)
	oldID := *f.series[0].SeriesID

	_, err := f.edits.EditFromDate(context.Background(), f.cal, editReq(t, "Standup", "2024-03-18T09:00", "status", "private"))
	require.NoError(t, err)
	assert.Empty(t, f.cal.Store().Series(oldID))
	for _, ev := range f.cal.Store().All() {
		assert.Equal(t, models.StatusPrivate, ev.Status)
	}
}

func TestEditFromDateSplitsTailAgain(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	first := *f.series[0].SeriesID

	_, err := f.edits.EditFromDate(ctx, f.cal, editReq(t, "Standup", "2024-03-20T09:00", "description", "phase 2"))
	require.NoError(t, err)
	_, err = f.edits.EditFromDate(ctx, f.cal, editReq(t, "Standup", "2024-03-22T09:00", "description", "phase 3"))
	require.NoError(t, err)

	all := f.cal.Store().All()
	require.Len(t, all, 3)
	ids := []int64{*all[0].SeriesID, *all[1].SeriesID, *all[2].SeriesID}
	assert.Equal(t, first, ids[0])
	assert.NotEqual(t, ids[0], ids[1])
	assert.NotEqual(t, ids[1], ids[2])
	assert.NotEqual(t, ids[0], ids[2])
	assert.Equal(t, []string{"", "phase 2", "phase 3"}, []string{all[0].Description, all[1].Description, all[2].Description})
	for _, id := range ids {
		assert.Len(t, f.cal.Store().Series(id), 1)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.seriesSplits))
}

func TestEditFromDateShiftsOnlyTheTail(t *testing.T) {
	f := newEditFixture(t)
	first := *f.series[0].SeriesID

	updated, err := f.edits.EditFromDate(context.Background(), f.cal, editReq(t, "Standup", "2024-03-20T09:00", "start", "2024-03-20T10:00"))
	require.NoError(t, err)
	require.Len(t, updated, 2)

	all := f.cal.Store().All()
	require.Len(t, all, 3)
	assert.Equal(t, mustTime(t, "2024-03-18T09:00"), all[0].Start)
	assert.Equal(t, mustTime(t, "2024-03-18T09:30"), all[0].End)
	assert.Equal(t, first, *all[0].SeriesID)
	assert.Equal(t, mustTime(t, "2024-03-20T10:00"), all[1].Start)
	assert.Equal(t, mustTime(t, "2024-03-20T10:30"), all[1].End)
	assert.Equal(t, mustTime(t, "2024-03-22T10:00"), all[2].Start)
	assert.Equal(t, mustTime(t, "2024-03-22T10:30"), all[2].End)
	assert.NotEqual(t, first, *all[1].SeriesID)
	assert.Equal(t, *all[1].SeriesID, *all[2].SeriesID)
}

func TestEditSingleKeepsSeriesMembership(t *testing.T) {
	f := newEditFixture(t)

	updated, err := f.edits.EditSingle(context.Background(), f.cal, editReq(t, "Standup", "2024-03-20T09:00", "start", "2024-03-20T09:15"))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, mustTime(t, "2024-03-20T09:15"), updated[0].Start)
	assert.Equal(t, mustTime(t, "2024-03-20T09:30"), updated[0].End)
	assert.Equal(t, *f.series[0].SeriesID, *updated[0].SeriesID)

	_, ok := f.cal.Store().Get(models.NewEventKey("Standup", mustTime(t, "2024-03-20T09:00")))
	assert.False(t, ok)
	assert.Len(t, f.cal.Store().Series(*f.series[0].SeriesID), 3)
}

func TestEditSeriesShiftsStartByAnchorDelta(t *testing.T) {
	f := newEditFixture(t)

	_, err := f.edits.EditSeries(context.Background(), f.cal, editReq(t, "Standup", "2024-03-22T09:00", "start", "2024-03-22T08:45"))
	require.NoError(t, err)
	for _, ev := range f.cal.Store().All() {
		assert.Equal(t, 8, ev.Start.Hour())
		assert.Equal(t, 45, ev.Start.Minute())
		assert.Equal(t, 9, ev.End.Hour())
		assert.Equal(t, 30, ev.End.Minute())
	}
}

func TestEditRejectsStartAfterEnd(t *testing.T) {
	f := newEditFixture(t)
	before := f.cal.Store().All()

	_, err := f.edits.EditSingle(context.Background(), f.cal, editReq(t, "Standup", "2024-03-20T09:00", "start", "2024-03-20T10:00"))
	requireCode(t, err, appErrors.ErrValidation)
	assert.Equal(t, before, f.cal.Store().All())
}

func TestEditErrors(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dto.EditEventRequest
		want *appErrors.Error
	}{
		{"unknown property", editReq(t, "Standup", "2024-03-20T09:00", "colour", "red"), appErrors.ErrUnknownProperty},
		{"bad location", editReq(t, "Standup", "2024-03-20T09:00", "location", "moon"), appErrors.ErrInvalidPropertyValue},
		{"bad status", editReq(t, "Standup", "2024-03-20T09:00", "status", "secret"), appErrors.ErrInvalidPropertyValue},
		{"bad timestamp", editReq(t, "Standup", "2024-03-20T09:00", "end", "tomorrow"), appErrors.ErrInvalidPropertyValue},
		{"blank subject", editReq(t, "Standup", "2024-03-20T09:00", "subject", " "), appErrors.ErrValidation},
		{"missing anchor", editReq(t, "Standup", "2024-03-21T09:00", "subject", "x"), appErrors.ErrNotFound},
		{"wrong subject", editReq(t, "standup", "2024-03-20T09:00", "subject", "x"), appErrors.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.edits.EditSeries(ctx, f.cal, tc.req)
			requireCode(t, err, tc.want)
		})
	}

	end := mustTime(t, "2024-03-20T10:00")
	req := editReq(t, "Standup", "2024-03-20T09:00", "subject", "x")
	req.End = &end
	_, err := f.edits.EditSingle(ctx, f.cal, req)
	requireCode(t, err, appErrors.ErrNotFound)

	end = mustTime(t, "2024-03-20T09:30")
	_, err = f.edits.EditSingle(ctx, f.cal, req)
	require.NoError(t, err)
}

func TestEditCollisionLeavesStoreUntouched(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	_, err := f.events.CreateTimed(ctx, f.cal, dto.CreateEventRequest{
		Subject: "Sync",
		Start:   mustTime(t, "2024-03-22T09:00"),
		End:     mustTime(t, "2024-03-22T10:00"),
	})
	require.NoError(t, err)
	before := f.cal.Store().All()

	_, err = f.edits.EditSeries(ctx, f.cal, editReq(t, "Standup", "2024-03-18T09:00", "subject", "Sync"))
	requireCode(t, err, appErrors.ErrDuplicateEvent)
	assert.Equal(t, before, f.cal.Store().All())

	_, err = f.edits.EditFromDate(ctx, f.cal, editReq(t, "Standup", "2024-03-20T09:00", "subject", "Sync"))
	requireCode(t, err, appErrors.ErrDuplicateEvent)
	assert.Equal(t, before, f.cal.Store().All())
	assert.Zero(t, testutil.ToFloat64(f.metrics.seriesSplits))
}

func TestEditFromDateWithoutSeriesActsOnAnchor(t *testing.T) {
	f := newEditFixture(t)
	ctx := context.Background()
	_, err := f.events.CreateAllDay(ctx, f.cal, dto.CreateAllDayEventRequest{Subject: "Offsite", Date: mustDate(t, "2024-03-21")})
	require.NoError(t, err)

	updated, err := f.edits.EditFromDate(ctx, f.cal, editReq(t, "Offsite", "2024-03-21T08:00", "end", "2024-03-21T12:00"))
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Nil(t, updated[0].SeriesID)
	assert.False(t, updated[0].AllDay)
	assert.Equal(t, mustTime(t, "2024-03-21T12:00"), updated[0].End)
}
