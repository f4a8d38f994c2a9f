package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/calendar-manager/internal/models"
)

type failingCacheRepo struct{}

func (failingCacheRepo) GetEvents(ctx context.Context, key string) ([]models.Event, error) {
	return nil, errors.New("connection reset")
}

func (failingCacheRepo) SetEvents(ctx context.Context, key string, events []models.Event, ttl time.Duration) error {
	return errors.New("connection reset")
}

func (failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection reset")
}

func TestCacheServiceDisabledSkipsRepository(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	day := mustDate(t, "2024-03-20")

	svc.StoreAgenda(context.Background(), "cal-1", day, []models.Event{{Subject: "A"}})
	_, ok := svc.Agenda(context.Background(), "cal-1", day)
	assert.False(t, ok)
	assert.Zero(t, repo.gets)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	nilSvc.InvalidateCalendar(context.Background(), "cal-1")
}

func TestCacheServiceRoundTripAndInvalidate(t *testing.T) {
	metrics := NewMetricsService()
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()
	day := mustDate(t, "2024-03-20")

	_, ok := svc.Agenda(ctx, "cal-1", day)
	assert.False(t, ok)

	svc.StoreAgenda(ctx, "cal-1", day, []models.Event{{Subject: "A"}})
	svc.StoreAgenda(ctx, "cal-2", day, []models.Event{{Subject: "B"}})
	events, ok := svc.Agenda(ctx, "cal-1", day)
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, subjects(events))

	svc.InvalidateCalendar(ctx, "cal-1")
	assert.Equal(t, []string{"calendar:cal-1:*"}, repo.deletes)
	assert.False(t, repo.has(AgendaKey("cal-1", day)))
	assert.True(t, repo.has(AgendaKey("cal-2", day)))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceFailuresAreMisses(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewCacheService(failingCacheRepo{}, nil, time.Minute, zap.New(core), true)
	ctx := context.Background()
	day := mustDate(t, "2024-03-20")

	_, ok := svc.Agenda(ctx, "cal-1", day)
	assert.False(t, ok)
	svc.StoreAgenda(ctx, "cal-1", day, nil)
	svc.InvalidateCalendar(ctx, "cal-1")
	assert.Equal(t, 3, logs.Len())
}

// flakyCacheRepo fails invalidations while failDeletes is set.
type flakyCacheRepo struct {
	*memoryCacheRepo
	failDeletes bool
}

func (r *flakyCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.failDeletes {
		return errors.New("connection reset")
	}
	return r.memoryCacheRepo.DeleteByPattern(ctx, pattern)
}

func TestCacheServiceBypassesCalendarAfterFailedInvalidation(t *testing.T) {
	repo := &flakyCacheRepo{memoryCacheRepo: newMemoryCacheRepo()}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()
	day := mustDate(t, "2024-03-20")

	svc.StoreAgenda(ctx, "cal-1", day, []models.Event{{Subject: "Old"}})
	svc.StoreAgenda(ctx, "cal-2", day, []models.Event{{Subject: "Other"}})

	repo.failDeletes = true
	svc.InvalidateCalendar(ctx, "cal-1")
	require.True(t, repo.has(AgendaKey("cal-1", day)))

	// The leftover entry is never served and no new entry is written.
	_, ok := svc.Agenda(ctx, "cal-1", day)
	assert.False(t, ok)
	svc.StoreAgenda(ctx, "cal-1", day.AddDate(0, 0, 1), []models.Event{{Subject: "New"}})
	assert.False(t, repo.has(AgendaKey("cal-1", day.AddDate(0, 0, 1))))

	// Other calendars keep using the cache.
	events, ok := svc.Agenda(ctx, "cal-2", day)
	require.True(t, ok)
	assert.Equal(t, []string{"Other"}, subjects(events))

	// Once Redis recovers, the next read clears the leftovers.
	repo.failDeletes = false
	_, ok = svc.Agenda(ctx, "cal-1", day)
	assert.False(t, ok)
	assert.False(t, repo.has(AgendaKey("cal-1", day)))

	svc.StoreAgenda(ctx, "cal-1", day, []models.Event{{Subject: "Fresh"}})
	events, ok = svc.Agenda(ctx, "cal-1", day)
	require.True(t, ok)
	assert.Equal(t, []string{"Fresh"}, subjects(events))
}

func TestAgendaKey(t *testing.T) {
	assert.Equal(t, "calendar:abc:date:2024-03-20", AgendaKey("abc", mustTime(t, "2024-03-20T15:04")))
}
