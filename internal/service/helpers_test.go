package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-manager/internal/dto"
	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

func mustTime(t *testing.T, v string) time.Time {
	t.Helper()
	ts, err := models.ParseTimestamp(v)
	require.NoError(t, err)
	return ts
}

func mustDate(t *testing.T, v string) time.Time {
	t.Helper()
	d, err := models.ParseDate(v)
	require.NoError(t, err)
	return d
}

func newTestManager(t *testing.T, metrics *MetricsService) *CalendarManager {
	t.Helper()
	return NewCalendarManager(nil, metrics, nil)
}

func createTestCalendar(t *testing.T, m *CalendarManager, name, tz string) *Calendar {
	t.Helper()
	cal, err := m.CreateCalendar(context.Background(), dto.CreateCalendarRequest{Name: name, Timezone: tz})
	require.NoError(t, err)
	return cal
}

func requireCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want.Code, appErrors.FromError(err).Code, err.Error())
}

func subjects(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Subject)
	}
	return out
}

// memoryCacheRepo stands in for Redis.
type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]models.Event
	gets    int
	deletes []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string][]models.Event)}
}

func (r *memoryCacheRepo) GetEvents(ctx context.Context, key string) ([]models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	events, ok := r.entries[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return events, nil
}

func (r *memoryCacheRepo) SetEvents(ctx context.Context, key string, events []models.Event, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = events
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
		}
	}
	return nil
}

func (r *memoryCacheRepo) has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}
