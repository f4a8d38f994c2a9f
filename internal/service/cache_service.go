package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

// CacheRepository abstracts storage for cached agendas.
type CacheRepository interface {
	GetEvents(ctx context.Context, key string) ([]models.Event, error)
	SetEvents(ctx context.Context, key string, events []models.Event, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService is a best-effort read-through cache for per-day agendas.
// Keys use the calendar id, so renames never serve stale entries. Failures
// are logged and treated as misses. A calendar whose invalidation failed is
// read from its store until a retried invalidation succeeds.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool

	mu    sync.Mutex
	stale map[string]struct{}
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:    repo,
		metrics: metrics,
		ttl:     ttl,
		logger:  logger,
		enabled: enabled,
		stale:   make(map[string]struct{}),
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// AgendaKey is the cache key of one calendar day.
func AgendaKey(calendarID string, date time.Time) string {
	return fmt.Sprintf("calendar:%s:date:%s", calendarID, date.Format("2006-01-02"))
}

func calendarPattern(calendarID string) string {
	return fmt.Sprintf("calendar:%s:*", calendarID)
}

// Agenda returns the cached events of a day, if present.
func (s *CacheService) Agenda(ctx context.Context, calendarID string, date time.Time) ([]models.Event, bool) {
	if !s.Enabled() {
		return nil, false
	}
	if s.isStale(calendarID) {
		s.InvalidateCalendar(ctx, calendarID)
		return nil, false
	}
	key := AgendaKey(calendarID, date)
	start := time.Now()
	events, err := s.repo.GetEvents(ctx, key)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("agenda cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	s.metrics.RecordCacheOperation(true, duration)
	return events, true
}

// StoreAgenda caches the events of a day.
func (s *CacheService) StoreAgenda(ctx context.Context, calendarID string, date time.Time, events []models.Event) {
	if !s.Enabled() || s.isStale(calendarID) {
		return
	}
	key := AgendaKey(calendarID, date)
	start := time.Now()
	err := s.repo.SetEvents(ctx, key, events, s.ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("agenda cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateCalendar drops every cached day of a calendar.
func (s *CacheService) InvalidateCalendar(ctx context.Context, calendarID string) {
	if !s.Enabled() {
		return
	}
	pattern := calendarPattern(calendarID)
	err := s.repo.DeleteByPattern(ctx, pattern)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stale[calendarID] = struct{}{}
		s.logger.Warn("agenda cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	delete(s.stale, calendarID)
}

func (s *CacheService) isStale(calendarID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stale[calendarID]
	return ok
}
