package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/models"
	"github.com/noah-isme/calendar-manager/internal/repository"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

// Calendar is a registered calendar: a name, a timezone label and its own
// event store. Its events are wall-clock values in that timezone.
type Calendar struct {
	mu        sync.RWMutex
	id        string
	name      string
	loc       *time.Location
	createdAt time.Time
	store     *repository.EventStore
}

func newCalendar(id, name string, loc *time.Location, createdAt time.Time) *Calendar {
	return &Calendar{
		id:        id,
		name:      name,
		loc:       loc,
		createdAt: createdAt,
		store:     repository.NewEventStore(),
	}
}

// ID is stable across renames.
func (c *Calendar) ID() string {
	return c.id
}

// Name returns the current name.
func (c *Calendar) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Location returns the timezone of the calendar.
func (c *Calendar) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc
}

// Store returns the event store of the calendar.
func (c *Calendar) Store() *repository.EventStore {
	return c.store
}

// Info describes the calendar without its events.
func (c *Calendar) Info() models.Calendar {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.Calendar{ID: c.id, Name: c.name, Timezone: c.loc.String(), CreatedAt: c.createdAt}
}

func (c *Calendar) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

func (c *Calendar) setLocation(loc *time.Location) {
	c.mu.Lock()
	c.loc = loc
	c.mu.Unlock()
}

// LoadTimezone resolves an IANA zone id. Blank ids and "Local" are
// rejected so that a calendar never depends on the host zone.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, appErrors.Clonef(appErrors.ErrInvalidTimezone, "invalid timezone %q", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimezone.Code, appErrors.ErrInvalidTimezone.Status, "invalid timezone "+name)
	}
	return loc, nil
}

// mutate runs fn against the calendar store and, once committed, drops the
// calendar's cached agendas. Rejections are counted by error code.
func mutate(ctx context.Context, cal *Calendar, cache *CacheService, metrics *MetricsService, fn func(tx *repository.EventTx) error) error {
	if err := cal.Store().Update(fn); err != nil {
		metrics.RecordError(err)
		return err
	}
	cache.InvalidateCalendar(ctx, cal.ID())
	return nil
}

func validationError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

func calendarField(cal *Calendar) zap.Field {
	return zap.String("calendar", cal.Name())
}
