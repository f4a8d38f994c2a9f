package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/dto"
	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
	"github.com/noah-isme/calendar-manager/pkg/logger"
)

// CalendarManager owns the registered calendars and the current selection.
type CalendarManager struct {
	mu        sync.RWMutex
	calendars map[string]*Calendar
	current   *Calendar

	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewCalendarManager constructs an empty manager.
func NewCalendarManager(validate *validator.Validate, metrics *MetricsService, log *zap.Logger) *CalendarManager {
	if validate == nil {
		validate = validator.New()
	}
	dto.RegisterValidations(validate)
	if log == nil {
		log = zap.NewNop()
	}
	return &CalendarManager{
		calendars: make(map[string]*Calendar),
		validator: validate,
		metrics:   metrics,
		logger:    log,
		now:       time.Now,
	}
}

// CreateCalendar registers an empty calendar.
func (m *CalendarManager) CreateCalendar(ctx context.Context, req dto.CreateCalendarRequest) (cal *Calendar, err error) {
	defer m.observe("create_calendar", time.Now(), &err, zap.String("calendar", req.Name))

	if err := m.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	loc, err := LoadTimezone(req.Timezone)
	if err != nil {
		return nil, err
	}
	return m.register(models.Calendar{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.Name),
		CreatedAt: m.now().UTC(),
	}, loc)
}

// Restore registers a previously saved calendar, keeping its id.
func (m *CalendarManager) Restore(info models.Calendar) (*Calendar, error) {
	loc, err := LoadTimezone(info.Timezone)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(info.Name) == "" || info.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar id and name are required")
	}
	return m.register(info, loc)
}

func (m *CalendarManager) register(info models.Calendar, loc *time.Location) (*Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.calendars[info.Name]; exists {
		return nil, appErrors.Clonef(appErrors.ErrDuplicateCalendarName, "calendar %q already exists", info.Name)
	}
	cal := newCalendar(info.ID, info.Name, loc, info.CreatedAt)
	m.calendars[info.Name] = cal
	m.metrics.SetCalendars(len(m.calendars))
	return cal, nil
}

// UseCalendar selects the calendar that copy operations read from.
func (m *CalendarManager) UseCalendar(ctx context.Context, name string) (cal *Calendar, err error) {
	defer m.observe("use_calendar", time.Now(), &err, zap.String("calendar", name))

	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[strings.TrimSpace(name)]
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrUnknownCalendar, "calendar %q not found", name)
	}
	m.current = cal
	return cal, nil
}

// EditCalendar renames or re-zones a calendar. A timezone change only
// relabels the calendar; stored wall-clock times stay as they are.
func (m *CalendarManager) EditCalendar(ctx context.Context, req dto.EditCalendarRequest) (cal *Calendar, err error) {
	defer m.observe("edit_calendar", time.Now(), &err,
		zap.String("calendar", req.Name), zap.String("property", req.Property))

	if err := m.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	name := strings.TrimSpace(req.Name)
	cal, ok := m.calendars[name]
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrUnknownCalendar, "calendar %q not found", req.Name)
	}

	switch models.CalendarProperty(strings.ToLower(strings.TrimSpace(req.Property))) {
	case models.CalendarPropertyName:
		newName := strings.TrimSpace(req.Value)
		if newName == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "calendar name must not be blank")
		}
		if newName == name {
			return cal, nil
		}
		if _, taken := m.calendars[newName]; taken {
			return nil, appErrors.Clonef(appErrors.ErrDuplicateCalendarName, "calendar %q already exists", newName)
		}
		delete(m.calendars, name)
		m.calendars[newName] = cal
		cal.setName(newName)
	case models.CalendarPropertyTimezone:
		loc, err := LoadTimezone(req.Value)
		if err != nil {
			return nil, err
		}
		cal.setLocation(loc)
	default:
		return nil, appErrors.Clonef(appErrors.ErrUnknownProperty, "unknown calendar property %q", req.Property)
	}
	return cal, nil
}

// Current returns the selected calendar.
func (m *CalendarManager) Current() (*Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil, appErrors.Clone(appErrors.ErrUnknownCalendar, "no calendar in use")
	}
	return m.current, nil
}

// Get looks a calendar up by name.
func (m *CalendarManager) Get(name string) (*Calendar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cal, ok := m.calendars[strings.TrimSpace(name)]
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrUnknownCalendar, "calendar %q not found", name)
	}
	return cal, nil
}

// List describes every calendar ordered by name.
func (m *CalendarManager) List() []models.Calendar {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Calendar, 0, len(m.calendars))
	for _, cal := range m.calendars {
		out = append(out, cal.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Calendars returns every calendar handle ordered by name.
func (m *CalendarManager) Calendars() []*Calendar {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Calendar, 0, len(m.calendars))
	for _, cal := range m.calendars {
		out = append(out, cal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (m *CalendarManager) observe(op string, start time.Time, err *error, fields ...zap.Field) {
	if *err != nil {
		m.metrics.RecordError(*err)
	}
	logger.Operation(m.logger, op, start, *err, fields...)
}
