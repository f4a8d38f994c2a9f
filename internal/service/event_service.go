package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/dto"
	"github.com/noah-isme/calendar-manager/internal/models"
	"github.com/noah-isme/calendar-manager/internal/repository"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

// Kinds reported to calendar_events_created_total.
const (
	KindTimed           = "timed"
	KindAllDay          = "all_day"
	KindRecurringTimed  = "recurring_timed"
	KindRecurringAllDay = "recurring_all_day"
	KindImported        = "imported"
)

// EventService creates and queries the events of a calendar.
type EventService struct {
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	dto.RegisterValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{validator: validate, cache: cache, metrics: metrics, logger: logger}
}

// CreateTimed stores a single timed event.
func (s *EventService) CreateTimed(ctx context.Context, cal *Calendar, req dto.CreateEventRequest) (*models.Event, error) {
	ev, err := s.timedTemplate(req)
	if err != nil {
		return nil, s.reject(err)
	}
	stored, err := s.insert(ctx, cal, []models.Event{ev})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCreated(KindTimed, 1)
	s.logger.Info("event created", calendarField(cal), zap.String("subject", ev.Subject), zap.Time("start", ev.Start))
	return &stored[0], nil
}

// CreateAllDay stores a single all-day event on the requested date.
func (s *EventService) CreateAllDay(ctx context.Context, cal *Calendar, req dto.CreateAllDayEventRequest) (*models.Event, error) {
	ev, err := s.allDayTemplate(req)
	if err != nil {
		return nil, s.reject(err)
	}
	stored, err := s.insert(ctx, cal, []models.Event{ev})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCreated(KindAllDay, 1)
	s.logger.Info("all-day event created", calendarField(cal), zap.String("subject", ev.Subject), zap.Time("date", ev.Start))
	return &stored[0], nil
}

// CreateRecurringTimed stores every occurrence of a weekly timed series.
// Any collision rejects the whole series.
func (s *EventService) CreateRecurringTimed(ctx context.Context, cal *Calendar, req dto.CreateRecurringEventRequest) ([]models.Event, error) {
	template, err := s.timedTemplate(req.CreateEventRequest)
	if err != nil {
		return nil, s.reject(err)
	}
	events, err := s.createSeries(ctx, cal, template, req.Recurrence)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCreated(KindRecurringTimed, len(events))
	return events, nil
}

// CreateRecurringAllDay stores every occurrence of a weekly all-day series.
func (s *EventService) CreateRecurringAllDay(ctx context.Context, cal *Calendar, req dto.CreateRecurringAllDayRequest) ([]models.Event, error) {
	template, err := s.allDayTemplate(req.CreateAllDayEventRequest)
	if err != nil {
		return nil, s.reject(err)
	}
	events, err := s.createSeries(ctx, cal, template, req.Recurrence)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCreated(KindRecurringAllDay, len(events))
	return events, nil
}

// EventsOnDate lists events starting on date, ascending by start.
func (s *EventService) EventsOnDate(ctx context.Context, cal *Calendar, date time.Time) ([]models.Event, error) {
	if date.IsZero() {
		return nil, s.reject(appErrors.Clone(appErrors.ErrValidation, "date is required"))
	}
	day := models.DateOf(date)
	if cached, ok := s.cache.Agenda(ctx, cal.ID(), day); ok {
		return cached, nil
	}
	events := cal.Store().OnDate(day)
	s.cache.StoreAgenda(ctx, cal.ID(), day, events)
	return events, nil
}

// EventsInRange lists events starting within [from, to], ascending by start.
func (s *EventService) EventsInRange(ctx context.Context, cal *Calendar, from, to time.Time) ([]models.Event, error) {
	if from.IsZero() || to.IsZero() {
		return nil, s.reject(appErrors.Clone(appErrors.ErrValidation, "range bounds are required"))
	}
	if models.Wall(to).Before(models.Wall(from)) {
		return nil, s.reject(appErrors.Clone(appErrors.ErrValidation, "range end must not be before its start"))
	}
	return cal.Store().InRange(from, to), nil
}

// IsBusyAt reports whether some event covers t, bounds included.
func (s *EventService) IsBusyAt(ctx context.Context, cal *Calendar, t time.Time) (bool, error) {
	if t.IsZero() {
		return false, s.reject(appErrors.Clone(appErrors.ErrValidation, "instant is required"))
	}
	return cal.Store().BusyAt(t), nil
}

func (s *EventService) createSeries(ctx context.Context, cal *Calendar, template models.Event, req dto.RecurrenceRequest) ([]models.Event, error) {
	rule := models.Recurrence{Weekdays: req.Weekdays, Count: req.Count, Until: req.Until}
	if err := ValidateRecurrence(template.Start, rule); err != nil {
		return nil, s.reject(err)
	}

	var stored []models.Event
	var seriesID int64
	err := mutate(ctx, cal, s.cache, s.metrics, func(tx *repository.EventTx) error {
		seriesID = tx.NextSeriesID()
		occurrences, err := ExpandRecurrence(template, rule, seriesID)
		if err != nil {
			return err
		}
		stored = stored[:0]
		for _, ev := range occurrences {
			saved, err := tx.Insert(ev)
			if err != nil {
				return err
			}
			stored = append(stored, saved)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("series rejected", calendarField(cal), zap.String("subject", template.Subject), zap.Error(err))
		return nil, err
	}
	s.logger.Info("series created",
		calendarField(cal),
		zap.String("subject", template.Subject),
		zap.Int64("series_id", seriesID),
		zap.Int("count", len(stored)),
	)
	return stored, nil
}

func (s *EventService) insert(ctx context.Context, cal *Calendar, events []models.Event) ([]models.Event, error) {
	stored := make([]models.Event, 0, len(events))
	err := mutate(ctx, cal, s.cache, s.metrics, func(tx *repository.EventTx) error {
		stored = stored[:0]
		for _, ev := range events {
			saved, err := tx.Insert(ev)
			if err != nil {
				return err
			}
			stored = append(stored, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *EventService) timedTemplate(req dto.CreateEventRequest) (models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Event{}, validationError(err)
	}
	start, end := models.Wall(req.Start), models.Wall(req.End)
	if !end.After(start) {
		return models.Event{}, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	ev := models.Event{Subject: req.Subject, Start: start, End: end, Description: req.Description}
	if err := applyEnums(&ev, req.Location, req.Status); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

func (s *EventService) allDayTemplate(req dto.CreateAllDayEventRequest) (models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Event{}, validationError(err)
	}
	start, end := models.AllDayBounds(req.Date)
	ev := models.Event{Subject: req.Subject, Start: start, End: end, AllDay: true, Description: req.Description}
	if err := applyEnums(&ev, req.Location, req.Status); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

func (s *EventService) reject(err error) error {
	s.metrics.RecordError(err)
	return err
}

func applyEnums(ev *models.Event, location, status string) error {
	if location != "" {
		loc, err := models.ParseLocation(location)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid location")
		}
		ev.Location = loc
	}
	if status != "" {
		st, err := models.ParseStatus(status)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status")
		}
		ev.Status = st
	}
	return nil
}
