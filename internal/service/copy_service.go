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
	"github.com/noah-isme/calendar-manager/pkg/logger"
)

// Copy modes reported to calendar_events_copied_total.
const (
	CopyModeSingle = "single"
	CopyModeDate   = "date"
	CopyModeRange  = "range"
)

// calendarDirectory resolves the source and target calendars of a copy.
type calendarDirectory interface {
	Current() (*Calendar, error)
	Get(name string) (*Calendar, error)
}

// CopyService copies events from the current calendar into another one.
// The source is only read; the target is written in one transaction per
// call so a batch is applied whole or not at all.
type CopyService struct {
	calendars calendarDirectory
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCopyService constructs the service.
func NewCopyService(calendars calendarDirectory, validate *validator.Validate, cache *CacheService, metrics *MetricsService, log *zap.Logger) *CopyService {
	if validate == nil {
		validate = validator.New()
	}
	dto.RegisterValidations(validate)
	if log == nil {
		log = zap.NewNop()
	}
	return &CopyService{calendars: calendars, validator: validate, cache: cache, metrics: metrics, logger: log}
}

// CopyEvent copies one event of the current calendar. TargetStart is taken
// as a wall-clock time in the target calendar; no zone conversion applies.
// Timed events keep their duration, all-day events get the business-hours
// block of the target date. The copy belongs to no series.
func (s *CopyService) CopyEvent(ctx context.Context, req dto.CopyEventRequest) (copied *models.Event, err error) {
	defer s.observe("copy_event", time.Now(), &err, zap.String("subject", req.Subject), zap.String("target", req.TargetCalendar))

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	source, err := s.calendars.Current()
	if err != nil {
		return nil, err
	}
	ev, ok := source.Store().Get(models.NewEventKey(req.Subject, req.SourceStart))
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrNotFound, "event %q at %s not found in %q",
			req.Subject, req.SourceStart.Format("2006-01-02T15:04"), source.Name())
	}
	target, err := s.calendars.Get(req.TargetCalendar)
	if err != nil {
		return nil, err
	}

	out := ev.Clone()
	out.ID = ""
	out.SeriesID = nil
	if ev.AllDay {
		out.Start, out.End = models.AllDayBounds(req.TargetStart)
	} else {
		out.Start = models.Wall(req.TargetStart)
		out.End = out.Start.Add(ev.Duration())
	}

	var stored models.Event
	err = mutate(ctx, target, s.cache, nil, func(tx *repository.EventTx) error {
		stored, err = tx.Insert(out)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCopied(CopyModeSingle, 1)
	return &stored, nil
}

// CopyEventsOnDate copies every event starting on Date onto TargetDate,
// converting each time of day from the source zone to the target zone.
func (s *CopyService) CopyEventsOnDate(ctx context.Context, req dto.CopyDateRequest) (copied []models.Event, err error) {
	defer s.observe("copy_events_on_date", time.Now(), &err, zap.String("target", req.TargetCalendar))

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	source, err := s.calendars.Current()
	if err != nil {
		return nil, err
	}
	target, err := s.calendars.Get(req.TargetCalendar)
	if err != nil {
		return nil, err
	}
	srcLoc, dstLoc := source.Location(), target.Location()
	copied, err = s.copyBatch(ctx, target, source.Store().OnDate(req.Date), func(ev models.Event) models.Event {
		return reanchorEvent(ev, req.TargetDate, srcLoc, dstLoc)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCopied(CopyModeDate, len(copied))
	return copied, nil
}

// CopyEventsBetweenDates copies every event starting within the whole days
// [StartDate, EndDate], shifted by the day offset between StartDate and
// TargetStart, then zone-converted.
func (s *CopyService) CopyEventsBetweenDates(ctx context.Context, req dto.CopyRangeRequest) (copied []models.Event, err error) {
	defer s.observe("copy_events_between_dates", time.Now(), &err, zap.String("target", req.TargetCalendar))

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	from, to := models.DateOf(req.StartDate), models.DateOf(req.EndDate)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}
	source, err := s.calendars.Current()
	if err != nil {
		return nil, err
	}
	target, err := s.calendars.Get(req.TargetCalendar)
	if err != nil {
		return nil, err
	}
	events := source.Store().InRange(from, to.AddDate(0, 0, 1).Add(-time.Second))
	offset := models.DaysBetween(from, req.TargetStart)
	srcLoc, dstLoc := source.Location(), target.Location()
	copied, err = s.copyBatch(ctx, target, events, func(ev models.Event) models.Event {
		return shiftEvent(ev, offset, srcLoc, dstLoc)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCopied(CopyModeRange, len(copied))
	return copied, nil
}

// copyBatch inserts the placed events into target. Source series are
// remapped to fresh target ids valid for this call only. Any collision,
// including between two events of the batch, rejects the batch.
func (s *CopyService) copyBatch(ctx context.Context, target *Calendar, events []models.Event, place func(models.Event) models.Event) ([]models.Event, error) {
	stored := make([]models.Event, 0, len(events))
	err := mutate(ctx, target, s.cache, nil, func(tx *repository.EventTx) error {
		stored = stored[:0]
		remap := make(map[int64]int64)
		for _, ev := range events {
			out := place(ev)
			if ev.SeriesID != nil {
				id, ok := remap[*ev.SeriesID]
				if !ok {
					id = tx.NextSeriesID()
					remap[*ev.SeriesID] = id
				}
				out.SeriesID = &id
			}
			saved, err := tx.Insert(out)
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

// shiftEvent moves ev by offsetDays and converts its wall-clock time from
// srcLoc to dstLoc. All-day events stay a business-hours block on the
// shifted date.
func shiftEvent(ev models.Event, offsetDays int, srcLoc, dstLoc *time.Location) models.Event {
	out := ev.Clone()
	out.ID = ""
	out.SeriesID = nil
	if ev.AllDay {
		out.Start, out.End = models.AllDayBounds(ev.Start.AddDate(0, 0, offsetDays))
		return out
	}
	out.Start = ConvertWall(ev.Start.AddDate(0, 0, offsetDays), srcLoc, dstLoc)
	out.End = out.Start.Add(ev.Duration())
	return out
}

// reanchorEvent converts the time of day of ev from srcLoc to dstLoc and
// puts it on date, so the copy always starts on date even when the
// conversion crosses midnight. All-day events become the business-hours
// block of date.
func reanchorEvent(ev models.Event, date time.Time, srcLoc, dstLoc *time.Location) models.Event {
	out := ev.Clone()
	out.ID = ""
	out.SeriesID = nil
	if ev.AllDay {
		out.Start, out.End = models.AllDayBounds(date)
		return out
	}
	clock := ConvertWall(ev.Start, srcLoc, dstLoc)
	day := models.DateOf(date)
	out.Start = time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
	out.End = out.Start.Add(ev.Duration())
	return out
}

// ConvertWall reads the wall-clock fields of t in from and returns the wall
// clock showing the same instant in to.
func ConvertWall(t time.Time, from, to *time.Location) time.Time {
	instant := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, from)
	return models.Wall(instant.In(to))
}

func (s *CopyService) observe(op string, start time.Time, err *error, fields ...zap.Field) {
	if *err != nil {
		s.metrics.RecordError(*err)
	}
	logger.Operation(s.logger, op, start, *err, fields...)
}
