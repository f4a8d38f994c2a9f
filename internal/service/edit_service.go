package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/dto"
	"github.com/noah-isme/calendar-manager/internal/models"
	"github.com/noah-isme/calendar-manager/internal/repository"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

// EditService changes events under one of three scopes: the anchor alone,
// the anchor's series from the anchor's date on, or the whole series.
type EditService struct {
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEditService constructs the service.
func NewEditService(validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *EditService {
	if validate == nil {
		validate = validator.New()
	}
	dto.RegisterValidations(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EditService{validator: validate, cache: cache, metrics: metrics, logger: logger}
}

// change is a parsed property edit. Start and end edits are applied as the
// anchor's delta so that every member of a multi-event edit moves alike.
type change struct {
	property models.EventProperty
	text     string
	location models.Location
	status   models.Status
	at       time.Time
}

// EditSingle changes the anchor only; series membership is untouched.
func (s *EditService) EditSingle(ctx context.Context, cal *Calendar, req dto.EditEventRequest) ([]models.Event, error) {
	return s.edit(ctx, cal, req, models.EditScopeSingle)
}

// EditFromDate changes the anchor's series members starting on or after the
// anchor's date and moves them to a fresh series. Earlier members keep the
// old id. Without a series it behaves like EditSingle.
func (s *EditService) EditFromDate(ctx context.Context, cal *Calendar, req dto.EditEventRequest) ([]models.Event, error) {
	return s.edit(ctx, cal, req, models.EditScopeFromDate)
}

// EditSeries changes every member of the anchor's series. Without a series it
// behaves like EditSingle.
func (s *EditService) EditSeries(ctx context.Context, cal *Calendar, req dto.EditEventRequest) ([]models.Event, error) {
	return s.edit(ctx, cal, req, models.EditScopeSeries)
}

func (s *EditService) edit(ctx context.Context, cal *Calendar, req dto.EditEventRequest, scope models.EditScope) ([]models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(validationError(err))
	}
	c, err := parseChange(req.Property, req.Value)
	if err != nil {
		return nil, s.reject(err)
	}

	var updated []models.Event
	split := false
	err = mutate(ctx, cal, s.cache, s.metrics, func(tx *repository.EventTx) error {
		anchor, ok := tx.Get(models.NewEventKey(req.Subject, req.Start))
		if !ok || (req.End != nil && !anchor.End.Equal(models.Wall(*req.End))) {
			return appErrors.Clonef(appErrors.ErrNotFound, "event %q at %s not found", req.Subject, req.Start.Format("2006-01-02T15:04"))
		}

		targets := []models.Event{anchor}
		var newSeries *int64
		if anchor.SeriesID != nil {
			switch scope {
			case models.EditScopeSeries:
				targets = tx.Series(*anchor.SeriesID)
			case models.EditScopeFromDate:
				targets = targets[:0]
				anchorDay := models.DateOf(anchor.Start)
				for _, member := range tx.Series(*anchor.SeriesID) {
					if !models.DateOf(member.Start).Before(anchorDay) {
						targets = append(targets, member)
					}
				}
				id := tx.NextSeriesID()
				newSeries = &id
				split = true
			}
		}

		mutated := make([]models.Event, 0, len(targets))
		for _, ev := range targets {
			next, err := c.apply(ev, anchor)
			if err != nil {
				return err
			}
			if newSeries != nil {
				id := *newSeries
				next.SeriesID = &id
			}
			mutated = append(mutated, next)
		}
		// Remove every target before re-inserting so members shifted onto
		// each other's old slot do not collide.
		for _, ev := range targets {
			if err := tx.Delete(ev.Key()); err != nil {
				return err
			}
		}
		updated = updated[:0]
		for _, ev := range mutated {
			saved, err := tx.Insert(ev)
			if err != nil {
				return err
			}
			updated = append(updated, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEdited(scope, len(updated))
	if split {
		s.metrics.RecordSplit()
	}
	fields := []zap.Field{
		calendarField(cal),
		zap.String("subject", req.Subject),
		zap.String("scope", string(scope)),
		zap.String("property", string(c.property)),
		zap.Int("count", len(updated)),
	}
	if split && len(updated) > 0 {
		fields = append(fields, zap.Int64("series_id", *updated[0].SeriesID))
	}
	s.logger.Info("events edited", fields...)
	return updated, nil
}

func (s *EditService) reject(err error) error {
	s.metrics.RecordError(err)
	return err
}

func parseChange(property, value string) (change, error) {
	prop, ok := models.LookupEventProperty(property)
	if !ok {
		return change{}, appErrors.Clonef(appErrors.ErrUnknownProperty, "unknown property %q", property)
	}
	c := change{property: prop}
	switch prop {
	case models.PropertySubject:
		if strings.TrimSpace(value) == "" {
			return change{}, appErrors.Clone(appErrors.ErrValidation, "subject must not be blank")
		}
		c.text = value
	case models.PropertyDescription:
		c.text = value
	case models.PropertyLocation:
		loc, err := models.ParseLocation(value)
		if err != nil {
			return change{}, appErrors.Wrap(err, appErrors.ErrInvalidPropertyValue.Code, appErrors.ErrInvalidPropertyValue.Status, "invalid location "+value)
		}
		c.location = loc
	case models.PropertyStatus:
		st, err := models.ParseStatus(value)
		if err != nil {
			return change{}, appErrors.Wrap(err, appErrors.ErrInvalidPropertyValue.Code, appErrors.ErrInvalidPropertyValue.Status, "invalid status "+value)
		}
		c.status = st
	case models.PropertyStart, models.PropertyEnd:
		at, err := models.ParseTimestamp(value)
		if err != nil {
			return change{}, appErrors.Wrap(err, appErrors.ErrInvalidPropertyValue.Code, appErrors.ErrInvalidPropertyValue.Status, "invalid timestamp "+value)
		}
		c.at = at
	}
	return c, nil
}

// apply returns ev with the change applied, using anchor to compute the
// shift of start and end edits.
func (c change) apply(ev, anchor models.Event) (models.Event, error) {
	out := ev.Clone()
	switch c.property {
	case models.PropertySubject:
		out.Subject = c.text
	case models.PropertyDescription:
		out.Description = c.text
	case models.PropertyLocation:
		out.Location = c.location
	case models.PropertyStatus:
		out.Status = c.status
	case models.PropertyStart:
		out.Start = ev.Start.Add(c.at.Sub(anchor.Start))
		if !out.End.After(out.Start) {
			return models.Event{}, appErrors.Clonef(appErrors.ErrValidation, "start of %s would not be before its end", ev)
		}
	case models.PropertyEnd:
		out.End = ev.End.Add(c.at.Sub(anchor.End))
		if !out.End.After(out.Start) {
			return models.Event{}, appErrors.Clonef(appErrors.ErrValidation, "end of %s would not be after its start", ev)
		}
	}
	if out.AllDay {
		blockStart, blockEnd := models.AllDayBounds(out.Start)
		out.AllDay = out.Start.Equal(blockStart) && out.End.Equal(blockEnd)
	}
	return out, nil
}
