package service

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/models"
	"github.com/noah-isme/calendar-manager/internal/repository"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
	"github.com/noah-isme/calendar-manager/pkg/export"
)

type icsParser interface {
	Parse(r io.Reader, loc *time.Location) ([]export.Entry, error)
}

// ImportService loads iCalendar files into a calendar.
type ImportService struct {
	parser  icsParser
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewImportService constructs the service.
func NewImportService(cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{parser: export.NewICSExporter(), cache: cache, metrics: metrics, logger: logger}
}

// ImportICS inserts every VEVENT of r into cal. Timed values are read in
// the calendar's timezone. Series ids found in the file are remapped to
// fresh ids of cal. Any invalid or colliding event rejects the import.
func (s *ImportService) ImportICS(ctx context.Context, cal *Calendar, r io.Reader) ([]models.Event, error) {
	entries, err := s.parser.Parse(r, cal.Location())
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ics")
		s.metrics.RecordError(err)
		return nil, err
	}
	events := make([]models.Event, 0, len(entries))
	for _, entry := range entries {
		ev, err := eventFromEntry(entry)
		if err != nil {
			s.metrics.RecordError(err)
			return nil, err
		}
		events = append(events, ev)
	}

	stored := make([]models.Event, 0, len(events))
	err = mutate(ctx, cal, s.cache, s.metrics, func(tx *repository.EventTx) error {
		stored = stored[:0]
		remap := make(map[int64]int64)
		for _, ev := range events {
			if ev.SeriesID != nil {
				id, ok := remap[*ev.SeriesID]
				if !ok {
					id = tx.NextSeriesID()
					remap[*ev.SeriesID] = id
				}
				ev.SeriesID = &id
			}
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

	s.metrics.RecordCreated(KindImported, len(stored))
	s.logger.Info("calendar imported", calendarField(cal), zap.Int("count", len(stored)))
	return stored, nil
}

// eventFromEntry validates a parsed VEVENT. Unknown location or status
// values are dropped rather than failing the file.
func eventFromEntry(entry export.Entry) (models.Event, error) {
	if strings.TrimSpace(entry.Subject) == "" {
		return models.Event{}, appErrors.Clonef(appErrors.ErrValidation, "event %s has no summary", entry.UID)
	}
	ev := models.Event{
		Subject:     entry.Subject,
		Description: entry.Description,
		SeriesID:    entry.SeriesID,
	}
	if entry.AllDay {
		ev.AllDay = true
		ev.Start, ev.End = models.AllDayBounds(entry.Start)
	} else {
		ev.Start, ev.End = models.Wall(entry.Start), models.Wall(entry.End)
		if !ev.End.After(ev.Start) {
			return models.Event{}, appErrors.Clonef(appErrors.ErrValidation, "event %q ends before it starts", entry.Subject)
		}
	}
	if loc, err := models.ParseLocation(entry.Location); err == nil {
		ev.Location = loc
	}
	if st, err := models.ParseStatus(entry.Status); err == nil {
		ev.Status = st
	}
	return ev, nil
}
