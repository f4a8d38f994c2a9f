package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/models"
)

type snapshotRepository interface {
	SaveCalendar(ctx context.Context, cal models.Calendar, events []models.Event) error
	ListCalendars(ctx context.Context) ([]models.Calendar, error)
	ListEvents(ctx context.Context, calendarID string) ([]models.Event, error)
}

type calendarRegistry interface {
	Restore(info models.Calendar) (*Calendar, error)
	Calendars() []*Calendar
}

// SnapshotService copies calendars to and from Postgres. It is a
// convenience across restarts, not a durability guarantee.
type SnapshotService struct {
	repo   snapshotRepository
	logger *zap.Logger
}

// NewSnapshotService constructs the service.
func NewSnapshotService(repo snapshotRepository, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{repo: repo, logger: logger}
}

// Save writes cal and all of its events.
func (s *SnapshotService) Save(ctx context.Context, cal *Calendar) error {
	events := cal.Store().All()
	if err := s.repo.SaveCalendar(ctx, cal.Info(), events); err != nil {
		return fmt.Errorf("snapshot calendar %s: %w", cal.Name(), err)
	}
	s.logger.Debug("calendar snapshot saved", calendarField(cal), zap.Int("events", len(events)))
	return nil
}

// SaveAll snapshots every registered calendar, stopping at the first error.
func (s *SnapshotService) SaveAll(ctx context.Context, calendars calendarRegistry) error {
	for _, cal := range calendars.Calendars() {
		if err := s.Save(ctx, cal); err != nil {
			return err
		}
	}
	return nil
}

// Restore registers every saved calendar with its events.
func (s *SnapshotService) Restore(ctx context.Context, calendars calendarRegistry) (int, error) {
	infos, err := s.repo.ListCalendars(ctx)
	if err != nil {
		return 0, fmt.Errorf("list calendar snapshots: %w", err)
	}
	for _, info := range infos {
		events, err := s.repo.ListEvents(ctx, info.ID)
		if err != nil {
			return 0, fmt.Errorf("list events of %s: %w", info.Name, err)
		}
		cal, err := calendars.Restore(info)
		if err != nil {
			return 0, fmt.Errorf("restore calendar %s: %w", info.Name, err)
		}
		if err := cal.Store().Restore(events); err != nil {
			return 0, fmt.Errorf("restore events of %s: %w", info.Name, err)
		}
		s.logger.Info("calendar restored", calendarField(cal), zap.Int("events", len(events)))
	}
	return len(infos), nil
}
