package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/models"
	"github.com/noah-isme/calendar-manager/pkg/jobs"
)

type calendarLister interface {
	Get(name string) (*Calendar, error)
	Calendars() []*Calendar
}

type calendarExporter interface {
	Generate(ctx context.Context, cal *Calendar, format models.ExportFormat) (*models.ExportResult, error)
}

const defaultJobRetention = 24 * time.Hour

// ExportSchedulerConfig tunes the periodic export run.
type ExportSchedulerConfig struct {
	Formats         []models.ExportFormat
	Schedule        string
	Workers         int
	MaxRetries      int
	RetryDelay      time.Duration
	MetricsTextfile string
	// JobRetention is how long finished jobs stay listed by Jobs.
	JobRetention time.Duration
}

// ExportScheduler queues an export of every calendar in every configured
// format on a cron schedule and tracks the resulting jobs.
type ExportScheduler struct {
	calendars calendarLister
	exporter  calendarExporter
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportSchedulerConfig

	queue *jobs.Queue[models.ExportJob]
	cron  *cron.Cron

	mu      sync.RWMutex
	tracked map[string]*models.ExportJob
	now     func() time.Time
}

// NewExportScheduler constructs a scheduler. The schedule is validated by
// Start.
func NewExportScheduler(calendars calendarLister, exporter calendarExporter, cfg ExportSchedulerConfig, metrics *MetricsService, logger *zap.Logger) *ExportScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = []models.ExportFormat{models.ExportFormatICS}
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@hourly"
	}
	if cfg.JobRetention <= 0 {
		cfg.JobRetention = defaultJobRetention
	}
	s := &ExportScheduler{
		calendars: calendars,
		exporter:  exporter,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(),
		tracked:   make(map[string]*models.ExportJob),
		now:       time.Now,
	}
	s.queue = jobs.NewQueue[models.ExportJob]("calendar-exports", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	s.queue.OnFailure(s.fail)
	return s
}

// Start launches the workers and the cron trigger.
func (s *ExportScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.EnqueueAll(); err != nil {
			s.logger.Warn("scheduled export not queued", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", s.cfg.Schedule, err)
	}
	s.queue.Start(ctx)
	s.cron.Start()
	s.logger.Info("export scheduler started", zap.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop halts the trigger, waits for a running trigger to return and then
// drains the workers.
func (s *ExportScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.queue.Stop()
}

// EnqueueAll queues one job per calendar and format.
func (s *ExportScheduler) EnqueueAll() ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, cal := range s.calendars.Calendars() {
		for _, format := range s.cfg.Formats {
			job := models.ExportJob{
				ID:        uuid.NewString(),
				Calendar:  cal.Name(),
				Format:    format,
				Status:    models.ExportStatusQueued,
				CreatedAt: s.now().UTC(),
			}
			s.track(job)
			if err := s.queue.Enqueue(jobs.Job[models.ExportJob]{ID: job.ID, Payload: job}); err != nil {
				s.setStatus(job.ID, models.ExportStatusFailed, "", err)
				return queued, err
			}
			queued = append(queued, job)
		}
	}
	return queued, nil
}

// Jobs lists tracked jobs, newest first.
func (s *ExportScheduler) Jobs() []models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ExportJob, 0, len(s.tracked))
	for _, job := range s.tracked {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *ExportScheduler) handle(ctx context.Context, job jobs.Job[models.ExportJob]) error {
	payload := job.Payload
	s.setStatus(payload.ID, models.ExportStatusProcessing, "", nil)

	cal, err := s.calendars.Get(payload.Calendar)
	if err != nil {
		return err
	}
	result, err := s.exporter.Generate(ctx, cal, payload.Format)
	if err != nil {
		return err
	}
	s.setStatus(payload.ID, models.ExportStatusFinished, result.Path, nil)
	if err := s.metrics.WriteTextfile(s.cfg.MetricsTextfile); err != nil {
		s.logger.Warn("metrics textfile not written", zap.Error(err))
	}
	return nil
}

func (s *ExportScheduler) fail(job jobs.Job[models.ExportJob], err error) {
	s.setStatus(job.Payload.ID, models.ExportStatusFailed, "", err)
}

// track records job and forgets jobs that finished before the retention
// window.
func (s *ExportScheduler) track(job models.ExportJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().UTC().Add(-s.cfg.JobRetention)
	for id, old := range s.tracked {
		if old.FinishedAt != nil && old.FinishedAt.Before(cutoff) {
			delete(s.tracked, id)
		}
	}
	s.tracked[job.ID] = &job
}

func (s *ExportScheduler) setStatus(id string, status models.ExportStatus, path string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.tracked[id]
	if !ok {
		return
	}
	job.Status = status
	if path != "" {
		job.ResultPath = path
	}
	switch status {
	case models.ExportStatusFinished, models.ExportStatusFailed:
		finished := s.now().UTC()
		job.FinishedAt = &finished
	}
	if cause != nil {
		msg := cause.Error()
		job.ErrorMessage = &msg
	}
}
