package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
	"github.com/noah-isme/calendar-manager/pkg/export"
	"github.com/noah-isme/calendar-manager/pkg/storage"
)

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type agendaRenderer interface {
	Render(a export.Agenda) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	ResultTTL time.Duration
}

// ExportService renders calendars to files and signs share tokens for them.
type ExportService struct {
	storage   fileStorage
	signer    *storage.SignedURLSigner
	renderers map[models.ExportFormat]agendaRenderer
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the ics, csv and pdf
// renderers.
func NewExportService(files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		storage: files,
		signer:  signer,
		renderers: map[models.ExportFormat]agendaRenderer{
			models.ExportFormatICS: export.NewICSExporter(),
			models.ExportFormatCSV: export.NewCSVExporter(),
			models.ExportFormatPDF: export.NewPDFExporter(),
		},
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate renders every event of cal in format and stores the file under a
// name stable per calendar, replacing the previous export.
func (s *ExportService) Generate(ctx context.Context, cal *Calendar, format models.ExportFormat) (result *models.ExportResult, err error) {
	defer func() { s.metrics.RecordExport(format, err) }()

	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unsupported export format %q", format)
	}
	agenda := AgendaOf(cal, s.now().UTC())
	payload, err := renderer.Render(agenda)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render export")
	}
	path, err := s.storage.Save(exportFilename(cal, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store export")
	}
	token, expiresAt, err := s.signer.Generate(cal.Name(), path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign export")
	}

	s.logger.Info("calendar exported",
		calendarField(cal),
		zap.String("format", string(format)),
		zap.String("path", path),
		zap.Int("events", len(agenda.Entries)),
	)
	return &models.ExportResult{
		Calendar:    cal.Name(),
		Format:      format,
		Path:        path,
		Size:        int64(len(payload)),
		EventCount:  len(agenda.Entries),
		Token:       token,
		ExpiresAt:   expiresAt,
		GeneratedAt: agenda.GeneratedAt,
	}, nil
}

// ParseToken validates a share token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.ShareClaims, error) {
	claims, err := s.signer.Parse(token, allowExpired)
	if err != nil {
		return storage.ShareClaims{}, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "invalid share token")
	}
	return claims, nil
}

// Read returns the file a valid share token points at.
func (s *ExportService) Read(token string) ([]byte, error) {
	claims, err := s.ParseToken(token, false)
	if err != nil {
		return nil, err
	}
	return s.storage.Read(claims.Path)
}

// Cleanup removes files older than ttl, or the configured ResultTTL when
// ttl <= 0.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("stale exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// AgendaOf snapshots the events of cal for rendering.
func AgendaOf(cal *Calendar, generatedAt time.Time) export.Agenda {
	events := cal.Store().All()
	entries := make([]export.Entry, 0, len(events))
	for _, ev := range events {
		entries = append(entries, export.Entry{
			UID:         ev.ID,
			Subject:     ev.Subject,
			Start:       ev.Start,
			End:         ev.End,
			AllDay:      ev.AllDay,
			Description: ev.Description,
			Location:    string(ev.Location),
			Status:      string(ev.Status),
			SeriesID:    ev.SeriesID,
		})
	}
	return export.Agenda{
		Name:        cal.Name(),
		Timezone:    cal.Location(),
		Entries:     entries,
		GeneratedAt: generatedAt,
	}
}

func exportFilename(cal *Calendar, format models.ExportFormat) string {
	id := cal.ID()
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(cal.Name()), id, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
