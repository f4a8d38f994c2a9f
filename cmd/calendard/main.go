package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-manager/internal/dto"
	"github.com/noah-isme/calendar-manager/internal/models"
	"github.com/noah-isme/calendar-manager/internal/repository"
	"github.com/noah-isme/calendar-manager/internal/service"
	"github.com/noah-isme/calendar-manager/pkg/cache"
	"github.com/noah-isme/calendar-manager/pkg/config"
	"github.com/noah-isme/calendar-manager/pkg/database"
	"github.com/noah-isme/calendar-manager/pkg/logger"
	"github.com/noah-isme/calendar-manager/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("calendard failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	validate := validator.New()
	dto.RegisterValidations(validate)
	metrics := service.NewMetricsService()
	manager := service.NewCalendarManager(validate, metrics, logr)

	agendaCache := service.NewCacheService(nil, metrics, cfg.Agenda.CacheTTL, logr, false)
	if cfg.Agenda.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		agendaCache = service.NewCacheService(repository.NewCacheRepository(client), metrics, cfg.Agenda.CacheTTL, logr, true)
	}

	var snapshots *service.SnapshotService
	if cfg.Snapshots.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := repository.NewSnapshotRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		snapshots = service.NewSnapshotService(repo, logr)
		restored, err := snapshots.Restore(ctx, manager)
		if err != nil {
			return err
		}
		logr.Info("snapshots restored", zap.Int("calendars", restored))
	}

	importer := service.NewImportService(agendaCache, metrics, logr)
	if err := bootstrap(ctx, cfg, manager, importer); err != nil {
		return err
	}

	var scheduler *service.ExportScheduler
	if cfg.Exports.Enabled {
		var err error
		scheduler, err = startExports(ctx, cfg, manager, metrics, logr)
		if err != nil {
			return err
		}
	}

	logr.Info("calendard ready", zap.Int("calendars", len(manager.List())), zap.String("env", cfg.Env))
	<-ctx.Done()
	logr.Info("calendard shutting down")

	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if snapshots != nil {
		if err := snapshots.SaveAll(shutdownCtx, manager); err != nil {
			logr.Error("snapshot on shutdown failed", zap.Error(err))
		}
	}
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logr.Warn("metrics textfile not written", zap.Error(err))
	}
	return nil
}

// bootstrap creates the manifest's calendars that snapshots did not bring
// back and loads their import files.
func bootstrap(ctx context.Context, cfg *config.Config, manager *service.CalendarManager, importer *service.ImportService) error {
	manifest, err := config.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return err
	}
	for _, entry := range manifest.Calendars {
		if _, err := manager.Get(entry.Name); err == nil {
			continue
		}
		tz := entry.Timezone
		if tz == "" {
			tz = cfg.DefaultTimezone
		}
		cal, err := manager.CreateCalendar(ctx, dto.CreateCalendarRequest{Name: entry.Name, Timezone: tz})
		if err != nil {
			return err
		}
		if entry.Import == "" {
			continue
		}
		if err := importFile(ctx, importer, cal, entry.Import); err != nil {
			return err
		}
	}
	if manifest.Current != "" {
		if _, err := manager.UseCalendar(ctx, manifest.Current); err != nil {
			return err
		}
	}
	return nil
}

func importFile(ctx context.Context, importer *service.ImportService, cal *service.Calendar, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import for %s: %w", cal.Name(), err)
	}
	defer f.Close()
	_, err = importer.ImportICS(ctx, cal, f)
	return err
}

func startExports(ctx context.Context, cfg *config.Config, manager *service.CalendarManager, metrics *service.MetricsService, logr *zap.Logger) (*service.ExportScheduler, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(files, signer, service.ExportConfig{ResultTTL: cfg.Exports.SignedURLTTL}, metrics, logr)
	if _, err := exporter.Cleanup(0); err != nil {
		logr.Warn("export cleanup failed", zap.Error(err))
	}

	formats := make([]models.ExportFormat, 0, len(cfg.Exports.Formats))
	for _, raw := range cfg.Exports.Formats {
		format, err := models.ParseExportFormat(raw)
		if err != nil {
			return nil, err
		}
		formats = append(formats, format)
	}
	scheduler := service.NewExportScheduler(manager, exporter, service.ExportSchedulerConfig{
		Formats:         formats,
		Schedule:        cfg.Exports.Schedule,
		Workers:         cfg.Exports.WorkerConcurrency,
		MaxRetries:      cfg.Exports.WorkerRetries,
		JobRetention:    cfg.Exports.JobRetention,
		MetricsTextfile: cfg.MetricsTextfile,
	}, metrics, logr)
	if err := scheduler.Start(ctx); err != nil {
		return nil, err
	}
	return scheduler, nil
}
