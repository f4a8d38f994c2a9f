package service

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

// MetricsService holds the Prometheus collectors of the calendar core. All
// methods are safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	eventsCreated   *prometheus.CounterVec
	eventsEdited    *prometheus.CounterVec
	seriesSplits    prometheus.Counter
	eventsCopied    *prometheus.CounterVec
	operationErrors *prometheus.CounterVec
	calendars       prometheus.Gauge
	exports         *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the calendar collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		eventsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_events_created_total",
			Help: "Events stored by create, recurrence and import operations",
		}, []string{"kind"}),
		eventsEdited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_events_edited_total",
			Help: "Events changed by edit operations",
		}, []string{"scope"}),
		seriesSplits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "calendar_series_splits_total",
			Help: "Series split by from-date edits",
		}),
		eventsCopied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_events_copied_total",
			Help: "Events copied between calendars",
		}, []string{"mode"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_operation_errors_total",
			Help: "Rejected calendar operations by error code",
		}, []string{"code"}),
		calendars: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "calendar_calendars",
			Help: "Registered calendars",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "calendar_exports_total",
			Help: "Export renderings by format and result",
		}, []string{"format", "result"}),
	}

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calendar_agenda_cache_latency_seconds",
		Help:    "Latency of agenda cache lookups",
		Buckets: prometheus.DefBuckets,
	})
	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calendar_agenda_cache_write_seconds",
		Help:    "Latency of agenda cache writes",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agenda_cache_hits_total",
		Help: "Agenda cache hits",
	})
	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agenda_cache_misses_total",
		Help: "Agenda cache misses",
	})
	m.cacheLatency = cacheLatency
	m.cacheWrite = cacheWrite

	registry.MustRegister(
		m.eventsCreated, m.eventsEdited, m.seriesSplits, m.eventsCopied,
		m.operationErrors, m.calendars, m.exports,
		cacheLatency, cacheWrite, m.cacheHits, m.cacheMisses,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordCreated counts n stored events of the given kind.
func (m *MetricsService) RecordCreated(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsCreated.WithLabelValues(kind).Add(float64(n))
}

// RecordEdited counts n events changed under scope.
func (m *MetricsService) RecordEdited(scope models.EditScope, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsEdited.WithLabelValues(string(scope)).Add(float64(n))
}

// RecordSplit counts one series split.
func (m *MetricsService) RecordSplit() {
	if m == nil {
		return
	}
	m.seriesSplits.Inc()
}

// RecordCopied counts n copied events.
func (m *MetricsService) RecordCopied(mode string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.eventsCopied.WithLabelValues(mode).Add(float64(n))
}

// RecordError counts a rejected operation by its error code.
func (m *MetricsService) RecordError(err error) {
	if m == nil || err == nil {
		return
	}
	m.operationErrors.WithLabelValues(appErrors.FromError(err).Code).Inc()
}

// SetCalendars updates the calendar gauge.
func (m *MetricsService) SetCalendars(n int) {
	if m == nil {
		return
	}
	m.calendars.Set(float64(n))
}

// RecordExport counts an export attempt.
func (m *MetricsService) RecordExport(format models.ExportFormat, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.exports.WithLabelValues(string(format), result).Inc()
}

// RecordCacheOperation records an agenda cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks agenda cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *MetricsService) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
