package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

func TestMetricsServiceNilReceiver(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordCreated(KindTimed, 1)
		m.RecordEdited(models.EditScopeSingle, 1)
		m.RecordSplit()
		m.RecordCopied(CopyModeSingle, 1)
		m.RecordError(errors.New("boom"))
		m.SetCalendars(3)
		m.RecordExport(models.ExportFormatICS, nil)
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveCacheWrite(time.Millisecond)
	})
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/calendar.prom"))
}

func TestMetricsServiceCountsByLabel(t *testing.T) {
	m := NewMetricsService()

	m.RecordCreated(KindRecurringTimed, 3)
	m.RecordCreated(KindRecurringTimed, 0)
	m.RecordEdited(models.EditScopeFromDate, 2)
	m.RecordError(appErrors.Clone(appErrors.ErrDuplicateEvent, "dup"))
	m.RecordError(errors.New("plain"))
	m.RecordExport(models.ExportFormatPDF, errors.New("render"))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.eventsCreated.WithLabelValues(KindRecurringTimed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsEdited.WithLabelValues("from_date")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationErrors.WithLabelValues("DUPLICATE_EVENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationErrors.WithLabelValues(appErrors.ErrInternal.Code)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("pdf", "error")))
}

func TestMetricsServiceWriteTextfile(t *testing.T) {
	m := NewMetricsService()
	m.SetCalendars(2)
	path := filepath.Join(t.TempDir(), "calendar.prom")

	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "calendar_calendars 2")
}
