package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/calendar-manager/pkg/config"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

func TestNewHonoursLevel(t *testing.T) {
	l, err := New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "warn", Format: "console"}})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestOperationLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	Operation(l, "create_calendar", time.Now(), nil, zap.String("calendar", "Work"))
	Operation(l, "create_calendar", time.Now(), appErrors.Clone(appErrors.ErrDuplicateCalendarName, "taken"))
	Operation(l, "snapshot", time.Now(), errors.New("db down"))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "Work", entries[0].ContextMap()["calendar"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, appErrors.ErrDuplicateCalendarName.Code, entries[1].ContextMap()["code"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}
