package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/calendar-manager/pkg/config"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

func New(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == config.EnvProduction {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Log.Format {
	case "console":
		zapCfg.Encoding = "console"
	default:
		zapCfg.Encoding = "json"
	}

	if cfg.Log.Level != "" {
		if err := zapCfg.Level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

// Operation logs the outcome of a calendar operation that started at start.
// Caller faults are logged at Info with their error code, anything else at
// Error.
func Operation(l *zap.Logger, op string, start time.Time, err error, fields ...zap.Field) {
	if l == nil {
		return
	}
	fields = append(fields,
		zap.String("op", op),
		zap.Duration("latency", time.Since(start)),
	)
	if err == nil {
		l.Info("calendar_operation", fields...)
		return
	}
	appErr := appErrors.FromError(err)
	fields = append(fields, zap.String("code", appErr.Code), zap.Error(err))
	if appErr.Status >= 500 {
		l.Error("calendar_operation", fields...)
		return
	}
	l.Info("calendar_operation", fields...)
}
