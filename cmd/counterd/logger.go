package main

import (
	"os"

	"github.com/adwski/counterd/internal/config"
	"github.com/adwski/counterd/internal/logger"
	logruslogger "github.com/adwski/counterd/internal/logger/logrus"
	zaplogger "github.com/adwski/counterd/internal/logger/zap"
	zerologger "github.com/adwski/counterd/internal/logger/zerolog"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger creates logger facade with backend selected by config.
// Backends log everything, level filtering is done by the facade.
// Returned func flushes buffered records.
func newLogger(cfg *config.Config) (logger.Logger, func(), error) {
	var (
		ext   logger.External
		flush = func() {}
	)

	switch cfg.Logger {
	case config.LoggerZap:
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		zl, err := zc.Build()
		if err != nil {
			return logger.Logger{}, nil, err //nolint:wrapcheck // unnecessary
		}
		ext = zaplogger.NewLogger(zl)
		flush = func() { _ = zl.Sync() }

	case config.LoggerLogrus:
		ll := logrus.New()
		ll.SetOutput(os.Stdout)
		ll.SetFormatter(&logrus.JSONFormatter{})
		ll.SetLevel(logrus.TraceLevel)
		ext = logruslogger.NewLogger(ll)

	default:
		ext = zerologger.NewLogger(zerolog.New(os.Stdout).
			Level(zerolog.TraceLevel).
			With().Timestamp().Logger())
	}

	l, err := logger.NewWithLevel(ext, cfg.LogLevel)
	if err != nil {
		return logger.Logger{}, nil, err //nolint:wrapcheck // unnecessary
	}

	return l, flush, nil
}
