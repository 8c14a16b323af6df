package counterd

import (
	"context"
	"time"

	"github.com/adwski/counterd/internal/logger"
	logruslogger "github.com/adwski/counterd/internal/logger/logrus"
	"github.com/adwski/counterd/internal/logger/noop"
	zaplogger "github.com/adwski/counterd/internal/logger/zap"
	zerologger "github.com/adwski/counterd/internal/logger/zerolog"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

const (
	defaultShutdownTimeout = 5 * time.Second
)

type (
	Config struct {
		logger logger.Logger

		allowedOrigins []string

		requestTimeout  time.Duration
		shutdownTimeout time.Duration

		congestionHigh int64
		congestionLow  int64

		// Address is HTTP listen address.
		Address string
		// HealthAddress is gRPC health listen address.
		// Health service is not started if empty.
		HealthAddress string
	}
	Option func(context.Context, *Config) error
)

func (cfg *Config) setDefaults() {
	cfg.logger = logger.New(noop.NewLogger())
	cfg.shutdownTimeout = defaultShutdownTimeout
}

func WithLogger(log logger.Logger) Option {
	return func(ctx context.Context, cfg *Config) error {
		cfg.logger = log
		return nil
	}
}

func WithZeroLogger(log zerolog.Logger, level string) Option {
	return withExternal(zerologger.NewLogger(log), level)
}

func WithZapLogger(log *zap.Logger, level string) Option {
	return withExternal(zaplogger.NewLogger(log), level)
}

func WithLogrusLogger(log *logrus.Logger, level string) Option {
	return withExternal(logruslogger.NewLogger(log), level)
}

func withExternal(ext logger.External, level string) Option {
	return func(ctx context.Context, cfg *Config) error {
		l, err := logger.NewWithLevel(ext, level)
		if err != nil {
			return err //nolint:wrapcheck // unnecessary
		}
		cfg.logger = l
		return nil
	}
}

// WithRequestTimeout bounds every rendezvous made on behalf of a client.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(ctx context.Context, cfg *Config) error {
		cfg.requestTimeout = timeout
		return nil
	}
}

func WithShutdownTimeout(timeout time.Duration) Option {
	return func(ctx context.Context, cfg *Config) error {
		cfg.shutdownTimeout = timeout
		return nil
	}
}

func WithAllowedOrigins(origins ...string) Option {
	return func(ctx context.Context, cfg *Config) error {
		cfg.allowedOrigins = origins
		return nil
	}
}

// WithCongestionThresholds sets amounts of waiting requests at which
// gateway reports congestion (hi) and stops reporting it (lo).
func WithCongestionThresholds(hi, lo int64) Option {
	return func(ctx context.Context, cfg *Config) error {
		cfg.congestionHigh = hi
		cfg.congestionLow = lo
		return nil
	}
}
