// Package config assembles counterd configuration from
// an optional YAML file and command line flags.
// Flags explicitly set on the command line take precedence over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/adwski/counterd/internal/logger"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

const (
	LoggerZerolog = "zerolog"
	LoggerZap     = "zap"
	LoggerLogrus  = "logrus"

	defaultAddress         = "0.0.0.0:3000"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 5 * time.Second
)

var (
	ErrInvalidLogger   = errors.New("invalid logger")
	ErrInvalidLevel    = errors.New("invalid log level")
	ErrInvalidTimeout  = errors.New("timeout must not be negative")
	ErrAddressEmpty    = errors.New("address is empty")
	ErrConfigFile      = errors.New("unable to read config file")
	ErrConfigFileParse = errors.New("unable to parse config file")
)

type Config struct {
	Address         string        `yaml:"address"`
	HealthAddress   string        `yaml:"health_address"`
	LogLevel        string        `yaml:"log_level"`
	Logger          string        `yaml:"logger"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func Default() *Config {
	return &Config{
		Address:         defaultAddress,
		LogLevel:        defaultLogLevel,
		Logger:          LoggerZerolog,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Parse builds configuration from command line args (without program name).
// pflag.ErrHelp is returned as is when help was requested.
func Parse(args []string) (*Config, error) {
	cfg := Default()

	var (
		fs = pflag.NewFlagSet("counterd", pflag.ContinueOnError)

		file            = fs.StringP("config", "c", "", "YAML config file")
		address         = fs.StringP("address", "a", cfg.Address, "HTTP listen address")
		healthAddress   = fs.StringP("health-address", "g", cfg.HealthAddress, "gRPC health listen address, empty disables health service")
		logLevel        = fs.StringP("log-level", "l", cfg.LogLevel, "Log level: error|info|debug|trace")
		loggerName      = fs.String("logger", cfg.Logger, "Logger backend: zerolog|zap|logrus")
		allowedOrigins  = fs.StringSlice("allowed-origins", nil, "CORS allowed origins, empty allows any")
		requestTimeout  = fs.DurationP("request-timeout", "t", cfg.RequestTimeout, "Counter request timeout, 0 waits indefinitely")
		shutdownTimeout = fs.Duration("shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	)

	if err := fs.Parse(args); err != nil {
		return nil, err //nolint:wrapcheck // ErrHelp is checked by caller
	}

	if *file != "" {
		if err := cfg.readYAML(*file); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "address":
			cfg.Address = *address
		case "health-address":
			cfg.HealthAddress = *healthAddress
		case "log-level":
			cfg.LogLevel = *logLevel
		case "logger":
			cfg.Logger = *loggerName
		case "allowed-origins":
			cfg.AllowedOrigins = *allowedOrigins
		case "request-timeout":
			cfg.RequestTimeout = *requestTimeout
		case "shutdown-timeout":
			cfg.ShutdownTimeout = *shutdownTimeout
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readYAML reads in the external YAML config file on top of current values.
func (cfg *Config) readYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrConfigFile, err)
	}
	if err = yaml.UnmarshalStrict(data, cfg); err != nil {
		return errors.Join(ErrConfigFileParse, err)
	}

	return nil
}

func (cfg *Config) Validate() error {
	if cfg.Address == "" {
		return ErrAddressEmpty
	}
	switch cfg.Logger {
	case LoggerZerolog, LoggerZap, LoggerLogrus:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogger, cfg.Logger)
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, cfg.LogLevel)
	}
	if cfg.RequestTimeout < 0 || cfg.ShutdownTimeout < 0 {
		return ErrInvalidTimeout
	}

	return nil
}
