package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adwski/counterd"
	"github.com/adwski/counterd/internal/config"

	"github.com/spf13/pflag"
)

func main() {
	err := run(os.Args[1:])

	// help was requested, usage is already printed
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}

	_, _ = fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err //nolint:wrapcheck // unnecessary
	}

	log, flush, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("cannot create logger: %w", err)
	}
	defer flush()

	// create run context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := counterd.Open(ctx, counterd.Config{
		Address:       cfg.Address,
		HealthAddress: cfg.HealthAddress,
	},
		counterd.WithLogger(log),
		counterd.WithRequestTimeout(cfg.RequestTimeout),
		counterd.WithShutdownTimeout(cfg.ShutdownTimeout),
		counterd.WithAllowedOrigins(cfg.AllowedOrigins...))
	if err != nil {
		return fmt.Errorf("cannot start counterd: %w", err)
	}

	log.Info("counterd started", "address", svc.Addr().String())

	// owner runs until ctx is canceled
	<-ctx.Done()
	log.Info("received interrupt signal, shutting down")

	svc.Close() // blocks until all workers exit
	log.Info("shutdown complete")

	return nil
}
