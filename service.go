package counterd

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/adwski/counterd/internal/gateway"
	"github.com/adwski/counterd/internal/health"
	"github.com/adwski/counterd/internal/logger"
	"github.com/adwski/counterd/internal/owner"
)

var (
	ErrAddressEmpty = errors.New("address is empty")
	ErrGatewayInit  = errors.New("unable to init gateway")
	ErrHealthInit   = errors.New("unable to init health service")
)

type (
	// Service glues together counter owner and its external interfaces.
	Service struct {
		logger logger.Logger

		owner   *owner.Owner
		gateway *gateway.Gateway
		health  *health.Service

		wg     *sync.WaitGroup
		cancel context.CancelFunc
	}
)

func Open(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	svc, err := newService(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}

	if svc.health != nil {
		if err = svc.health.Init(); err != nil {
			return nil, errors.Join(ErrHealthInit, err)
		}
	}
	if err = svc.gateway.Init(); err != nil {
		if svc.health != nil {
			_ = svc.health.Close()
		}
		return nil, errors.Join(ErrGatewayInit, err)
	}

	var runCtx context.Context
	runCtx, svc.cancel = context.WithCancel(ctx)

	svc.wg.Add(1)
	go svc.owner.Run(runCtx, svc.wg)

	svc.wg.Add(1)
	go svc.gateway.Run(runCtx, svc.wg)

	if svc.health != nil {
		svc.wg.Add(1)
		go svc.health.Run(runCtx, svc.wg)
	}

	return svc, nil
}

func newService(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	if cfg.Address == "" {
		return nil, ErrAddressEmpty
	}

	cfg.setDefaults()

	for _, opt := range opts {
		if err := opt(ctx, &cfg); err != nil {
			return nil, err
		}
	}

	o := owner.New(owner.Config{
		Logger: cfg.logger.With("component", "owner"),
	})

	svc := &Service{
		logger: cfg.logger,
		owner:  o,
		gateway: gateway.New(gateway.Config{
			Logger:          cfg.logger.With("component", "gateway"),
			Counter:         o.Handle(),
			Stats:           o.Stats(),
			Address:         cfg.Address,
			AllowedOrigins:  cfg.allowedOrigins,
			RequestTimeout:  cfg.requestTimeout,
			ShutdownTimeout: cfg.shutdownTimeout,
			CongestionHigh:  cfg.congestionHigh,
			CongestionLow:   cfg.congestionLow,
		}),
		wg: &sync.WaitGroup{},
	}

	if cfg.HealthAddress != "" {
		svc.health = health.New(health.Config{
			Logger:    cfg.logger.With("component", "health"),
			OwnerDone: o.Done(),
			Address:   cfg.HealthAddress,
		})
	}

	return svc, nil
}

// Handle gives in-process access to counter operations.
func (s *Service) Handle() *owner.Handle {
	return s.owner.Handle()
}

// Done is closed when counter owner stops.
func (s *Service) Done() <-chan struct{} {
	return s.owner.Done()
}

// Addr returns HTTP listen address.
func (s *Service) Addr() net.Addr {
	return s.gateway.Addr()
}

// HealthAddr returns gRPC health listen address, nil if health service is disabled.
func (s *Service) HealthAddr() net.Addr {
	if s.health == nil {
		return nil
	}
	return s.health.Addr()
}

// Close stops all workers and blocks until they exit.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
	s.logger.Debug("service closed")
}
