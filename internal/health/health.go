// Package health serves grpc.health.v1 reflecting counter owner liveness.
package health

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/adwski/counterd/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const ServiceName = "counterd"

var (
	ErrListen = errors.New("unable to listen")
)

type (
	Service struct {
		logger logger.Logger

		server   *grpc.Server
		health   *health.Server
		listener net.Listener

		ownerDone <-chan struct{}

		address string
	}

	Config struct {
		Logger logger.Logger

		// OwnerDone is closed when counter owner stops.
		OwnerDone <-chan struct{}

		Address string
	}
)

func New(cfg Config) *Service {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &Service{
		logger:    cfg.Logger,
		server:    srv,
		health:    hs,
		ownerDone: cfg.OwnerDone,
		address:   cfg.Address,
	}
}

// Init binds listening socket.
func (s *Service) Init() error {
	l, err := net.Listen("tcp", s.address)
	if err != nil {
		return errors.Join(ErrListen, err)
	}
	s.listener = l

	return nil
}

// Close releases listener of service that was initialized but not run.
func (s *Service) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close() //nolint:wrapcheck // unnecessary
}

func (s *Service) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve serves health checks on provided listener until ctx is canceled.
// It is used directly with in-memory listeners.
func (s *Service) Serve(ctx context.Context, wg *sync.WaitGroup, l net.Listener) {
	s.listener = l
	s.Run(ctx, wg)
}

// Run serves health checks until ctx is canceled.
func (s *Service) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	if s.listener == nil {
		s.logger.Error("cannot run health service", "error", "not initialized")
		return
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()

	s.logger.Info("health service started", "address", s.listener.Addr().String())

	select {
	case <-ctx.Done():
	case <-s.ownerDone:
		if ctx.Err() != nil {
			// owner stopped because of shutdown
			break
		}
		s.logger.Error("counter owner stopped, reporting not serving")
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		select {
		case <-ctx.Done():
		case err := <-errCh:
			s.logger.Error("health service stopped unexpectedly", "error", err)
			return
		}
	case err := <-errCh:
		s.logger.Error("health service stopped unexpectedly", "error", err)
		return
	}

	// Shutdown sets every service to NOT_SERVING and notifies watchers.
	s.health.Shutdown()
	s.server.GracefulStop()
	<-errCh

	s.logger.Info("health service stopped")
}
