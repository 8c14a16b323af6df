// Package gateway exposes counter operations over HTTP.
//
// Every request is translated into a single rendezvous with the counter
// owner. The gateway never touches counter state itself.
package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/adwski/counterd/internal/logger"
	"github.com/adwski/counterd/internal/stats"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
)

const (
	defaultShutdownTimeout   = 5 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second

	defaultCongestionHigh = 1000
	defaultCongestionLow  = 100

	requestIDHeader = "X-Request-Id"
)

var (
	ErrListen         = errors.New("unable to listen")
	ErrNotInitialized = errors.New("gateway is not initialized")
)

type (
	// Counter is the caller side of counter owner.
	Counter interface {
		Increment(ctx context.Context) error
		Value(ctx context.Context) (uint64, error)
	}

	// EventStats provides owner's diagnostic counters.
	EventStats interface {
		Increments() uint64
		Reads() uint64
	}

	Gateway struct {
		logger logger.Logger

		counter    Counter
		eventStats EventStats

		server   *http.Server
		listener net.Listener
		upgrader websocket.Upgrader

		// closed on server shutdown, hijacked websocket
		// connections are not tracked by http.Server
		closing   chan struct{}
		closeOnce *sync.Once

		waiting   stats.Gauge
		congested stats.Indicator

		address         string
		requestTimeout  time.Duration
		shutdownTimeout time.Duration
	}

	Config struct {
		Logger  logger.Logger
		Counter Counter
		Stats   EventStats

		// Address to listen on, host:port.
		Address string

		// AllowedOrigins is the CORS origin list, also used to check
		// websocket handshakes. Empty list allows any origin.
		AllowedOrigins []string

		// RequestTimeout bounds a single rendezvous with the owner.
		// Zero means wait until the owner serves the request
		// or the client goes away.
		RequestTimeout time.Duration

		// ShutdownTimeout bounds graceful shutdown.
		ShutdownTimeout time.Duration

		// Congestion thresholds for amount of requests waiting for
		// rendezvous, must satisfy lo < hi.
		CongestionHigh int64
		CongestionLow  int64
	}
)

func (cfg *Config) validate() {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.RequestTimeout < 0 {
		cfg.RequestTimeout = 0
	}
	if cfg.CongestionHigh <= cfg.CongestionLow || cfg.CongestionLow < 0 {
		cfg.CongestionHigh = defaultCongestionHigh
		cfg.CongestionLow = defaultCongestionLow
	}
}

func New(cfg Config) *Gateway {
	cfg.validate()

	g := &Gateway{
		logger:          cfg.Logger,
		counter:         cfg.Counter,
		eventStats:      cfg.Stats,
		address:         cfg.Address,
		requestTimeout:  cfg.RequestTimeout,
		shutdownTimeout: cfg.ShutdownTimeout,
		closing:         make(chan struct{}),
		closeOnce:       &sync.Once{},
		waiting:         stats.NewGauge(),
		congested:       stats.NewIndicator(cfg.CongestionHigh, cfg.CongestionLow),
	}

	g.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(cfg.AllowedOrigins),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", g.up)
	mux.HandleFunc("GET /get", g.get)
	mux.HandleFunc("GET /stats", g.stats)
	mux.HandleFunc("GET /ws", g.ws)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		ExposedHeaders: []string{requestIDHeader},
	})

	g.server = &http.Server{
		Handler:           c.Handler(g.withRequestID(mux)),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	g.server.RegisterOnShutdown(g.shutdownConns)

	return g
}

// Handler returns gateway http handler with all middlewares.
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler
}

// Init binds listening socket, so address errors are reported before Run.
func (g *Gateway) Init() error {
	l, err := net.Listen("tcp", g.address)
	if err != nil {
		return errors.Join(ErrListen, err)
	}
	g.listener = l

	return nil
}

// Addr returns actual listening address, nil before Init.
func (g *Gateway) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// Run serves http requests until ctx is canceled.
func (g *Gateway) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	if g.listener == nil {
		g.logger.Error("cannot run gateway", "error", ErrNotInitialized)
		return
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.server.Serve(g.listener)
	}()

	g.logger.Info("gateway started", "address", g.listener.Addr().String())

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway stopped unexpectedly", "error", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), g.shutdownTimeout)
	defer cancel()

	if err := g.server.Shutdown(shutdownCtx); err != nil {
		g.logger.Error("gateway graceful shutdown failed", "error", err)
		_ = g.server.Close()
	}
	<-errCh

	g.logger.Info("gateway stopped")
}

func (g *Gateway) shutdownConns() {
	g.closeOnce.Do(func() {
		close(g.closing)
	})
}

// enter and leave track amount of callers blocked in rendezvous.
func (g *Gateway) enter() {
	if g.congested.Observe(g.waiting.Inc()) {
		g.logger.Info("gateway is congested", "waiting", g.waiting.Get())
	}
}

func (g *Gateway) leave() {
	if g.congested.Observe(g.waiting.Dec()) {
		g.logger.Info("gateway congestion cleared", "waiting", g.waiting.Get())
	}
}

func (g *Gateway) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.requestTimeout > 0 {
		return context.WithTimeout(ctx, g.requestTimeout)
	}
	return context.WithCancel(ctx)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
