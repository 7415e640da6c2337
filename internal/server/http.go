package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/notioncal/internal/instrumentation"
)

const (
	// DefaultListenAddr is the REST API address when none is configured.
	DefaultListenAddr = ":3000"

	DefaultWriteTimeout = 60 * time.Second
)

// HTTPServerConfig configures the REST API listener.
type HTTPServerConfig struct {
	Addr    string
	Version string

	// AllowedOrigins is the CORS allow list. Empty or "*" allows any origin.
	AllowedOrigins []string

	// RequestsPerSecond and Burst limit each client address. A zero rate
	// disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// HTTPServer serves the calendar REST API and the health probes.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	sc         *ServerContext
	addr       string
	bound      chan string
}

// NewHTTPServer builds the handler chain around the API mux.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) *HTTPServer {
	if config.Addr == "" {
		config.Addr = DefaultListenAddr
	}

	health := NewHealthChecker(sc, config.Version)
	s := &HTTPServer{
		httpServer: &http.Server{
			Handler:           NewHandler(sc, health, config),
			ReadHeaderTimeout: 10 * time.Second,
			// Notion calls may use the whole client timeout.
			WriteTimeout: DefaultWriteTimeout,
			IdleTimeout:  120 * time.Second,
		},
		health: health,
		sc:     sc,
		addr:   config.Addr,
		bound:  make(chan string, 1),
	}
	return s
}

// NewHandler returns the complete REST handler: routes wrapped in request ids,
// recovery, access logging, CORS, rate limiting and tracing.
func NewHandler(sc *ServerContext, health *HealthChecker, config HTTPServerConfig) http.Handler {
	mux := http.NewServeMux()
	health.RegisterHealthEndpoints(mux)
	NewAPI(sc).Register(mux)

	h := chain(mux,
		RequestIDMiddleware,
		RecoverMiddleware(sc.Logger()),
		AccessLogMiddleware(sc.Logger(), sc.Metrics()),
		CORSMiddleware(config.AllowedOrigins),
		NewRateLimiter(config.RequestsPerSecond, config.Burst).Middleware,
	)
	return otelhttp.NewHandler(h, "notioncal",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + instrumentation.NormalizeRoute(r.URL.Path)
		}),
	)
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.bound <- ln.Addr().String()
	s.sc.Logger().Info("starting REST API", "addr", ln.Addr().String())

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Bound receives the listening address once Start has bound its socket.
func (s *HTTPServer) Bound() <-chan string {
	return s.bound
}

// Shutdown marks the server not ready, then drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	s.sc.Logger().Info("shutting down REST API")
	err := s.httpServer.Shutdown(ctx)
	_ = s.sc.Shutdown()
	return err
}

// Addr returns the configured address.
func (s *HTTPServer) Addr() string {
	return s.addr
}
