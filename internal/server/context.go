package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/instrumentation"
)

// ServerContext holds the dependencies shared by all transports: the
// calendar service, telemetry and the shutdown state.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	service *calendar.Service
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// ServerContextOption configures a ServerContext.
type ServerContextOption func(*ServerContext)

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) ServerContextOption {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(a *instrumentation.AuditLogger) ServerContextOption {
	return func(sc *ServerContext) { sc.audit = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServerContextOption {
	return func(sc *ServerContext) {
		if l != nil {
			sc.logger = l
		}
	}
}

// NewServerContext creates a server context around service. The context is
// cancelled by Shutdown.
func NewServerContext(ctx context.Context, service *calendar.Service, opts ...ServerContextOption) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Service returns the calendar service.
func (sc *ServerContext) Service() *calendar.Service {
	return sc.service
}

// Metrics returns the metrics recorder. It may be nil, which records nothing.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Audit returns the audit logger. It may be nil, which logs nothing.
func (sc *ServerContext) Audit() *instrumentation.AuditLogger {
	return sc.audit
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown marks the server as shutting down and cancels its context.
// It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
