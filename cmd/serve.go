package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/config"
	"github.com/teemow/notioncal/internal/instrumentation"
	"github.com/teemow/notioncal/internal/logging"
	"github.com/teemow/notioncal/internal/notion"
	"github.com/teemow/notioncal/internal/server"
)

// serveFlags are the command-line overrides of the config file.
type serveFlags struct {
	configPath     string
	listen         string
	timezone       string
	notionURL      string
	metricsEnabled bool
	metricsAddr    string
	logLevel       string
	logFormat      string
	corsOrigins    string
	rateLimit      float64
	rateBurst      int
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the calendar REST proxy",
		Long: `Start the REST proxy. Every calendar operation is a POST endpoint under
/api/notion/ whose JSON body carries the caller's Notion integration token.

Configuration:
  A YAML file (--config or NOTIONCAL_CONFIG) provides the defaults. Flags
  override the file; environment variables apply only when the matching flag
  was not set:
    PORT                    listen port or address (--listen)
    NOTIONCAL_TIMEZONE      timezone for routines (--timezone)
    NOTION_API_URL          Notion API root (--notion-url)
    METRICS_ENABLED         serve Prometheus metrics (--metrics-enabled)
    METRICS_ADDR            metrics listen address (--metrics-addr)
    LOG_LEVEL, LOG_FORMAT   logging (--log-level, --log-format)
    CORS_ALLOWED_ORIGINS    comma-separated origins (--cors-origins)
    RATE_LIMIT_RPS          requests per second per client (--rate-limit)
    RATE_LIMIT_BURST        burst per client (--rate-burst)

Observability:
  Health probes are served on /healthz, /readyz and /healthz/detailed.
  Exporters are configured with INSTRUMENTATION_ENABLED, METRICS_EXPORTER,
  TRACING_EXPORTER and OTEL_EXPORTER_OTLP_ENDPOINT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	addServeFlags(cmd, &flags)

	return cmd
}

// addServeFlags registers the config override flags of the serve command.
func addServeFlags(cmd *cobra.Command, flags *serveFlags) {
	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to the YAML config file")
	cmd.Flags().StringVar(&flags.listen, "listen", "", "REST API listen address (default \":3000\")")
	cmd.Flags().StringVar(&flags.timezone, "timezone", "", "IANA timezone used for routines (default \"Asia/Seoul\")")
	cmd.Flags().StringVar(&flags.notionURL, "notion-url", "", "Notion API base URL")
	cmd.Flags().BoolVar(&flags.metricsEnabled, "metrics-enabled", true, "Serve Prometheus metrics on a dedicated port")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Metrics listen address (default \":9090\")")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format: text or json")
	cmd.Flags().StringVar(&flags.corsOrigins, "cors-origins", "", "Comma-separated list of allowed CORS origins (\"*\" allows any)")
	cmd.Flags().Float64Var(&flags.rateLimit, "rate-limit", 0, "Requests per second allowed per client address (0 disables)")
	cmd.Flags().IntVar(&flags.rateBurst, "rate-burst", 0, "Burst allowed per client address")
}

// loadConfig reads the config file and applies flag and environment
// overrides. Environment variables only apply when the flag was not set.
func loadConfig(cmd *cobra.Command, flags *serveFlags) (*config.Config, error) {
	path := flags.configPath
	if !cmd.Flags().Changed("config") {
		if p := os.Getenv("NOTIONCAL_CONFIG"); p != "" {
			path = p
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed

	if changed("listen") {
		cfg.Listen = flags.listen
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Listen = listenAddr(port)
	}

	if changed("timezone") {
		cfg.Timezone = flags.timezone
	} else if tz := os.Getenv("NOTIONCAL_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}

	if changed("notion-url") {
		cfg.Notion.BaseURL = flags.notionURL
	} else if u := os.Getenv("NOTION_API_URL"); u != "" {
		cfg.Notion.BaseURL = u
	}

	if changed("metrics-enabled") {
		cfg.Metrics.Enabled = flags.metricsEnabled
	} else if v := os.Getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.Metrics.Enabled = enabled
	}

	if changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	} else if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	} else if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if changed("log-format") {
		cfg.Log.Format = flags.logFormat
	} else if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}

	origins := flags.corsOrigins
	if !changed("cors-origins") {
		origins = os.Getenv("CORS_ALLOWED_ORIGINS")
	}
	if list := parseCommaSeparatedList(origins); list != nil {
		cfg.CORS.AllowedOrigins = list
	}

	if changed("rate-limit") {
		cfg.RateLimit.RequestsPerSecond = flags.rateLimit
	} else if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		cfg.RateLimit.RequestsPerSecond = rps
	}

	if changed("rate-burst") {
		cfg.RateLimit.Burst = flags.rateBurst
	} else if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST %q: %w", v, err)
		}
		cfg.RateLimit.Burst = burst
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// listenAddr accepts a bare port as hosting platforms set PORT.
func listenAddr(port string) string {
	if _, err := strconv.Atoi(port); err == nil {
		return ":" + port
	}
	return port
}

// runtime bundles what both transports need: the logger, the telemetry
// provider and the server context around the calendar service.
type runtime struct {
	logger   *slog.Logger
	provider *instrumentation.Provider
	sc       *server.ServerContext
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger, err := logging.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	metrics := provider.Metrics()
	service := calendar.NewService(
		calendar.NotionStores(
			notion.WithBaseURL(cfg.Notion.BaseURL),
			notion.WithVersion(cfg.Notion.Version),
			notion.WithTimeout(cfg.Notion.Timeout),
			notion.WithMetrics(metrics),
		),
		calendar.WithProperties(cfg.Properties),
		calendar.WithLocation(loc),
		calendar.WithLogger(logger),
		calendar.WithMetrics(metrics),
		calendar.WithRewriteConcurrency(cfg.RewriteConcurrency),
	)

	sc := server.NewServerContext(ctx, service,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)),
	)

	return &runtime{logger: logger, provider: provider, sc: sc}, nil
}

func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()
	if err := rt.sc.Shutdown(); err != nil {
		rt.logger.Warn("server context shutdown failed", logging.Err(err))
	}
	if err := rt.provider.Shutdown(ctx); err != nil {
		rt.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
}

func runServe(cfg *config.Config) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(shutdownCtx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	var metricsServer *server.MetricsServer
	if cfg.Metrics.Enabled && rt.provider.Enabled() {
		metricsServer, err = startMetricsServer(cfg.Metrics.Addr, rt)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				rt.logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	httpServer := server.NewHTTPServer(rt.sc, server.HTTPServerConfig{
		Addr:              cfg.Listen,
		Version:           version,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	rt.logger.Info("notioncal starting",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"cors_origins", strings.Join(cfg.CORS.AllowedOrigins, ","),
		"rate_limit", cfg.RateLimit.RequestsPerSecond,
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		rt.logger.Info("shutdown signal received, stopping REST API")
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("error shutting down REST API: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("REST API stopped with error: %w", err)
		}
	}

	rt.logger.Info("REST API gracefully stopped")
	return nil
}

// startMetricsServer starts the metrics listener and waits until it is bound.
func startMetricsServer(addr string, rt *runtime) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: rt.provider,
		Logger:                  rt.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case bound := <-metricsServer.Bound():
		rt.logger.Info("metrics server started", "addr", bound)
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
