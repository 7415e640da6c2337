package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	// Embedded zone database for minimal container images.
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/teemow/notioncal/internal/calendar"
	"github.com/teemow/notioncal/internal/logging"
	"github.com/teemow/notioncal/internal/notion"
)

const (
	DefaultListen             = ":3000"
	DefaultTimezone           = "Asia/Seoul"
	DefaultMetricsAddr        = ":9090"
	DefaultRewriteConcurrency = 1
)

// NotionConfig configures the outbound Notion API client.
type NotionConfig struct {
	BaseURL string        `yaml:"base_url"`
	Version string        `yaml:"version"`
	Timeout time.Duration `yaml:"timeout"`
}

// CORSConfig lists the origins allowed to call the API. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig limits inbound requests per client address. A zero rate
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// MetricsConfig configures the dedicated metrics listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the top-level server configuration.
type Config struct {
	// Listen is the REST API listen address.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone "today" is evaluated in for routines.
	Timezone string `yaml:"timezone"`

	Notion     NotionConfig        `yaml:"notion"`
	Properties calendar.Properties `yaml:"properties"`
	CORS       CORSConfig          `yaml:"cors"`
	RateLimit  RateLimitConfig     `yaml:"rate_limit"`

	// RewriteConcurrency bounds parallel entry rewrites of category rename/delete.
	RewriteConcurrency int `yaml:"rewrite_concurrency"`

	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   DefaultListen,
		Timezone: DefaultTimezone,
		Notion: NotionConfig{
			BaseURL: notion.DefaultBaseURL,
			Version: notion.DefaultVersion,
			Timeout: notion.DefaultTimeout,
		},
		Properties:         calendar.DefaultProperties(),
		CORS:               CORSConfig{AllowedOrigins: []string{"*"}},
		RewriteConcurrency: DefaultRewriteConcurrency,
		Metrics:            MetricsConfig{Enabled: true, Addr: DefaultMetricsAddr},
		Log:                LogConfig{Level: "info", Format: logging.FormatText},
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// files still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = d.Notion.BaseURL
	}
	c.Notion.BaseURL = strings.TrimRight(c.Notion.BaseURL, "/")
	if c.Notion.Version == "" {
		c.Notion.Version = d.Notion.Version
	}
	if c.Notion.Timeout == 0 {
		c.Notion.Timeout = d.Notion.Timeout
	}
	c.Properties = c.Properties.WithDefaults()
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = d.CORS.AllowedOrigins
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = int(c.RateLimit.RequestsPerSecond) + 1
	}
	if c.RewriteConcurrency == 0 {
		c.RewriteConcurrency = d.RewriteConcurrency
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = d.Metrics.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Notion.Timeout < 0 {
		return fmt.Errorf("notion.timeout must not be negative, got %s", c.Notion.Timeout)
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative, got %v", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must not be negative, got %d", c.RateLimit.Burst)
	}
	if c.RewriteConcurrency < 0 {
		return fmt.Errorf("rewrite_concurrency must not be negative, got %d", c.RewriteConcurrency)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format)
	}
	return nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads a YAML file over the defaults, then normalizes and validates
// the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, then normalizes and validates it.
func Parse(data []byte, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Normalize()
	return cfg.Validate()
}
