package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notioncal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":8080"
timezone: Europe/Berlin
notion:
  base_url: http://localhost:9999/v1/
  timeout: 5s
properties:
  date: 날짜
  repeat_days: 반복
cors:
  allowed_origins: ["https://widget.example.com"]
rate_limit:
  requests_per_second: 4
metrics:
  enabled: false
log:
  format: json
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Notion.BaseURL)
	assert.Equal(t, DefaultConfig().Notion.Version, cfg.Notion.Version)
	assert.Equal(t, 5*time.Second, cfg.Notion.Timeout)
	assert.Equal(t, "날짜", cfg.Properties.Date)
	assert.Equal(t, "반복", cfg.Properties.RepeatDays)
	assert.Equal(t, "Done", cfg.Properties.Done)
	assert.Equal(t, []string{"https://widget.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 4.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "listen: [:3000"},
		{"unknown timezone", "timezone: Mars/Olympus"},
		{"negative rate", "rate_limit:\n  requests_per_second: -1"},
		{"negative burst", "rate_limit:\n  burst: -2"},
		{"negative concurrency", "rewrite_concurrency: -1"},
		{"bad level", "log:\n  level: loud"},
		{"bad format", "log:\n  format: xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Parse([]byte(tt.yaml), DefaultConfig()))
		})
	}
}

func TestConfig_Location(t *testing.T) {
	cfg := DefaultConfig()
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", loc.String())
}
