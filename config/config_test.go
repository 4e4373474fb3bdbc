package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:         "https://api.example.com",
			Verbose:     1,
			Timeout:     30 * time.Second,
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://api.example.com/v1
  verbose: 3
  timeout: 5s
  max_connectivity_retries: 2
filters:
  active: 'flag("active")'
logging:
  level: debug
  format: json
  file: /tmp/fetchr.log
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", cfg.API.URL)
	assert.Equal(t, 3, cfg.API.Verbose)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2, cfg.API.MaxConnectivityRetries)
	assert.Equal(t, `flag("active")`, cfg.Filters["active"])
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/fetchr.log", cfg.Logging.File)

	// Untouched keys keep their defaults
	assert.Equal(t, 0, cfg.API.RetryMax)
	assert.Equal(t, 4, cfg.API.Concurrency)
	assert.Equal(t, 100, cfg.Filter.CacheSize)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 3, cfg.Logging.MaxBackups)
	assert.Equal(t, 28, cfg.Logging.MaxAgeDays)
	assert.True(t, cfg.Logging.Compress)
	assert.True(t, cfg.Logging.Color)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", map[string]any{"api.url": "http://localhost:8080"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.URL)
	assert.Equal(t, 1, cfg.API.Verbose)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 0, cfg.API.MaxConnectivityRetries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
api:
  url: https://file.example.com
  verbose: 2
`)

	t.Setenv("FETCHR_API_VERBOSE", "0")
	t.Setenv("FETCHR_LOGGING_LEVEL", "warn")

	cfg, err := Load(path, map[string]any{"api.url": "https://flag.example.com"})
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com", cfg.API.URL, "overrides beat the file")
	assert.Equal(t, 0, cfg.API.Verbose, "environment beats the file")
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   func(t *testing.T) string
		errMsg string
	}{
		{
			name:   "explicit path missing",
			path:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
			errMsg: "error reading config",
		},
		{
			name:   "malformed yaml",
			path:   func(t *testing.T) string { return writeConfig(t, "api: [unclosed") },
			errMsg: "error reading config",
		},
		{
			name:   "no url anywhere",
			path:   func(t *testing.T) string { return writeConfig(t, "logging:\n  level: info\n") },
			errMsg: "api.url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.API.URL = "/api" }, wantErr: "absolute URL"},
		{name: "ftp url", mutate: func(c *Config) { c.API.URL = "ftp://example.com" }, wantErr: "http or https"},
		{name: "verbose too high", mutate: func(c *Config) { c.API.Verbose = 4 }, wantErr: "invalid api.verbose"},
		{name: "negative verbose", mutate: func(c *Config) { c.API.Verbose = -1 }, wantErr: "invalid api.verbose"},
		{name: "negative retries", mutate: func(c *Config) { c.API.MaxConnectivityRetries = -1 }, wantErr: "max_connectivity_retries"},
		{name: "negative retry max", mutate: func(c *Config) { c.API.RetryMax = -2 }, wantErr: "retry_max"},
		{name: "zero concurrency", mutate: func(c *Config) { c.API.Concurrency = 0 }, wantErr: "concurrency"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid logging level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid logging format"},
		{name: "empty filter", mutate: func(c *Config) { c.Filters = FiltersConfig{"x": " "} }, wantErr: "empty expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
