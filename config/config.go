package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FETCHR_API_URL
const EnvPrefix = "FETCHR"

// Load loads the configuration. An explicit configPath must exist; without
// one the standard locations are searched and a missing file leaves the
// defaults in place. overrides (typically command-line flags) win over the
// file and the environment.
func Load(configPath string, overrides map[string]any) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".fetchr"))
		}

		v.AddConfigPath("/etc/fetchr/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", "")
	v.SetDefault("api.verbose", 1)
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.retry_max", 0)
	v.SetDefault("api.max_connectivity_retries", 0)
	v.SetDefault("api.user_agent", "")
	v.SetDefault("api.concurrency", 4)

	// Filter defaults
	v.SetDefault("filter.cache_size", 100)
	v.SetDefault("filter.workers", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}

	u, err := url.Parse(cfg.API.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api.url must be an absolute URL: %s", cfg.API.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.url must use http or https: %s", cfg.API.URL)
	}

	if cfg.API.Verbose < 0 || cfg.API.Verbose > 3 {
		return fmt.Errorf("invalid api.verbose: %d (must be between 0 and 3)", cfg.API.Verbose)
	}

	if cfg.API.Timeout < 0 {
		return fmt.Errorf("invalid api.timeout: %s", cfg.API.Timeout)
	}

	if cfg.API.RetryMax < 0 {
		return fmt.Errorf("invalid api.retry_max: %d", cfg.API.RetryMax)
	}

	if cfg.API.MaxConnectivityRetries < 0 {
		return fmt.Errorf("invalid api.max_connectivity_retries: %d", cfg.API.MaxConnectivityRetries)
	}

	if cfg.API.Concurrency < 1 {
		return fmt.Errorf("invalid api.concurrency: %d (must be at least 1)", cfg.API.Concurrency)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	for name, expr := range cfg.Filters {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("filter '%s' has an empty expression", name)
		}
	}

	return nil
}
