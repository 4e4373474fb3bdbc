package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Filters FiltersConfig `mapstructure:"filters"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds the API endpoint and request behavior
type APIConfig struct {
	URL                    string        `mapstructure:"url"`
	Verbose                int           `mapstructure:"verbose"`
	Timeout                time.Duration `mapstructure:"timeout"`
	RetryMax               int           `mapstructure:"retry_max"`
	MaxConnectivityRetries int           `mapstructure:"max_connectivity_retries"`
	UserAgent              string        `mapstructure:"user_agent"`
	Concurrency            int           `mapstructure:"concurrency"`
}

// FilterConfig tunes filter compilation and evaluation
type FilterConfig struct {
	CacheSize int `mapstructure:"cache_size"`
	Workers   int `mapstructure:"workers"`
}

// FiltersConfig contains named filter expressions
type FiltersConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}
