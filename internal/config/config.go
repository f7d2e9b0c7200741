// Package config defines service configuration and its defaults.
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the GamePlan resource root; doctypes are appended to it.
	UpstreamBaseURL string `koanf:"upstream_base_url"`

	// APIKey is the server-side fallback credential used when no key was set at runtime.
	APIKey string `koanf:"api_key"`

	// CredentialsFile persists a runtime-set API key. Empty keeps it in memory only.
	CredentialsFile string `koanf:"credentials_file"`

	PageSize         int `koanf:"page_size"`
	MaxRetries       int `koanf:"max_retries"`
	RetryBackoffMS   int `koanf:"retry_backoff_ms"`
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// CacheExpiryMinutes is how long a fetched snapshot stays fresh.
	CacheExpiryMinutes int `koanf:"cache_expiry_minutes"`

	ActivityWindowDays int `koanf:"activity_window_days"`
	TaskTrendDays      int `koanf:"task_trend_days"`
	ActivityTrendDays  int `koanf:"activity_trend_days"`

	// CORSAllowedOrigins feeds the CORS middleware. Comma separated in env.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		UpstreamBaseURL:    "https://portal.technoservesolutions.com/api/resource/",
		PageSize:           1000,
		MaxRetries:         3,
		RetryBackoffMS:     500,
		RequestTimeoutMS:   30_000,
		CacheExpiryMinutes: 5,
		ActivityWindowDays: 7,
		TaskTrendDays:      30,
		ActivityTrendDays:  7,
		CORSAllowedOrigins: []string{"*"},
	}
}

// RetryBackoff is the fixed delay between upstream retries.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// RequestTimeout is the per-request upstream timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// CacheExpiry is the snapshot staleness window.
func (c *Config) CacheExpiry() time.Duration {
	return time.Duration(c.CacheExpiryMinutes) * time.Minute
}
