package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables that steer loading itself.
const (
	EnvPrefix     = "GAMEPULSE_"
	EnvConfigFile = "GAMEPULSE_CONFIG"
	EnvDotenvFile = "GAMEPULSE_DOTENV"

	legacyAPIKeyEnv  = "VITE_GAMEPLAN_API_KEY"
	legacyBaseURLEnv = "VITE_GAMEPLAN_API_BASE_URL"

	defaultDotenvFile = ".env"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New)
//  2. a .env file (GAMEPULSE_DOTENV, default ".env"); missing is fine
//  3. a YAML file if GAMEPULSE_CONFIG is set
//  4. env (prefix GAMEPULSE_)
func Load() (*Config, error) {
	dotenv := os.Getenv(EnvDotenvFile)
	if dotenv == "" {
		dotenv = defaultDotenvFile
	}
	// godotenv never overrides variables that are already set.
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: dotenv %s: %w", ErrLoadConfig, dotenv, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GAMEPULSE_PAGE_SIZE -> page_size; underscores are kept to match koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(legacyAPIKeyEnv)
	}
	if v := os.Getenv(legacyBaseURLEnv); v != "" && !k.Exists("upstream_base_url") {
		cfg.UpstreamBaseURL = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the service relies on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: upstream_base_url must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.UpstreamBaseURL)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be at least 1", ErrInvalidConfig)
	}
	if c.RetryBackoffMS < 0 || c.RequestTimeoutMS < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.CacheExpiryMinutes < 0 {
		return fmt.Errorf("%w: cache_expiry_minutes must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
