package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config holds PriceScout configuration. Every field can be overridden by
// the environment variable named in its env tag.
type Config struct {
	StorageDriver string `env:"PRICESCOUT_STORAGE_DRIVER"`
	StoragePath   string `env:"PRICESCOUT_STORAGE_PATH"`

	CacheTTL            time.Duration `env:"PRICESCOUT_CACHE_TTL"`
	CacheHotSize        int           `env:"PRICESCOUT_CACHE_HOT_SIZE"`
	HistorySize         int           `env:"PRICESCOUT_HISTORY_SIZE"`
	AnalyticsMaxEntries int           `env:"PRICESCOUT_ANALYTICS_MAX_ENTRIES"`

	DelayEnabled bool          `env:"PRICESCOUT_DELAY_ENABLED"`
	DelayMin     time.Duration `env:"PRICESCOUT_DELAY_MIN"`
	DelaySpread  time.Duration `env:"PRICESCOUT_DELAY_SPREAD"`

	ExternalURL     string        `env:"PRICESCOUT_EXTERNAL_URL"`
	ExternalTimeout time.Duration `env:"PRICESCOUT_EXTERNAL_TIMEOUT"`

	ListenAddr     string `env:"PRICESCOUT_LISTEN_ADDR"`
	CORSOrigin     string `env:"PRICESCOUT_CORS_ORIGIN"`
	MetricsEnabled bool   `env:"PRICESCOUT_METRICS_ENABLED"`

	Timeout          time.Duration `env:"PRICESCOUT_SCRAPER_TIMEOUT"`
	MaxRetries       int           `env:"PRICESCOUT_SCRAPER_MAX_RETRIES"`
	RetryBackoff     time.Duration `env:"PRICESCOUT_SCRAPER_RETRY_BACKOFF"`
	RetryBackoffMax  time.Duration `env:"PRICESCOUT_SCRAPER_RETRY_BACKOFF_MAX"`
	UserAgent        string        `env:"PRICESCOUT_SCRAPER_USER_AGENT"`
	RespectRobotsTxt bool          `env:"PRICESCOUT_SCRAPER_RESPECT_ROBOTS"`

	Verbose bool `env:"PRICESCOUT_VERBOSE"`
}

// DefaultConfig returns defaults suitable for local use.
func DefaultConfig() *Config {
	return &Config{
		StorageDriver:       DriverSQLite,
		StoragePath:         "data/pricescout.db",
		CacheTTL:            30 * time.Minute,
		CacheHotSize:        256,
		HistorySize:         10,
		AnalyticsMaxEntries: 1000,
		DelayEnabled:        true,
		DelayMin:            1200 * time.Millisecond,
		DelaySpread:         800 * time.Millisecond,
		ExternalTimeout:     10 * time.Second,
		ListenAddr:          ":8080",
		CORSOrigin:          "http://localhost:5173",
		MetricsEnabled:      true,
		Timeout:             10 * time.Second,
		MaxRetries:          2,
		RetryBackoff:        200 * time.Millisecond,
		RetryBackoffMax:     2 * time.Second,
		UserAgent:           "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	}
}

// Load returns DefaultConfig overlaid with the given .env files (".env"
// when none are named; missing files are skipped) and the process
// environment, then validates the result.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
		slog.Debug("no .env file found, using process environment")
	}

	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.StoragePath == "" {
			return fmt.Errorf("storage path cannot be empty for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage driver must be memory or sqlite")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.CacheHotSize <= 0 {
		return fmt.Errorf("cache hot size must be positive")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("history size must be positive")
	}
	if c.AnalyticsMaxEntries <= 0 {
		return fmt.Errorf("analytics max entries must be positive")
	}
	if c.DelayMin < 0 {
		return fmt.Errorf("delay min cannot be negative")
	}
	if c.DelaySpread < 0 {
		return fmt.Errorf("delay spread cannot be negative")
	}

	if c.ExternalURL != "" {
		parsedURL, err := url.Parse(c.ExternalURL)
		if err != nil {
			return fmt.Errorf("invalid external URL: %w", err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("external URL must include a host")
		}
	}
	if c.ExternalTimeout <= 0 {
		return fmt.Errorf("external timeout must be positive")
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
