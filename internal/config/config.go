// Package config defines service configuration and how it is loaded.
//
// Conventions:
//   - New() returns a Config populated with defaults.
//   - Load layers defaults, an optional YAML file and HIGHSCORE_* env vars.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without host zoneinfo

	"github.com/robfig/cron/v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Catalog sources.
const (
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

// DevJWTSecret is the default signing secret. It is only suitable for local runs.
const DevJWTSecret = "dev-secret-change-me"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// Store selects the score store backend: memory or postgres.
	Store string `koanf:"store"`

	// DatabaseDSN is the postgres connection string used by the postgres store and catalog.
	DatabaseDSN string `koanf:"database_dsn"`

	// DatabaseMigrate runs pending migrations on startup.
	DatabaseMigrate bool `koanf:"database_migrate"`

	// CatalogSource selects where game modes and contents come from: file or postgres.
	CatalogSource string `koanf:"catalog_source"`

	// CatalogFile is the YAML catalog used when CatalogSource is file.
	CatalogFile string `koanf:"catalog_file"`

	// CatalogRefresh is a cron spec for reloading the catalog; empty disables it.
	CatalogRefresh string `koanf:"catalog_refresh"`

	// JWTSecret verifies HS256 access tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `koanf:"cors_origins"`

	// Timezone decides which calendar day a submission is recorded on.
	Timezone string `koanf:"timezone"`

	// StoreRetryMaxElapsed bounds retries of transient store failures.
	StoreRetryMaxElapsed time.Duration `koanf:"store_retry_max_elapsed"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MetricsEnabled exports collectors on /metrics; disabled collectors still record.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets overrides the latency histogram buckets, in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsRefreshInterval is how often runtime and store gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`
}

// New creates a Config holding defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		Addr:          ":8000",
		Store:         StoreMemory,
		CatalogSource: CatalogFile,
		CatalogFile:   "catalog.yaml",
		JWTSecret:     DevJWTSecret,
		CORSOrigins: []string{
			"http://localhost:3000",
			"http://localhost:8000",
			"http://localhost:5173",
		},
		Timezone:               "UTC",
		StoreRetryMaxElapsed:   2 * time.Second,
		ShutdownTimeout:        10 * time.Second,
		MetricsEnabled:         true,
		MetricsNamespace:       "highscore",
		MetricsSubsystem:       "scores",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}
	switch c.CatalogSource {
	case CatalogFile:
		if c.CatalogFile == "" {
			return fmt.Errorf("%w: catalog_file is required for the file catalog", ErrInvalidConfig)
		}
	case CatalogPostgres:
	default:
		return fmt.Errorf("%w: unknown catalog_source %q", ErrInvalidConfig, c.CatalogSource)
	}
	if c.UsesPostgres() && c.DatabaseDSN == "" {
		return fmt.Errorf("%w: database_dsn is required for postgres", ErrInvalidConfig)
	}
	if c.Store == StorePostgres && c.CatalogSource != CatalogPostgres {
		return fmt.Errorf("%w: store postgres needs catalog_source postgres, load it with `migrate seed`", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	}
	if c.CatalogRefresh != "" {
		if _, err := cron.ParseStandard(c.CatalogRefresh); err != nil {
			return fmt.Errorf("%w: catalog_refresh: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.StoreRetryMaxElapsed < 0 {
		return fmt.Errorf("%w: store_retry_max_elapsed must not be negative", ErrInvalidConfig)
	}
	return c.validateMetrics()
}

// UsesPostgres reports whether any component needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.Store == StorePostgres || c.CatalogSource == CatalogPostgres
}

func (c *Config) validateMetrics() error {
	if c.MetricsRefreshInterval < 0 {
		return fmt.Errorf("%w: metrics_refresh_interval must not be negative", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsBuckets); i++ {
		if c.MetricsBuckets[i] <= c.MetricsBuckets[i-1] {
			return fmt.Errorf("%w: metrics_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	return nil
}
