// Package config defines the polyportfolio configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYPORTFOLIO_* environment variables.
type Config struct {
	Venue      VenueConfig      `toml:"venue"`
	Analytics  AnalyticsConfig  `toml:"analytics"`
	LabelStore LabelStoreConfig `toml:"label_store"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Server     ServerConfig     `toml:"server"`
	Report     ReportConfig     `toml:"report"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// VenueConfig holds the Polymarket API endpoints and request pacing.
type VenueConfig struct {
	DataHost          string   `toml:"data_host"`
	GammaHost         string   `toml:"gamma_host"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Timeout           Duration `toml:"timeout"`
}

// AnalyticsConfig tunes the analytics engine.
type AnalyticsConfig struct {
	PageSize           int      `toml:"page_size"`
	ClosedPageSize     int      `toml:"closed_page_size"`
	MaxPages           int      `toml:"max_pages"`
	ContractMultiplier float64  `toml:"contract_multiplier"`
	TagLookupTimeout   Duration `toml:"tag_lookup_timeout"`
	LookupConcurrency  int      `toml:"lookup_concurrency"`
}

// LabelStoreConfig selects where the sector label cache is persisted.
type LabelStoreConfig struct {
	// Backend is one of "file", "redis", "s3", "postgres" or "memory".
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
	S3Key   string `toml:"s3_key"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow Duration `toml:"rate_limit_window"`
	// RateLimitBackend is "memory" (per process) or "redis" (shared).
	RateLimitBackend string `toml:"rate_limit_backend"`
}

// ReportConfig drives the one-shot report mode. It is normally filled from
// command-line flags.
type ReportConfig struct {
	Wallet      string `toml:"wallet"`
	Kind        string `toml:"kind"`
	Granularity string `toml:"granularity"`
	Output      string `toml:"output"`
}

// Duration wraps time.Duration so TOML strings like "10s" decode.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the documented default values.
func Defaults() Config {
	return Config{
		Venue: VenueConfig{
			DataHost:          "https://data-api.polymarket.com",
			GammaHost:         "https://gamma-api.polymarket.com",
			RequestsPerSecond: 10,
			Burst:             5,
			Timeout:           Duration{30 * time.Second},
		},
		Analytics: AnalyticsConfig{
			PageSize:           500,
			ClosedPageSize:     50,
			MaxPages:           200,
			ContractMultiplier: 100,
			TagLookupTimeout:   Duration{10 * time.Second},
			LookupConcurrency:  4,
		},
		LabelStore: LabelStoreConfig{
			Backend: "file",
			Path:    "sector_labels.json",
			S3Key:   "polyportfolio/sector_labels.json",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			KeyPrefix:  "polyportfolio",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polyportfolio",
			ForcePathStyle: true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Server: ServerConfig{
			Port:             8000,
			CORSOrigins:      []string{"*"},
			RateLimit:        120,
			RateLimitWindow:  Duration{time.Minute},
			RateLimitBackend: "memory",
		},
		Report: ReportConfig{
			Kind:        "pnl",
			Granularity: "daily",
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

var (
	validModes         = []string{"serve", "report"}
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validBackends      = []string{"file", "redis", "s3", "postgres", "memory"}
	validReportKinds   = []string{"pnl", "total-pnl", "unrealized", "exposure", "value"}
	validGranularities = []string{"daily", "monthly"}
	validLimiters      = []string{"memory", "redis"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found. Backend sections are only checked
// when selected.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !oneOf(c.Mode, validModes) {
		add("unknown mode %q (valid: %s)", c.Mode, strings.Join(validModes, ", "))
	}
	if !oneOf(c.LogLevel, validLogLevels) {
		add("unknown log_level %q (valid: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	// Venue
	if c.Venue.DataHost == "" {
		add("venue: data_host must not be empty")
	}
	if c.Venue.GammaHost == "" {
		add("venue: gamma_host must not be empty")
	}
	if c.Venue.RequestsPerSecond < 0 {
		add("venue: requests_per_second must be >= 0")
	}

	// Analytics
	if c.Analytics.PageSize < 1 {
		add("analytics: page_size must be >= 1")
	}
	if c.Analytics.ClosedPageSize < 1 {
		add("analytics: closed_page_size must be >= 1")
	}
	if c.Analytics.MaxPages < 1 {
		add("analytics: max_pages must be >= 1")
	}
	if c.Analytics.ContractMultiplier <= 0 {
		add("analytics: contract_multiplier must be > 0")
	}
	if c.Analytics.LookupConcurrency < 1 {
		add("analytics: lookup_concurrency must be >= 1")
	}

	// Label store
	backend := strings.ToLower(c.LabelStore.Backend)
	if !oneOf(backend, validBackends) {
		add("label_store: unknown backend %q (valid: %s)", c.LabelStore.Backend, strings.Join(validBackends, ", "))
	}
	if backend == "file" && c.LabelStore.Path == "" {
		add("label_store: path must be set for the file backend")
	}
	if backend == "redis" || strings.EqualFold(c.Server.RateLimitBackend, "redis") {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
	}
	if backend == "s3" {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty")
		}
	}
	if backend == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				add("postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
			}
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			add("postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Mode specific
	switch strings.ToLower(c.Mode) {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
		if c.Server.RateLimit < 0 {
			add("server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateLimitWindow.Duration <= 0 {
			add("server: rate_limit_window must be > 0 when rate_limit is set")
		}
		if !oneOf(c.Server.RateLimitBackend, validLimiters) {
			add("server: unknown rate_limit_backend %q (valid: %s)", c.Server.RateLimitBackend, strings.Join(validLimiters, ", "))
		}
	case "report":
		if c.Report.Wallet == "" {
			add("report: wallet is required in report mode")
		}
		if !oneOf(c.Report.Kind, validReportKinds) {
			add("report: unknown kind %q (valid: %s)", c.Report.Kind, strings.Join(validReportKinds, ", "))
		}
		if !oneOf(c.Report.Granularity, validGranularities) {
			add("report: unknown granularity %q (valid: %s)", c.Report.Granularity, strings.Join(validGranularities, ", "))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
