// Package config handles loading and managing Paper Radar configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paperradar/paperradar/pkg/cache"
	"github.com/paperradar/paperradar/pkg/ratelimit"
	"github.com/paperradar/paperradar/pkg/scoring"
)

// Config is the top-level configuration for Paper Radar.
type Config struct {
	Scoring   scoring.Config  `yaml:"scoring"`
	Baseline  BaselineConfig  `yaml:"baseline"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Cycle     CycleConfig     `yaml:"cycle"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`

	// DatabaseURL is the Postgres connection string. Usually supplied via
	// DATABASE_URL rather than the config file.
	DatabaseURL string `yaml:"database_url"`
}

// BaselineConfig controls field-baseline computation.
type BaselineConfig struct {
	WindowDays int `yaml:"window_days"`
	MinSample  int `yaml:"min_sample"`
}

// CacheConfig controls the volatility cache.
type CacheConfig struct {
	TTLs          cache.TTLTable `yaml:"ttls"`
	MaxItems      int            `yaml:"max_items"`
	SweepInterval time.Duration  `yaml:"sweep_interval"`
	SweepGrace    time.Duration  `yaml:"sweep_grace"`
}

// ProvidersConfig controls outbound rate limiting.
type ProvidersConfig struct {
	Limits   map[string]ratelimit.ProviderConfig `yaml:"limits"`
	Fallback ratelimit.ProviderConfig            `yaml:"fallback"`
}

// CycleConfig controls the periodic ranking job.
type CycleConfig struct {
	Interval time.Duration `yaml:"interval"`
	Deadline time.Duration `yaml:"deadline"`
	Workers  int           `yaml:"workers"`
	// DegradedThreshold is the per-artifact failure ratio above which a
	// completed cycle is reported as degraded.
	DegradedThreshold float64 `yaml:"degraded_threshold"`
	// EmbeddingDim is the expected embedding vector length; 0 disables
	// similarity-based novelty.
	EmbeddingDim int `yaml:"embedding_dim"`
}

// StorageConfig controls the blob store used for embedding vectors and
// cycle snapshots. Backend is one of "local", "s3", or "gcs".
type StorageConfig struct {
	Backend string `yaml:"backend"`

	// Local backend.
	Dir string `yaml:"dir"`

	// S3 backend.
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"` // optional, for S3-compatible stores
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`

	// GCS backend. Credentials come from Application Default Credentials.
	GCSBucket string `yaml:"gcs_bucket"`
}

// ServerConfig controls the HTTP read API.
type ServerConfig struct {
	Port int `yaml:"port"`
	// TopLimit caps how many papers the top-ranked endpoint returns.
	TopLimit int `yaml:"top_limit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scoring: scoring.DefaultConfig(),
		Baseline: BaselineConfig{
			WindowDays: 90,
			MinSample:  30,
		},
		Cache: CacheConfig{
			TTLs:          cache.DefaultTTLs(),
			MaxItems:      4096,
			SweepInterval: 5 * time.Minute,
			SweepGrace:    time.Minute,
		},
		Providers: ProvidersConfig{
			Limits:   ratelimit.DefaultConfigs(),
			Fallback: ratelimit.DefaultFallback(),
		},
		Cycle: CycleConfig{
			Interval:          time.Hour,
			Deadline:          20 * time.Minute,
			Workers:           8,
			DegradedThreshold: 0.25,
			EmbeddingDim:      768,
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     "data",
		},
		Server: ServerConfig{
			Port:     8080,
			TopLimit: 100,
		},
	}
}

// Load reads a config file from the given path, layering it over defaults.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration at construction time so the
// runtime never has to re-validate per call.
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if err := c.Cache.TTLs.Validate(); err != nil {
		return err
	}
	if err := c.Providers.Fallback.Validate(); err != nil {
		return fmt.Errorf("providers fallback: %w", err)
	}
	for name, pc := range c.Providers.Limits {
		if err := pc.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}
	if c.Baseline.WindowDays <= 0 {
		return fmt.Errorf("baseline window_days must be positive, got %d", c.Baseline.WindowDays)
	}
	if c.Baseline.MinSample < 1 {
		return fmt.Errorf("baseline min_sample must be at least 1, got %d", c.Baseline.MinSample)
	}
	if c.Cycle.Workers < 1 {
		return fmt.Errorf("cycle workers must be at least 1, got %d", c.Cycle.Workers)
	}
	if c.Cycle.Deadline <= 0 {
		return fmt.Errorf("cycle deadline must be positive, got %v", c.Cycle.Deadline)
	}
	if c.Cycle.DegradedThreshold < 0 || c.Cycle.DegradedThreshold > 1 {
		return fmt.Errorf("cycle degraded_threshold must be in [0,1], got %g", c.Cycle.DegradedThreshold)
	}
	if c.Cycle.EmbeddingDim < 0 {
		return fmt.Errorf("cycle embedding_dim must be non-negative, got %d", c.Cycle.EmbeddingDim)
	}
	switch c.Storage.Backend {
	case "local", "s3", "gcs":
	default:
		return fmt.Errorf("storage backend must be local, s3, or gcs, got %q", c.Storage.Backend)
	}
	return nil
}
