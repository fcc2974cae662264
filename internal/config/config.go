// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Plot store backends.
const (
	PlotBackendNone = ""
	PlotBackendFS   = "fs"
	PlotBackendGCS  = "gcs"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SourcePath is the raw shot CSV.
	SourcePath string `koanf:"source_path"`

	// StorePath is the SQLite file holding normalized shots. Only used
	// when UseStore is set.
	StorePath string `koanf:"store_path"`
	UseStore  bool   `koanf:"use_store"`

	// ChunkSize is the number of rows read per batch.
	ChunkSize int `koanf:"chunk_size"`

	// GridCols and GridRows size the rasterized surface.
	GridCols int     `koanf:"grid_cols"`
	GridRows int     `koanf:"grid_rows"`
	Sigma    float64 `koanf:"sigma"`
	Smooth   bool    `koanf:"smooth"`

	// MinSamples is the smallest subset that gets rasterized.
	MinSamples int `koanf:"min_samples"`

	DefaultStrength string   `koanf:"default_strength"`
	StrengthStates  []string `koanf:"strength_states"`

	// CacheEnabled memoizes league baselines. RedisAddr adds a shared tier.
	CacheEnabled    bool   `koanf:"cache_enabled"`
	CacheSize       int    `koanf:"cache_size"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisTTLSeconds int    `koanf:"redis_ttl_seconds"`

	// PlotBackend selects where precomputed plots live: gcs, fs or empty.
	PlotBackend        string `koanf:"plot_backend"`
	PlotBucket         string `koanf:"plot_bucket"`
	PlotPrefix         string `koanf:"plot_prefix"`
	PlotDir            string `koanf:"plot_dir"`
	PlotSize           int    `koanf:"plot_size"`
	GCSCredentialsFile string `koanf:"gcs_credentials_file"`

	// WorkerCount sets the number of precompute workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the precompute job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets how many scheduled plot keys are remembered.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		SourcePath:      "shots.csv",
		StorePath:       "rinkxg.db",
		ChunkSize:       100_000,
		GridCols:        100,
		GridRows:        85,
		Sigma:           3,
		Smooth:          true,
		MinSamples:      4,
		DefaultStrength: "ev",
		StrengthStates:  []string{"ev", "pp", "sh"},
		CacheEnabled:    true,
		CacheSize:       32,
		RedisTTLSeconds: 3600,
		PlotPrefix:      "player_shot_plots",
		PlotDir:         "plots",
		PlotSize:        800,
		WorkerCount:     runtime.NumCPU(),
		QueueSize:       1024,
		DedupeSize:      50_000,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.SourcePath == "":
		return fmt.Errorf("%w: source_path must not be empty", ErrInvalidConfig)
	case c.UseStore && c.StorePath == "":
		return fmt.Errorf("%w: store_path must not be empty when use_store is set", ErrInvalidConfig)
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive", ErrInvalidConfig)
	case c.GridCols < 2 || c.GridRows < 2:
		return fmt.Errorf("%w: grid must be at least 2x2", ErrInvalidConfig)
	case c.Sigma < 0:
		return fmt.Errorf("%w: sigma must not be negative", ErrInvalidConfig)
	case c.MinSamples < 1:
		return fmt.Errorf("%w: min_samples must be positive", ErrInvalidConfig)
	case c.DefaultStrength == "":
		return fmt.Errorf("%w: default_strength must not be empty", ErrInvalidConfig)
	case c.CacheEnabled && c.CacheSize < 1:
		return fmt.Errorf("%w: cache_size must be positive", ErrInvalidConfig)
	case c.RedisAddr != "" && c.RedisTTLSeconds < 0:
		return fmt.Errorf("%w: redis_ttl_seconds must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.PlotBackend) {
	case PlotBackendNone:
	case PlotBackendFS:
		if c.PlotDir == "" {
			return fmt.Errorf("%w: plot_dir is required for the fs backend", ErrInvalidConfig)
		}
	case PlotBackendGCS:
		if c.PlotBucket == "" {
			return fmt.Errorf("%w: plot_bucket is required for the gcs backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown plot_backend %q", ErrInvalidConfig, c.PlotBackend)
	}
	return nil
}
