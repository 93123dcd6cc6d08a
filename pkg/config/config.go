// Package config provides file-based configuration for the pipeline.
// Priority: defaults < config file < CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all ecoflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Staging   StagingConfig   `yaml:"staging"`
	Warehouse WarehouseConfig `yaml:"warehouse"`
	Transform TransformConfig `yaml:"transform"`
	Load      LoadConfig      `yaml:"load"`
}

// StagingConfig locates the batch and streaming input areas.
type StagingConfig struct {
	Dir          string `yaml:"dir"`
	StreamingDir string `yaml:"streaming_dir"`
}

// WarehouseConfig controls the DuckDB warehouse.
type WarehouseConfig struct {
	Path        string `yaml:"path"`         // database file; empty = in-memory
	MemoryLimit string `yaml:"memory_limit"` // e.g. "4GB"
	Threads     int    `yaml:"threads"`      // 0 = auto
}

// TransformConfig controls cleaning and outlier filtering.
type TransformConfig struct {
	Contamination   float64 `yaml:"contamination"`     // target anomalous fraction
	OutlierMinRows  int     `yaml:"outlier_min_rows"`  // skip detection below this
	DefaultRating   int64   `yaml:"default_rating"`    // carbon rating fallback
}

// LoadConfig controls warehouse loading.
type LoadConfig struct {
	SentinelID int64 `yaml:"sentinel_id"` // surrogate id for unresolved references
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Staging: StagingConfig{
			Dir:          "staging",
			StreamingDir: filepath.Join("staging", "streaming_updates"),
		},
		Warehouse: WarehouseConfig{
			Path:        "eco_warehouse.db",
			MemoryLimit: "4GB",
			Threads:     0,
		},
		Transform: TransformConfig{
			Contamination:  0.02,
			OutlierMinRows: 10,
			DefaultRating:  5,
		},
		Load: LoadConfig{
			SentinelID: 1,
		},
	}
}

// Load reads configuration from a yaml file, layered over defaults.
// A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Transform.Contamination < 0 || c.Transform.Contamination >= 1 {
		return fmt.Errorf("contamination must be in [0, 1), got %v", c.Transform.Contamination)
	}
	if c.Load.SentinelID <= 0 {
		return fmt.Errorf("sentinel_id must be positive, got %d", c.Load.SentinelID)
	}
	return nil
}
