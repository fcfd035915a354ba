// Package config loads processing configuration from JSON. Every field is a
// pointer so partial files override only what they name; the Get* accessors
// supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root processing configuration. The schema doubles as the
// persisted run-parameters record, so field names stay stable.
type Config struct {
	// Backend selects a registered backend by name; empty picks the best
	// available one.
	Backend *string `json:"backend,omitempty"`

	// Pipeline params
	EpochSeconds        *float64 `json:"epoch_seconds,omitempty"`
	Calibrate           *bool    `json:"calibrate,omitempty"`
	Impute              *bool    `json:"impute,omitempty"`
	GapToleranceSeconds *float64 `json:"gap_tolerance_seconds,omitempty"`
	IncludeAux          *bool    `json:"include_aux,omitempty"`

	// Scoring params
	SleepAlgorithm   *string `json:"sleep_algorithm,omitempty"`
	NonwearAlgorithm *string `json:"nonwear_algorithm,omitempty"`

	// Batch params
	Workers *int `json:"workers,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. Fields omitted from the file keep
// their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that set fields hold usable values.
func (c *Config) Validate() error {
	if c.EpochSeconds != nil && *c.EpochSeconds <= 0 {
		return fmt.Errorf("epoch_seconds must be positive, got %f", *c.EpochSeconds)
	}
	if c.GapToleranceSeconds != nil && *c.GapToleranceSeconds < 0 {
		return fmt.Errorf("gap_tolerance_seconds must be non-negative, got %f", *c.GapToleranceSeconds)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetBackend returns the backend name or empty for automatic selection.
func (c *Config) GetBackend() string {
	if c.Backend == nil {
		return ""
	}
	return *c.Backend
}

// GetEpochSeconds returns the epoch length or the 60-second default.
func (c *Config) GetEpochSeconds() float64 {
	if c.EpochSeconds == nil {
		return 60
	}
	return *c.EpochSeconds
}

// GetCalibrate returns whether autocalibration runs; enabled by default.
func (c *Config) GetCalibrate() bool {
	if c.Calibrate == nil {
		return true
	}
	return *c.Calibrate
}

// GetImpute returns whether gap imputation runs; enabled by default.
func (c *Config) GetImpute() bool {
	if c.Impute == nil {
		return true
	}
	return *c.Impute
}

// GetGapToleranceSeconds returns the imputation gap tolerance.
func (c *Config) GetGapToleranceSeconds() float64 {
	if c.GapToleranceSeconds == nil {
		return 1.0
	}
	return *c.GapToleranceSeconds
}

// GetIncludeAux returns whether auxiliary channels are decoded.
func (c *Config) GetIncludeAux() bool {
	if c.IncludeAux == nil {
		return false
	}
	return *c.IncludeAux
}

// GetSleepAlgorithm returns the epoch-count sleep scorer name.
func (c *Config) GetSleepAlgorithm() string {
	if c.SleepAlgorithm == nil {
		return "cole-kripke"
	}
	return *c.SleepAlgorithm
}

// GetNonwearAlgorithm returns the nonwear detector name.
func (c *Config) GetNonwearAlgorithm() string {
	if c.NonwearAlgorithm == nil {
		return "stationary-2013"
	}
	return *c.NonwearAlgorithm
}

// GetWorkers returns the batch worker count.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}
