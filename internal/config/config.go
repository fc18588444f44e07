// Package config loads the sunmap configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all sunmap settings.
type Config struct {
	// Figure rendering
	Figure FigureConfig `yaml:"figure"`

	// Test maps used by the gallery
	Fixtures FixtureConfig `yaml:"fixtures"`

	// Figure regression suite
	Figures FiguresConfig `yaml:"figures"`

	// Overlay defaults
	Grid GridConfig `yaml:"grid"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// FigureConfig sets the size of rendered figures.
type FigureConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// FixtureConfig points at FITS files for the gallery maps. Empty paths use
// generated maps.
type FixtureConfig struct {
	AIA171       string `yaml:"aia171"`
	Heliographic string `yaml:"heliographic"`
	Seed         int64  `yaml:"seed"`
}

// FiguresConfig configures reference comparison.
type FiguresConfig struct {
	HashLibrary string  `yaml:"hash_library"`
	BaselineDir string  `yaml:"baseline_dir"`
	ResultsDir  string  `yaml:"results_dir"`
	Tolerance   float64 `yaml:"tolerance"`
	Strict      bool    `yaml:"strict"`
	Workers     int     `yaml:"workers"`
	Suite       string  `yaml:"suite"` // optional YAML suite file
}

// GridConfig sets the default heliographic grid spacing in degrees.
type GridConfig struct {
	LonSpacing float64 `yaml:"lon_spacing"`
	LatSpacing float64 `yaml:"lat_spacing"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Figure: FigureConfig{Width: 640, Height: 480},
		Fixtures: FixtureConfig{
			Seed: 171,
		},
		Figures: FiguresConfig{
			HashLibrary: "internal/gallery/testdata/figure_hashes.json",
			BaselineDir: "internal/gallery/testdata/baseline",
			ResultsDir:  "results",
			Tolerance:   2,
			Workers:     4,
		},
		Grid: GridConfig{LonSpacing: 15, LatSpacing: 15},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from a YAML file. A missing file yields
// the defaults. SUNMAP_LOG_LEVEL overrides the log level.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("SUNMAP_LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
}

// Validate checks the configuration for values the tools cannot use.
func (c *Config) Validate() error {
	if c.Figure.Width <= 0 || c.Figure.Height <= 0 {
		return fmt.Errorf("figure size must be positive, got %dx%d", c.Figure.Width, c.Figure.Height)
	}
	if c.Figures.Workers < 1 {
		return fmt.Errorf("figures.workers must be at least 1, got %d", c.Figures.Workers)
	}
	if c.Figures.Tolerance < 0 {
		return fmt.Errorf("figures.tolerance must not be negative")
	}
	if c.Grid.LonSpacing <= 0 || c.Grid.LatSpacing <= 0 {
		return fmt.Errorf("grid spacing must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
