// Package config provides configuration loading for clipforge.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the export pipeline settings.
type Config struct {
	// Output geometry and rate.
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	FrameRate float64 `yaml:"frameRate"`

	// PreviewURL is the composition preview page the renderer drives.
	PreviewURL string `yaml:"previewUrl"`

	// Binary paths. Empty values trigger the standard search.
	FFmpegPath  string `yaml:"ffmpegPath"`
	FFprobePath string `yaml:"ffprobePath"`

	// DebugDir enables debug artifact output when non-empty.
	DebugDir string `yaml:"debugDir"`

	// LogLevel is one of debug, info, warn, error, quiet.
	LogLevel string `yaml:"logLevel"`

	// ListenAddr is the HTTP API bind address for serve mode.
	ListenAddr string `yaml:"listenAddr"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Width:      1920,
		Height:     1080,
		FrameRate:  30,
		PreviewURL: "http://localhost:5173/preview",
		LogLevel:   "info",
		ListenAddr: ":8090",
	}
}

// LoadFromFile reads a YAML config file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid output size %dx%d", c.Width, c.Height)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("invalid frame rate %f", c.FrameRate)
	}
	if c.PreviewURL == "" {
		return fmt.Errorf("previewUrl is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "quiet":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
