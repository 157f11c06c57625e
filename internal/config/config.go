// Package config loads the visualizer configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guidoenr/ravelizer/internal/logger"
)

// Spectrum sources of the demo driver.
const (
	SourceSynthetic = "synthetic"
	SourceMic       = "mic"
)

// Config is the complete visualizer configuration.
type Config struct {
	Root        string  `yaml:"root"`
	Variant     string  `yaml:"variant"`
	TargetRate  float32 `yaml:"target_rate"`
	Particles   int     `yaml:"particles"`
	FPSWindow   float32 `yaml:"fps_window"`
	VSync       bool    `yaml:"vsync"`
	Headless    bool    `yaml:"headless"`
	Source      string  `yaml:"source"`
	AudioDevice string  `yaml:"audio_device"`
	BufferSize  int     `yaml:"buffer_size"`
	NoiseFloor  float64 `yaml:"noise_floor"`
	Listen      string  `yaml:"listen"`
	LogLevel    string  `yaml:"log_level"`
	LogFile     string  `yaml:"log_file"`
	ProfilePath string  `yaml:"profile_path"`
}

// Default returns the configuration of the stock demo.
func Default() Config {
	return Config{
		Root:       ".",
		Variant:    "Circle",
		TargetRate: 30,
		Particles:  400,
		FPSWindow:  5,
		VSync:      true,
		Source:     SourceSynthetic,
		BufferSize: 4096,
		NoiseFloor: 0.05,
		LogLevel:   "info",
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	if c.Variant == "" {
		errs = append(errs, errors.New("variant must not be empty"))
	}
	if c.TargetRate <= 0 {
		errs = append(errs, fmt.Errorf("target_rate must be positive, got %v", c.TargetRate))
	}
	if c.Particles < 0 {
		errs = append(errs, fmt.Errorf("particles must not be negative, got %d", c.Particles))
	}
	if c.FPSWindow <= 0 {
		errs = append(errs, fmt.Errorf("fps_window must be positive, got %v", c.FPSWindow))
	}
	switch c.Source {
	case SourceSynthetic, SourceMic:
	default:
		errs = append(errs, fmt.Errorf("source must be %q or %q, got %q", SourceSynthetic, SourceMic, c.Source))
	}
	if c.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize))
	}
	if c.NoiseFloor < 0 || c.NoiseFloor >= 1 {
		errs = append(errs, fmt.Errorf("noise_floor must be in [0, 1), got %v", c.NoiseFloor))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
