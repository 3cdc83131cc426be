// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"ledviz/internal/dsp"
	"ledviz/internal/effect"
	"ledviz/internal/log"
)

var logger = log.Named("Config")

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, err
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debugf("loaded %s (%d devices)", path, len(cfg.Devices))
	return cfg, nil
}

// Parse decodes YAML over cfg. Maps merge with the existing entries and
// lists replace them.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate fills per-device defaults, normalizes values that have an
// obvious fix and rejects the rest.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error, fatal", c.LogLevel)
	}

	a := c.Audio
	switch {
	case a.MicRate <= 0:
		return fmt.Errorf("audio.mic_rate must be positive, got %d", a.MicRate)
	case a.FPS <= 0:
		return fmt.Errorf("audio.fps must be positive, got %d", a.FPS)
	case a.MicRate/a.FPS < 2:
		return fmt.Errorf("audio.fps %d is too high for mic_rate %d", a.FPS, a.MicRate)
	case a.RollingHistory < 1:
		return fmt.Errorf("audio.n_rolling_history must be at least 1, got %d", a.RollingHistory)
	case a.MinVolumeThreshold < 0:
		return fmt.Errorf("audio.min_volume_threshold must not be negative, got %g", a.MinVolumeThreshold)
	}
	if _, err := dsp.ParseWindowFunc(a.FFTWindow); err != nil {
		return fmt.Errorf("audio.fft_window: %w", err)
	}

	if c.Brightness < 0 || c.Brightness > 1 {
		return fmt.Errorf("brightness must be in [0, 1], got %g", c.Brightness)
	}
	if c.Control.PreviewEvery < 0 {
		return fmt.Errorf("control.preview_every must not be negative, got %d", c.Control.PreviewEvery)
	}
	if c.Control.Enabled && c.Control.Address == "" {
		return errors.New("control.address must be set when the control plane is enabled")
	}

	palette, err := c.Palette()
	if err != nil {
		return err
	}
	if len(c.Gradients) == 0 {
		return errors.New("at least one gradient must be configured")
	}
	for name, colors := range c.Gradients {
		if len(colors) == 0 {
			return fmt.Errorf("gradient %q has no colors", name)
		}
		for _, color := range colors {
			if _, err := palette.Lookup(color); err != nil {
				return fmt.Errorf("gradient %q: %w", name, err)
			}
		}
	}

	if len(c.Devices) == 0 {
		return errors.New("at least one device must be configured")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Name == "" {
			return fmt.Errorf("devices[%d]: name must be set", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("device %q: duplicate name", d.Name)
		}
		seen[d.Name] = true
		d.applyDefaults()
		if err := d.validate(); err != nil {
			return fmt.Errorf("device %q: %w", d.Name, err)
		}
	}
	return nil
}

func (d *DeviceConfig) validate() error {
	switch d.Type {
	case TypeESP8266:
		if d.UDPIP == "" {
			return errors.New("udp_ip must be set for ESP8266 devices")
		}
		if d.Pixels > MaxESP8266Pixels {
			return fmt.Errorf("ESP8266 strips support at most %d pixels, got %d", MaxESP8266Pixels, d.Pixels)
		}
	case TypeFadecandy, TypeStripless:
	default:
		return fmt.Errorf("unknown device type %q (want one of %v)", d.Type, DeviceTypes)
	}

	if d.Pixels%2 != 0 {
		logger.Warnf("device %q: n_pixels %d is odd, using %d", d.Name, d.Pixels, d.Pixels-1)
		d.Pixels--
	}
	switch {
	case d.Pixels < 2:
		return fmt.Errorf("n_pixels must be at least 2, got %d", d.Pixels)
	case d.FFTBins < 1:
		return fmt.Errorf("n_fft_bins must be positive, got %d", d.FFTBins)
	case d.MaxBrightness < 0 || d.MaxBrightness > 255:
		return fmt.Errorf("max_brightness must be in [0, 255], got %d", d.MaxBrightness)
	case d.MinFrequency < MinFrequencyLimit || d.MinFrequency > MaxMinFrequency:
		return fmt.Errorf("min_frequency must be in [%d, %d], got %g", MinFrequencyLimit, MaxMinFrequency, d.MinFrequency)
	case d.MaxFrequency < MinMaxFrequency || d.MaxFrequency > MaxFrequencyLimit:
		return fmt.Errorf("max_frequency must be in [%d, %d], got %g", MinMaxFrequency, MaxFrequencyLimit, d.MaxFrequency)
	case d.MinFrequency >= d.MaxFrequency:
		return fmt.Errorf("min_frequency %g must be below max_frequency %g", d.MinFrequency, d.MaxFrequency)
	}

	known := false
	for _, name := range effect.Names() {
		if name == d.CurrentEffect {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", effect.ErrUnknownEffect, d.CurrentEffect)
	}
	return nil
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			if bVal {
				cfg.LogLevel = "debug"
			}
			logger.Infof("overriding debug from env: %v", bVal)
		}
	}

	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		logger.Infof("overriding log_level from env: %s", val)
	}

	// ENV_CONTROL_ADDR
	if val, ok := os.LookupEnv("ENV_CONTROL_ADDR"); ok {
		cfg.Control.Address = val
		cfg.Control.Enabled = true
		logger.Infof("overriding control.address from env: %s", val)
	}

	// ENV_MIC_RATE
	if val, ok := os.LookupEnv("ENV_MIC_RATE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Audio.MicRate = n
			logger.Infof("overriding audio.mic_rate from env: %d", n)
		}
	}

	// ENV_FPS
	if val, ok := os.LookupEnv("ENV_FPS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Audio.FPS = n
			logger.Infof("overriding audio.fps from env: %d", n)
		}
	}
}
