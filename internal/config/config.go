// SPDX-License-Identifier: MIT
package config

import (
	"fmt"

	"ledviz/internal/gradient"
)

// Defaults and hardware limits.
const (
	MinDeviceID = -1 // -1 selects the system default input device

	DefaultMicRate            = 48000
	DefaultFPS                = 60
	DefaultRollingHistory     = 1
	DefaultMinVolumeThreshold = 0.001
	DefaultFFTWindow          = "Hamming"

	DefaultControlAddress = ":8082"
	DefaultPreviewEvery   = 2
	DefaultProfilesDir    = "./profiles"
	DefaultRecordingDir   = "./recordings"

	DefaultBrightness    = 0.8
	DefaultMaxBrightness = 255
	DefaultPixels        = 150
	DefaultFFTBins       = 24
	DefaultMinFrequency  = 20
	DefaultMaxFrequency  = 18000
	DefaultEffect        = "Energy"

	DefaultUDPPort    = 7777
	DefaultOPCServer  = "localhost:7890"
	MaxESP8266Pixels  = 256
	MinFrequencyLimit = 0
	MaxMinFrequency   = 19999
	MinMaxFrequency   = 20
	MaxFrequencyLimit = 20000
)

// Device types understood by the transport layer.
const (
	TypeESP8266   = "ESP8266"
	TypeFadecandy = "Fadecandy"
	TypeStripless = "Stripless"
)

// DeviceTypes lists every supported device type.
var DeviceTypes = []string{TypeESP8266, TypeFadecandy, TypeStripless}

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug    bool   `yaml:"debug"`     // Enable debug logging.
	LogLevel string `yaml:"log_level"` // Logging level ("debug", "info", "warn", "error").

	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`
	Control   ControlConfig   `yaml:"control"`

	ProfilesDir string `yaml:"profiles_dir"` // Directory holding saved profiles.

	Sync           bool    `yaml:"sync"`            // Mirror control actions and output across devices.
	Brightness     float64 `yaml:"brightness"`      // Global brightness in [0,1].
	BrightnessRamp bool    `yaml:"brightness_ramp"` // Spring-smooth brightness changes.

	Colors    map[string]string   `yaml:"colors"`    // Name -> #rrggbb.
	Gradients map[string][]string `yaml:"gradients"` // Name -> ordered color names.

	Devices []DeviceConfig `yaml:"devices"`
}

// AudioConfig holds settings related to audio capture and analysis.
type AudioConfig struct {
	InputDevice        int     `yaml:"input_device"`         // PortAudio device index (-1 for default).
	InputFile          string  `yaml:"input_file"`           // Replay this WAV file instead of capturing.
	MicRate            int     `yaml:"mic_rate"`             // Sample rate in Hz.
	FPS                int     `yaml:"fps"`                  // Frames rendered per second.
	RollingHistory     int     `yaml:"n_rolling_history"`    // Capture frames per FFT window.
	MinVolumeThreshold float64 `yaml:"min_volume_threshold"` // Reactive effects pause below this peak volume.
	FFTWindow          string  `yaml:"fft_window"`           // Analysis window function name.
	LowLatency         bool    `yaml:"low_latency"`          // Request low latency from PortAudio.
}

// RecordingConfig holds settings related to audio recording.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// ControlConfig holds the websocket control plane settings.
type ControlConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Address      string `yaml:"address"`
	PreviewEvery int    `yaml:"preview_every"` // Frames between preview broadcasts, 0 disables.
}

// DeviceConfig describes one LED strip.
type DeviceConfig struct {
	Name          string                    `yaml:"name"`
	Type          string                    `yaml:"type"`
	UDPIP         string                    `yaml:"udp_ip,omitempty"`
	UDPPort       int                       `yaml:"udp_port,omitempty"`
	OPCServer     string                    `yaml:"opc_server,omitempty"`
	OPCChannel    int                       `yaml:"opc_channel,omitempty"`
	MaxBrightness int                       `yaml:"max_brightness"`
	Pixels        int                       `yaml:"n_pixels"`
	FFTBins       int                       `yaml:"n_fft_bins"`
	MinFrequency  float64                   `yaml:"min_frequency"`
	MaxFrequency  float64                   `yaml:"max_frequency"`
	CurrentEffect string                    `yaml:"current_effect"`
	EffectOpts    map[string]map[string]any `yaml:"effect_opts,omitempty"`
}

// Default returns the built-in configuration: one Stripless device.
func Default() *Config {
	colors := make(map[string]string)
	for name, rgb := range gradient.DefaultPalette() {
		colors[name] = rgb.Hex()
	}
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:        MinDeviceID,
			MicRate:            DefaultMicRate,
			FPS:                DefaultFPS,
			RollingHistory:     DefaultRollingHistory,
			MinVolumeThreshold: DefaultMinVolumeThreshold,
			FFTWindow:          DefaultFFTWindow,
		},
		Recording: RecordingConfig{
			OutputDir: DefaultRecordingDir,
		},
		Control: ControlConfig{
			Address:      DefaultControlAddress,
			PreviewEvery: DefaultPreviewEvery,
		},
		ProfilesDir:    DefaultProfilesDir,
		Sync:           true,
		Brightness:     DefaultBrightness,
		BrightnessRamp: true,
		Colors:         colors,
		Gradients:      gradient.DefaultGradients(),
		Devices: []DeviceConfig{
			{Name: "Strip", Type: TypeStripless},
		},
	}
}

// Palette parses the configured colors.
func (c *Config) Palette() (gradient.Palette, error) {
	p := make(gradient.Palette, len(c.Colors))
	for name, hex := range c.Colors {
		rgb, err := gradient.ParseHex(hex)
		if err != nil {
			return nil, fmt.Errorf("color %q: %w", name, err)
		}
		p[name] = rgb
	}
	return p, nil
}

// Device returns the named device configuration.
func (c *Config) Device(name string) (*DeviceConfig, bool) {
	for i := range c.Devices {
		if c.Devices[i].Name == name {
			return &c.Devices[i], true
		}
	}
	return nil, false
}

// applyDefaults fills device fields a file left empty.
func (d *DeviceConfig) applyDefaults() {
	if d.MaxBrightness == 0 {
		d.MaxBrightness = DefaultMaxBrightness
	}
	if d.Pixels == 0 {
		d.Pixels = DefaultPixels
	}
	if d.FFTBins == 0 {
		d.FFTBins = DefaultFFTBins
	}
	if d.MinFrequency == 0 && d.MaxFrequency == 0 {
		d.MinFrequency, d.MaxFrequency = DefaultMinFrequency, DefaultMaxFrequency
	}
	if d.CurrentEffect == "" {
		d.CurrentEffect = DefaultEffect
	}
	switch d.Type {
	case TypeESP8266:
		if d.UDPPort == 0 {
			d.UDPPort = DefaultUDPPort
		}
	case TypeFadecandy:
		if d.OPCServer == "" {
			d.OPCServer = DefaultOPCServer
		}
	}
}
