// SPDX-License-Identifier: MIT
package visualizer

import (
	"errors"
	"fmt"
	"math"

	"ledviz/internal/config"
	"ledviz/internal/effect"
	"ledviz/internal/profile"
)

// DeviceInfo describes a device and its effects for the control plane.
type DeviceInfo struct {
	Name          string                    `json:"name"`
	Type          string                    `json:"type"`
	Pixels        int                       `json:"n_pixels"`
	MinFrequency  float64                   `json:"min_frequency"`
	MaxFrequency  float64                   `json:"max_frequency"`
	CurrentEffect string                    `json:"current_effect"`
	Reactive      []string                  `json:"reactive_effects"`
	NonReactive   []string                  `json:"non_reactive_effects"`
	Schemas       map[string]effect.Schema  `json:"schemas"`
	Options       map[string]effect.Options `json:"options"`
}

// Info returns a consistent view of d.
func (d *Device) Info() DeviceInfo {
	store := d.Options()
	lo, hi := d.FrequencyRange()
	set := effect.NewSet()
	reactive, nonReactive := set.Split()
	return DeviceInfo{
		Name:          d.name,
		Type:          d.kind,
		Pixels:        store.Params().Pixels,
		MinFrequency:  lo,
		MaxFrequency:  hi,
		CurrentEffect: d.Effect(),
		Reactive:      reactive,
		NonReactive:   nonReactive,
		Schemas:       set.Schemas(store.Params()),
		Options:       store.Snapshot(),
	}
}

// DeviceInfos describes every device.
func (o *Orchestrator) DeviceInfos() []DeviceInfo {
	out := make([]DeviceInfo, len(o.devices))
	for i, d := range o.devices {
		out[i] = d.Info()
	}
	return out
}

// targets is the named device, or every device when sync is on.
func (o *Orchestrator) targets(device string) ([]*Device, error) {
	d, err := o.Device(device)
	if err != nil {
		return nil, err
	}
	if o.Sync() {
		return o.devices, nil
	}
	return []*Device{d}, nil
}

// Brightness returns the target global brightness.
func (o *Orchestrator) Brightness() float64 {
	return math.Float64frombits(o.brightness.Load())
}

// SetBrightness sets the global brightness in [0,1].
func (o *Orchestrator) SetBrightness(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: brightness must be in [0, 1], got %v", ErrOutOfRange, v)
	}
	o.brightness.Store(math.Float64bits(v))
	logger.Debugf("brightness -> %.2f", v)
	return nil
}

// Sync reports whether control actions and output are mirrored across devices.
func (o *Orchestrator) Sync() bool { return o.sync.Load() }

// SetSync turns sync mode on or off.
func (o *Orchestrator) SetSync(on bool) {
	o.sync.Store(on)
	logger.Debugf("sync -> %v", on)
}

// SetEffect selects an effect on device, or on every device in sync mode.
func (o *Orchestrator) SetEffect(device, name string) error {
	targets, err := o.targets(device)
	if err != nil {
		return err
	}
	if !knownEffect(name) {
		return fmt.Errorf("%w: %s", effect.ErrUnknownEffect, name)
	}
	for _, d := range targets {
		n := name
		d.current.Store(&n)
	}
	logger.Infof("%s: effect -> %s (%d devices)", device, name, len(targets))
	return nil
}

func knownEffect(name string) bool {
	for _, n := range effect.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// SetOption sets one effect option on device, or on every device in sync
// mode. Every target is validated before any is changed.
func (o *Orchestrator) SetOption(device, effectName, key string, value any) error {
	return o.SetOptions(device, map[string]effect.Options{effectName: {key: value}})
}

// SetOptions sets several options at once with the same rules as SetOption.
// The targets stay locked from validation to the last write, so a resize
// cannot land in between.
func (o *Orchestrator) SetOptions(device string, values map[string]effect.Options) error {
	targets, err := o.targets(device)
	if err != nil {
		return err
	}
	unlock := lockDevices(targets)
	defer unlock()
	for _, d := range targets {
		if err := d.checkOptions(values); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	for _, d := range targets {
		if err := d.applyOptions(values); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// SetFrequencyMin moves the lower analysis bound of device.
func (o *Orchestrator) SetFrequencyMin(device string, hz float64) error {
	d, err := o.Device(device)
	if err != nil {
		return err
	}
	if hz < config.MinFrequencyLimit || hz > config.MaxMinFrequency {
		return fmt.Errorf("%w: min frequency must be in [%d, %d], got %g",
			ErrOutOfRange, config.MinFrequencyLimit, config.MaxMinFrequency, hz)
	}
	_, hi := d.FrequencyRange()
	if hz >= hi {
		return fmt.Errorf("%w: min frequency %g must be below max frequency %g", ErrOutOfRange, hz, hi)
	}
	return d.setFrequencyRange(hz, hi)
}

// SetFrequencyMax moves the upper analysis bound of device.
func (o *Orchestrator) SetFrequencyMax(device string, hz float64) error {
	d, err := o.Device(device)
	if err != nil {
		return err
	}
	if hz < config.MinMaxFrequency || hz > config.MaxFrequencyLimit {
		return fmt.Errorf("%w: max frequency must be in [%d, %d], got %g",
			ErrOutOfRange, config.MinMaxFrequency, config.MaxFrequencyLimit, hz)
	}
	lo, _ := d.FrequencyRange()
	if hz <= lo {
		return fmt.Errorf("%w: max frequency %g must be above min frequency %g", ErrOutOfRange, hz, lo)
	}
	return d.setFrequencyRange(lo, hz)
}

// SetPixelCount resizes device at the next frame boundary. Odd counts are
// rounded down.
func (o *Orchestrator) SetPixelCount(device string, n int) error {
	d, err := o.Device(device)
	if err != nil {
		return err
	}
	n -= n % 2
	if n < 2 {
		return fmt.Errorf("%w: pixel count must be at least 2", ErrOutOfRange)
	}
	if d.kind == config.TypeESP8266 && n > config.MaxESP8266Pixels {
		return fmt.Errorf("%w: ESP8266 strips support at most %d pixels", ErrOutOfRange, config.MaxESP8266Pixels)
	}
	o.enqueue(func() {
		if err := d.resize(n, o.palette, o.gradients); err != nil {
			logger.Errorf("%s: resize to %d pixels failed: %v", d.name, n, err)
			return
		}
		logger.Infof("%s: resized to %d pixels", d.name, n)
	})
	return nil
}

// Profiles lists the saved profile names.
func (o *Orchestrator) Profiles() ([]string, error) {
	if o.profiles == nil {
		return nil, ErrNoProfiles
	}
	return o.profiles.List()
}

// Snapshot captures the current visual state as a profile.
func (o *Orchestrator) Snapshot(name string) profile.Profile {
	p := profile.Profile{
		Name:       name,
		Brightness: o.Brightness(),
		Sync:       o.Sync(),
		Devices:    make(map[string]profile.DeviceState, len(o.devices)),
	}
	for _, d := range o.devices {
		snap := d.Options().Snapshot()
		opts := make(map[string]map[string]any, len(snap))
		for e, values := range snap {
			opts[e] = map[string]any(values.Clone())
		}
		p.Devices[d.name] = profile.DeviceState{Effect: d.Effect(), Options: opts}
	}
	return p
}

// SaveProfile stores the current visual state under name.
func (o *Orchestrator) SaveProfile(name string) error {
	if o.profiles == nil {
		return ErrNoProfiles
	}
	return o.profiles.Save(o.Snapshot(name))
}

// LoadProfile restores a saved profile. Every device section is validated
// before anything changes; devices the profile does not name are left alone.
func (o *Orchestrator) LoadProfile(name string) error {
	if o.profiles == nil {
		return ErrNoProfiles
	}
	p, err := o.profiles.Load(name)
	if errors.Is(err, profile.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	if err != nil {
		return err
	}
	return o.Restore(p)
}

// Restore applies a profile with all-or-nothing validation.
func (o *Orchestrator) Restore(p profile.Profile) error {
	if p.Brightness < 0 || p.Brightness > 1 {
		return fmt.Errorf("%w: profile brightness %v", ErrOutOfRange, p.Brightness)
	}
	type change struct {
		d      *Device
		effect string
		opts   map[string]effect.Options
	}
	var changes []change
	unlock := lockDevices(o.devices)
	defer unlock()
	for devName, state := range p.Devices {
		d, err := o.Device(devName)
		if err != nil {
			logger.Warnf("profile %q: skipping %v", p.Name, err)
			continue
		}
		if state.Effect != "" && !knownEffect(state.Effect) {
			return fmt.Errorf("profile %q: %s: %w: %s", p.Name, devName, effect.ErrUnknownEffect, state.Effect)
		}
		opts := make(map[string]effect.Options, len(state.Options))
		for e, values := range state.Options {
			opts[e] = effect.Options(values)
		}
		if err := d.checkOptions(opts); err != nil {
			return fmt.Errorf("profile %q: %s: %w", p.Name, devName, err)
		}
		changes = append(changes, change{d: d, effect: state.Effect, opts: opts})
	}

	for _, c := range changes {
		if err := c.d.applyOptions(c.opts); err != nil {
			return err
		}
		if c.effect != "" {
			n := c.effect
			c.d.current.Store(&n)
		}
	}
	o.brightness.Store(math.Float64bits(p.Brightness))
	o.sync.Store(p.Sync)
	logger.Infof("restored profile %q", p.Name)
	return nil
}
