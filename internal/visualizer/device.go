// SPDX-License-Identifier: MIT
package visualizer

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"ledviz/internal/config"
	"ledviz/internal/dsp"
	"ledviz/internal/effect"
	"ledviz/internal/gradient"
	"ledviz/internal/onset"
	"ledviz/internal/pixel"
)

// silenceDecay fades a reactive effect's last frame while audio is quiet.
const silenceDecay = 0.95

// Sink receives a device's finished frame. Implementations clamp to the
// strip's brightness limit and encode for the wire.
type Sink interface {
	Show(b pixel.Buffer) error
}

// Device is the pipeline for one strip.
type Device struct {
	name     string
	kind     string
	analyzer *dsp.Analyzer
	sink     Sink

	current atomic.Pointer[string]
	options atomic.Pointer[effect.Store]
	pixels  atomic.Int64

	mu      sync.Mutex // serializes option writes with resize; guards freq*
	freqMin float64
	freqMax float64

	// Owned by the frame goroutine.
	detector  *onset.Detector
	filters   *dsp.FilterBank
	gradients *gradient.Store
	effects   *effect.Set
	prev      pixel.Buffer
	rand      *rand.Rand
	flags     onset.Flags
	lastFrame time.Time
	frame     dsp.Frame
}

// newDevice builds the pipeline described by dc. Option values in
// dc.EffectOpts are validated against the effect schemas.
func newDevice(dc config.DeviceConfig, audio dsp.AnalyzerConfig, palette gradient.Palette,
	gradients map[string][]string, seed int64, sink Sink) (*Device, error) {

	audio.Bands = dc.FFTBins
	audio.MinFrequency, audio.MaxFrequency = dc.MinFrequency, dc.MaxFrequency
	analyzer, err := dsp.NewAnalyzer(audio)
	if err != nil {
		return nil, err
	}
	detector, err := onset.NewDetector(dc.FFTBins, onset.DefaultConfig())
	if err != nil {
		return nil, err
	}

	d := &Device{
		name:     dc.Name,
		kind:     dc.Type,
		analyzer: analyzer,
		sink:     sink,
		freqMin:  dc.MinFrequency,
		freqMax:  dc.MaxFrequency,
		detector: detector,
		rand:     rand.New(rand.NewSource(seed)),
	}
	if err := d.resize(dc.Pixels, palette, gradients); err != nil {
		return nil, err
	}
	if _, ok := d.effects.Get(dc.CurrentEffect); !ok {
		return nil, fmt.Errorf("%w: %s", effect.ErrUnknownEffect, dc.CurrentEffect)
	}
	name := dc.CurrentEffect
	d.current.Store(&name)

	if len(dc.EffectOpts) > 0 {
		opts := make(map[string]effect.Options, len(dc.EffectOpts))
		for e, values := range dc.EffectOpts {
			opts[e] = effect.Options(values)
		}
		d.mu.Lock()
		err := d.applyOptions(opts)
		d.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// resize rebuilds everything that depends on the pixel count: gradients,
// filter bank, buffers, a fresh effect set and its option store. Current
// option values are kept where they are still in bounds.
func (d *Device) resize(pixels int, palette gradient.Palette, gradients map[string][]string) error {
	grads, err := gradient.NewStore(palette, gradients, pixels)
	if err != nil {
		return err
	}
	bands := d.analyzer.Config().Bands
	p := effect.Params{Pixels: pixels, Bands: bands}
	set := effect.NewSet()
	store := effect.NewStore(set, p, palette, grads.Names())

	d.mu.Lock()
	if old := d.options.Load(); old != nil {
		if dropped := store.Merge(old.Snapshot()); len(dropped) > 0 {
			logger.Infof("%s: reset %v to defaults for %d pixels", d.name, dropped, pixels)
		}
	}
	d.options.Store(store)
	d.pixels.Store(int64(pixels))
	d.mu.Unlock()

	d.gradients = grads
	d.filters = dsp.NewFilterBank(bands, pixels)
	d.effects = set
	d.prev = pixel.New(pixels)
	return nil
}

// applyOptions validates and stores option values. d.mu must be held.
func (d *Device) applyOptions(values map[string]effect.Options) error {
	return d.options.Load().Apply(values)
}

// checkOptions validates option values without storing them. d.mu must be
// held.
func (d *Device) checkOptions(values map[string]effect.Options) error {
	return d.options.Load().Check(values)
}

// lockDevices locks ds in order and returns the matching unlock. Callers pass
// devices in configuration order so that overlapping sets never deadlock.
func lockDevices(ds []*Device) (unlock func()) {
	for _, d := range ds {
		d.mu.Lock()
	}
	return func() {
		for i := len(ds) - 1; i >= 0; i-- {
			ds[i].mu.Unlock()
		}
	}
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Type returns the configured device type.
func (d *Device) Type() string { return d.kind }

// Effect returns the selected effect name.
func (d *Device) Effect() string { return *d.current.Load() }

// Pixels returns the strip length.
func (d *Device) Pixels() int { return int(d.pixels.Load()) }

// Options returns the device's option store.
func (d *Device) Options() *effect.Store { return d.options.Load() }

// FrequencyRange returns the analysis band limits.
func (d *Device) FrequencyRange() (lo, hi float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freqMin, d.freqMax
}

// Flags returns the onset flags of the most recent frame. Frame goroutine only.
func (d *Device) Flags() onset.Flags { return d.flags }

// analyze runs the spectral analysis and onset detection for one block.
func (d *Device) analyze(samples []int16, now time.Time) dsp.Frame {
	d.frame = d.analyzer.Update(samples)
	d.flags = d.detector.Detect(d.frame.Energy, now)
	return d.frame
}

// render produces the device's next frame. Reactive effects only run when
// audible is set; otherwise the previous frame decays.
func (d *Device) render(audible bool, now time.Time) pixel.Buffer {
	e, ok := d.effects.Get(d.Effect())
	if !ok {
		e, _ = d.effects.Get(effect.Off)
	}

	var elapsed time.Duration
	if !d.lastFrame.IsZero() {
		elapsed = now.Sub(d.lastFrame)
	}
	d.lastFrame = now

	if e.Reactive() && !audible {
		d.prev = d.prev.Clone().Scale(silenceDecay)
		return d.prev
	}

	store := d.options.Load()
	ctx := &effect.Context{
		Params:    store.Params(),
		Flags:     d.flags,
		Now:       now,
		Elapsed:   elapsed,
		Rand:      d.rand,
		Filters:   d.filters,
		Gradients: d.gradients,
		Palette:   store.Palette(),
		Prev:      d.prev,
		Options:   store.Snapshot(),
		Effects:   d.effects,
	}
	out := e.Visualize(ctx, d.frame.Mel)
	if out.Len() != d.Pixels() {
		fixed := pixel.New(d.Pixels())
		fixed.CopyFrom(out)
		out = fixed
	}
	d.prev = out
	return out
}

func (d *Device) setFrequencyRange(lo, hi float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.analyzer.SetFrequencyRange(lo, hi); err != nil {
		return err
	}
	d.freqMin, d.freqMax = lo, hi
	return nil
}
