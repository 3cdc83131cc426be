// SPDX-License-Identifier: MIT
/*
Package visualizer drives the per-frame pipeline for every configured strip:

  - spectral analysis and onset detection on each captured block
  - effect rendering, or decay of the last frame while audio is silent
  - sync fan-out from the leading device
  - global brightness with an optional spring ramp
  - hand-off to each device's sink

Thread Safety:
  - ProcessFrame must be called from a single goroutine (the capture loop)
  - control operations may be called from any goroutine; they only swap
    validated state atomically or queue work for the next frame boundary
*/
package visualizer

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/harmonica"

	"ledviz/internal/config"
	"ledviz/internal/dsp"
	"ledviz/internal/gradient"
	"ledviz/internal/log"
	"ledviz/internal/pixel"
	"ledviz/internal/profile"
)

var (
	ErrUnknownDevice  = errors.New("unknown device")
	ErrUnknownProfile = errors.New("unknown profile")
	ErrOutOfRange     = errors.New("value out of range")
	ErrNoProfiles     = errors.New("profiles are not configured")
)

var logger = log.Named("Visualizer")

// Spring settings for brightness changes: critically damped, settling in
// about a quarter of a second.
const (
	rampFrequency = 16.0
	rampDamping   = 1.0
)

// Options tune an Orchestrator beyond what the configuration file holds.
type Options struct {
	// Clock returns the frame timestamp. Defaults to time.Now.
	Clock func() time.Time
	// Seed seeds every device's random source.
	Seed int64
	// Profiles persists named profiles. Nil disables profile operations.
	Profiles *profile.Store
}

// Output is one device's frame as sent to its sink.
type Output struct {
	Device string
	Pixels [3][]uint8
}

// Observer receives every nth frame on the frame goroutine. It must not block.
type Observer func(frames []Output)

type observer struct {
	every int
	fn    Observer
}

// Stats are pipeline counters for the control plane.
type Stats struct {
	FPS       float64 `json:"fps"`
	Frames    uint64  `json:"frames"`
	Overflows uint64  `json:"overflows"`
	Volume    float64 `json:"volume"`
	SendFails uint64  `json:"send_failures"`
}

// Orchestrator owns every Device and sequences their frames.
type Orchestrator struct {
	devices   []*Device
	byName    map[string]*Device
	palette   gradient.Palette
	gradients map[string][]string
	threshold float64
	fps       int
	clock     func() time.Time
	profiles  *profile.Store

	brightness atomic.Uint64 // math.Float64bits of the target
	sync       atomic.Bool
	ramp       bool

	pendingMu sync.Mutex
	pending   []func()

	obsMu     sync.Mutex
	observers []observer

	overflows func() uint64
	sendFails *log.Counter

	// Frame goroutine state.
	spring     harmonica.Spring
	level, vel float64
	fpsFilter  *dsp.ExpFilter
	volFilter  *dsp.ExpFilter
	lastFrame  time.Time
	frames     atomic.Uint64
	statFPS    atomic.Uint64
	statVolume atomic.Uint64
	outputs    []pixel.Buffer
}

// New builds an Orchestrator for cfg. sinks maps device names to their
// outputs; devices without a sink render but send nothing.
func New(cfg *config.Config, sinks map[string]Sink, opts Options) (*Orchestrator, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	palette, err := cfg.Palette()
	if err != nil {
		return nil, err
	}
	window, err := dsp.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		return nil, err
	}
	audio := dsp.AnalyzerConfig{
		SampleRate:     cfg.Audio.MicRate,
		FPS:            cfg.Audio.FPS,
		RollingHistory: cfg.Audio.RollingHistory,
		Window:         window,
	}

	o := &Orchestrator{
		byName:    make(map[string]*Device, len(cfg.Devices)),
		palette:   palette,
		gradients: cfg.Gradients,
		threshold: cfg.Audio.MinVolumeThreshold,
		fps:       cfg.Audio.FPS,
		clock:     opts.Clock,
		profiles:  opts.Profiles,
		ramp:      cfg.BrightnessRamp,
		sendFails: log.NewCounter(logger, "device send failure", time.Second),
		spring:    harmonica.NewSpring(harmonica.FPS(cfg.Audio.FPS), rampFrequency, rampDamping),
		level:     cfg.Brightness,
		fpsFilter: dsp.NewScalarFilter(float64(cfg.Audio.FPS), 0.2, 0.2),
		volFilter: dsp.NewScalarFilter(0, 0.02, 0.02),
	}
	o.brightness.Store(math.Float64bits(cfg.Brightness))
	o.sync.Store(cfg.Sync)

	for i, dc := range cfg.Devices {
		d, err := newDevice(dc, audio, palette, cfg.Gradients, opts.Seed+int64(i), sinks[dc.Name])
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", dc.Name, err)
		}
		o.devices = append(o.devices, d)
		o.byName[dc.Name] = d
	}
	o.outputs = make([]pixel.Buffer, len(o.devices))

	logger.Infof("%d devices, %d fps, %d samples per frame", len(o.devices), cfg.Audio.FPS, audio.SamplesPerFrame())
	return o, nil
}

// SamplesPerFrame is the block size ProcessFrame expects.
func (o *Orchestrator) SamplesPerFrame() int {
	return o.devices[0].analyzer.SamplesPerFrame()
}

// Devices returns the devices in configuration order.
func (o *Orchestrator) Devices() []*Device { return o.devices }

// Device returns the named device.
func (o *Orchestrator) Device(name string) (*Device, error) {
	d, ok := o.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	return d, nil
}

// Observe registers fn to receive every nth frame.
func (o *Orchestrator) Observe(every int, fn Observer) {
	if every < 1 {
		every = 1
	}
	o.obsMu.Lock()
	o.observers = append(o.observers, observer{every: every, fn: fn})
	o.obsMu.Unlock()
}

// SetOverflowSource reports capture overflows in Stats.
func (o *Orchestrator) SetOverflowSource(fn func() uint64) {
	o.obsMu.Lock()
	o.overflows = fn
	o.obsMu.Unlock()
}

// enqueue schedules fn to run on the frame goroutine before the next frame.
func (o *Orchestrator) enqueue(fn func()) {
	o.pendingMu.Lock()
	o.pending = append(o.pending, fn)
	o.pendingMu.Unlock()
}

func (o *Orchestrator) runPending() {
	o.pendingMu.Lock()
	work := o.pending
	o.pending = nil
	o.pendingMu.Unlock()
	for _, fn := range work {
		fn()
	}
}

// ProcessFrame runs one frame for every device from a block of captured
// samples. It returns the buffers handed to the sinks, which stay valid
// until the next call.
func (o *Orchestrator) ProcessFrame(samples []int16) []pixel.Buffer {
	o.runPending()
	now := o.clock()

	var volume float64
	for i, d := range o.devices {
		frame := d.analyze(samples, now)
		volume = frame.Volume
		o.outputs[i] = d.render(frame.Volume > o.threshold, now)
	}

	if o.sync.Load() && len(o.devices) > 1 {
		leader := o.outputs[0]
		for i := 1; i < len(o.outputs); i++ {
			if o.devices[i].Pixels() == leader.Len() {
				o.outputs[i] = leader
			}
		}
	}

	level := o.stepBrightness()
	shown := make([]pixel.Buffer, len(o.outputs))
	for i, d := range o.devices {
		shown[i] = o.outputs[i].Clone().Scale(level)
		if d.sink == nil {
			continue
		}
		if err := d.sink.Show(shown[i]); err != nil {
			o.sendFails.Inc(now)
			logger.Debugf("%s: %v", d.name, err)
		}
	}

	o.updateStats(now, volume)
	o.notify(shown)
	return shown
}

func (o *Orchestrator) stepBrightness() float64 {
	target := o.Brightness()
	if !o.ramp {
		o.level, o.vel = target, 0
		return target
	}
	o.level, o.vel = o.spring.Update(o.level, o.vel, target)
	return math.Max(0, math.Min(1, o.level))
}

func (o *Orchestrator) updateStats(now time.Time, volume float64) {
	if !o.lastFrame.IsZero() {
		if dt := now.Sub(o.lastFrame).Seconds(); dt > 0 {
			o.statFPS.Store(math.Float64bits(o.fpsFilter.UpdateScalar(1 / dt)))
		}
	} else {
		o.statFPS.Store(math.Float64bits(o.fpsFilter.Scalar()))
	}
	o.lastFrame = now
	o.statVolume.Store(math.Float64bits(o.volFilter.UpdateScalar(volume)))
	o.frames.Add(1)
}

func (o *Orchestrator) notify(shown []pixel.Buffer) {
	o.obsMu.Lock()
	obs := o.observers
	o.obsMu.Unlock()
	if len(obs) == 0 {
		return
	}

	n := o.frames.Load()
	var frames []Output
	for _, ob := range obs {
		if n%uint64(ob.every) != 0 {
			continue
		}
		if frames == nil {
			frames = make([]Output, len(shown))
			for i, b := range shown {
				frames[i] = Output{Device: o.devices[i].name, Pixels: b.Bytes(255)}
			}
		}
		ob.fn(frames)
	}
}

// Stats returns the pipeline counters.
func (o *Orchestrator) Stats() Stats {
	o.obsMu.Lock()
	overflows := o.overflows
	o.obsMu.Unlock()

	s := Stats{
		FPS:       math.Float64frombits(o.statFPS.Load()),
		Frames:    o.frames.Load(),
		Volume:    math.Float64frombits(o.statVolume.Load()),
		SendFails: o.sendFails.Count(),
	}
	if overflows != nil {
		s.Overflows = overflows()
	}
	return s
}
