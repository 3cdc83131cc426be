// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync/atomic"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"ledviz/internal/log"
	"ledviz/pkg/bitint"
)

const (
	// int16 full scale.
	sampleNorm = 1.0 / 32768.0

	// gainFloor keeps the mel normalization finite after long silence.
	gainFloor = 1e-9
)

var logger = log.Named("Analyzer")

// AnalyzerConfig describes the capture format and band layout of one analyzer.
type AnalyzerConfig struct {
	SampleRate     int
	FPS            int
	RollingHistory int // audio frames concatenated per FFT
	Bands          int // N_FFT_BINS
	MinFrequency   float64
	MaxFrequency   float64
	Window         WindowFunc
}

// SamplesPerFrame is the number of samples delivered per video frame.
func (c AnalyzerConfig) SamplesPerFrame() int {
	if c.FPS <= 0 {
		return 0
	}
	return c.SampleRate / c.FPS
}

func (c AnalyzerConfig) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	case c.FPS <= 0:
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	case c.SampleRate/c.FPS < 2:
		return fmt.Errorf("fps %d too high for sample rate %d", c.FPS, c.SampleRate)
	case c.RollingHistory < 1:
		return fmt.Errorf("rolling history must be at least 1, got %d", c.RollingHistory)
	case c.Bands < 1:
		return fmt.Errorf("band count must be positive, got %d", c.Bands)
	}
	return nil
}

// Frame is one analysis result. Its slices are owned by the Analyzer and stay
// valid until the next Update.
type Frame struct {
	// Mel is the gain-normalized, smoothed band energy that drives effects.
	Mel []float64
	// Energy is the gain-normalized band energy before smoothing; onset
	// detection runs on it.
	Energy []float64
	// Volume is the peak absolute sample over the rolling window, in [0,1].
	Volume float64
	// X is the display frequency axis and Y the display-smoothed curve.
	X []float64
	Y []float64
}

// Analyzer turns blocks of int16 samples into normalized mel band energy.
// Update must be called from one goroutine; SetFrequencyRange may be called
// from any goroutine and takes effect on the next Update.
type Analyzer struct {
	cfg             AnalyzerConfig
	samplesPerFrame int

	rolling []float64 // RollingHistory*samplesPerFrame samples, oldest first
	window  []float64
	padded  []float64
	fft     *fourier.FFT
	coeffs  []complex128
	mags    []float64 // first len(rolling)/2 magnitudes

	projector atomic.Pointer[MelProjector]

	melGain      *ExpFilter
	melSmoothing *ExpFilter
	plot         *ExpFilter

	raw     []float64
	energy  []float64
	blurred []float64
}

// NewAnalyzer validates cfg and preallocates every buffer Update needs.
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	spf := cfg.SamplesPerFrame()
	n := spf * cfg.RollingHistory
	fftSize := bitint.NextPowerOfTwo(n)

	a := &Analyzer{
		cfg:             cfg,
		samplesPerFrame: spf,
		rolling:         make([]float64, n),
		window:          windowCoefficients(n, cfg.Window),
		padded:          make([]float64, fftSize),
		fft:             fourier.NewFFT(fftSize),
		coeffs:          make([]complex128, fftSize/2+1),
		mags:            make([]float64, n/2),
		melGain:         NewScalarFilter(0.1, 0.01, 0.99),
		melSmoothing:    NewTiledExpFilter(0.1, cfg.Bands, 0.5, 0.99),
		plot:            NewTiledExpFilter(0.1, cfg.Bands, 0.5, 0.99),
		raw:             make([]float64, cfg.Bands),
		energy:          make([]float64, cfg.Bands),
		blurred:         make([]float64, cfg.Bands),
	}
	if err := a.SetFrequencyRange(cfg.MinFrequency, cfg.MaxFrequency); err != nil {
		return nil, err
	}

	logger.Debugf("initialized (rate %d Hz, %d samples/frame, fft %d, %d bands, window %v)",
		cfg.SampleRate, spf, fftSize, cfg.Bands, cfg.Window)
	return a, nil
}

// SetFrequencyRange rebuilds the mel bank for new bounds. The swap is atomic,
// so a frame in flight finishes with the previous bank.
func (a *Analyzer) SetFrequencyRange(minHz, maxHz float64) error {
	p, err := NewMelProjector(MelParams{
		Bands:      a.cfg.Bands,
		FFTBins:    len(a.mags),
		SampleRate: float64(a.cfg.SampleRate),
		MinHz:      minHz,
		MaxHz:      maxHz,
	})
	if err != nil {
		return err
	}
	a.projector.Store(p)
	return nil
}

// Projector returns the mel bank currently in use.
func (a *Analyzer) Projector() *MelProjector { return a.projector.Load() }

// SamplesPerFrame is the block size Update expects.
func (a *Analyzer) SamplesPerFrame() int { return a.samplesPerFrame }

// Config returns the configuration the analyzer was built with.
func (a *Analyzer) Config() AnalyzerConfig { return a.cfg }

// Update pushes one block of samples into the rolling window and analyzes it.
// Short blocks are zero padded and long ones truncated to SamplesPerFrame.
func (a *Analyzer) Update(samples []int16) Frame {
	spf := a.samplesPerFrame

	// --- 1. Roll the history and append the new block ---
	copy(a.rolling, a.rolling[spf:])
	tail := a.rolling[len(a.rolling)-spf:]
	for i := range tail {
		if i < len(samples) {
			tail[i] = float64(samples[i]) * sampleNorm
		} else {
			tail[i] = 0
		}
	}

	vol := 0.0
	for _, s := range a.rolling {
		vol = math.Max(vol, math.Abs(s))
	}

	// --- 2. Window, zero pad, FFT ---
	for i := range a.padded {
		if i < len(a.rolling) {
			a.padded[i] = a.rolling[i] * a.window[i]
		} else {
			a.padded[i] = 0
		}
	}
	a.fft.Coefficients(a.coeffs, a.padded)
	for i := range a.mags {
		a.mags[i] = cmplx.Abs(a.coeffs[i])
	}

	// --- 3. Mel projection and gain normalization ---
	p := a.projector.Load()
	p.Project(a.raw, a.mags)
	for i, v := range a.raw {
		a.raw[i] = v * v
	}

	GaussianFilter1D(a.blurred, a.raw, 1.0)
	gain := math.Max(a.melGain.UpdateScalar(floats.Max(a.blurred)), gainFloor)
	for i, v := range a.raw {
		a.energy[i] = v / gain
	}

	mel := a.melSmoothing.Update(a.energy)
	y := a.plot.Update(mel)

	return Frame{
		Mel:    mel,
		Energy: a.energy,
		Volume: vol,
		X:      p.Axis(),
		Y:      y,
	}
}

// Gain returns the current normalization gain.
func (a *Analyzer) Gain() float64 { return a.melGain.Scalar() }
