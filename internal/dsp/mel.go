// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MelParams fully determine a MelProjector. Two projectors built from equal
// params have bit-identical weights.
type MelParams struct {
	Bands      int     // number of mel bands (N_FFT_BINS)
	FFTBins    int     // number of linear magnitude bins fed to Project
	SampleRate float64 // Hz
	MinHz      float64
	MaxHz      float64
}

func (p MelParams) validate() error {
	switch {
	case p.Bands < 1:
		return fmt.Errorf("mel bands must be positive, got %d", p.Bands)
	case p.FFTBins < 2:
		return fmt.Errorf("fft bins must be at least 2, got %d", p.FFTBins)
	case p.SampleRate <= 0:
		return fmt.Errorf("sample rate must be positive, got %f", p.SampleRate)
	case p.MinHz < 0 || p.MinHz >= p.MaxHz:
		return fmt.Errorf("invalid frequency range [%g, %g]", p.MinHz, p.MaxHz)
	}
	return nil
}

// MelProjector maps linear FFT magnitudes onto triangular, perceptually spaced
// bands. It is immutable once built.
type MelProjector struct {
	params  MelParams
	weights *mat.Dense // Bands x FFTBins
	centers []float64  // band centers, Hz
	axis    []float64  // display axis from MinHz to MaxHz, one point per band
}

// hzToMel and melToHz use the 3340*log9(1+f/250) scale, which spreads the
// bands more evenly over a small band count than the HTK 2595*log10 curve.
func hzToMel(hz float64) float64 {
	return 3340.0 * math.Log(1+hz/250.0) / math.Log(9)
}

func melToHz(mel float64) float64 {
	return 250.0*math.Pow(9, mel/3340.0) - 250.0
}

// NewMelProjector builds the weight matrix for p.
func NewMelProjector(p MelParams) (*MelProjector, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	melMin, melMax := hzToMel(p.MinHz), hzToMel(p.MaxHz)
	delta := math.Abs(melMax-melMin) / float64(p.Bands+1)

	// Band i spans edges i..i+2 with its peak at edge i+1.
	edges := make([]float64, p.Bands+2)
	for i := range edges {
		edges[i] = melToHz(melMin + delta*float64(i))
	}

	freqs := make([]float64, p.FFTBins)
	floats.Span(freqs, 0, p.SampleRate/2)

	weights := mat.NewDense(p.Bands, p.FFTBins, nil)
	centers := make([]float64, p.Bands)
	for band := 0; band < p.Bands; band++ {
		lower, center, upper := edges[band], edges[band+1], edges[band+2]
		centers[band] = center
		for bin, f := range freqs {
			switch {
			case f >= lower && f <= center:
				weights.Set(band, bin, (f-lower)/(center-lower))
			case f > center && f <= upper:
				weights.Set(band, bin, (upper-f)/(upper-center))
			}
		}
	}

	axis := make([]float64, p.Bands)
	if p.Bands == 1 {
		axis[0] = p.MinHz
	} else {
		floats.Span(axis, p.MinHz, p.MaxHz)
		// Span accumulates rounding; pin the ends.
		axis[0], axis[len(axis)-1] = p.MinHz, p.MaxHz
	}

	return &MelProjector{params: p, weights: weights, centers: centers, axis: axis}, nil
}

// Project writes W*magnitudes into dst and returns it. dst must have Bands()
// elements and magnitudes FFTBins elements.
func (m *MelProjector) Project(dst, magnitudes []float64) []float64 {
	if len(dst) != m.params.Bands || len(magnitudes) != m.params.FFTBins {
		panic(fmt.Sprintf("dsp: mel projection size mismatch: dst=%d (want %d) src=%d (want %d)",
			len(dst), m.params.Bands, len(magnitudes), m.params.FFTBins))
	}
	out := mat.NewVecDense(len(dst), dst)
	out.MulVec(m.weights, mat.NewVecDense(len(magnitudes), magnitudes))
	return dst
}

// Bands is the output length of Project.
func (m *MelProjector) Bands() int { return m.params.Bands }

// Params returns the parameters the projector was built with.
func (m *MelProjector) Params() MelParams { return m.params }

// Centers returns the band center frequencies in Hz.
func (m *MelProjector) Centers() []float64 { return m.centers }

// Axis returns the evenly spaced display axis between the frequency bounds.
func (m *MelProjector) Axis() []float64 { return m.axis }

// Weights exposes the weight matrix read-only.
func (m *MelProjector) Weights() mat.Matrix { return m.weights }
