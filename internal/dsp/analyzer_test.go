// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"sync"
	"testing"

	"gonum.org/v1/gonum/floats"

	"ledviz/pkg/utils"
)

func testAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SampleRate:     48000,
		FPS:            60,
		RollingHistory: 2,
		Bands:          24,
		MinFrequency:   200,
		MaxFrequency:   12000,
		Window:         Hamming,
	}
}

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(testAnalyzerConfig())
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a
}

func TestAnalyzerSilence(t *testing.T) {
	a := newTestAnalyzer(t)
	silence := utils.GenerateSilence(a.SamplesPerFrame())

	var f Frame
	for i := 0; i < 10; i++ {
		f = a.Update(silence)
	}
	if f.Volume != 0 {
		t.Errorf("volume = %v, want 0", f.Volume)
	}
	for name, vec := range map[string][]float64{"mel": f.Mel, "energy": f.Energy, "y": f.Y} {
		if len(vec) != 24 {
			t.Errorf("%s has %d bands, want 24", name, len(vec))
		}
		for i, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				t.Fatalf("%s[%d] = %v", name, i, v)
			}
		}
	}
}

func TestAnalyzerVolume(t *testing.T) {
	a := newTestAnalyzer(t)
	tone := utils.GenerateSineWave(a.SamplesPerFrame(), 48000, 1000, 0.5)
	f := a.Update(tone)
	if math.Abs(f.Volume-0.5) > 0.01 {
		t.Errorf("volume = %v, want ~0.5", f.Volume)
	}
}

func TestAnalyzerTonePlacement(t *testing.T) {
	peakBand := func(freq float64) int {
		a := newTestAnalyzer(t)
		spf := a.SamplesPerFrame()
		tone := utils.GenerateSineWave(spf*4, 48000, freq, 0.5)
		var f Frame
		for i := 0; i < 4; i++ {
			f = a.Update(tone[i*spf : (i+1)*spf])
		}
		return floats.MaxIdx(f.Energy)
	}

	low, high := peakBand(400), peakBand(4000)
	if low >= high {
		t.Errorf("400 Hz peaks at band %d, 4 kHz at band %d; expected low < high", low, high)
	}
}

func TestAnalyzerShortBlockIsPadded(t *testing.T) {
	a := newTestAnalyzer(t)
	f := a.Update([]int16{32767})
	if math.Abs(f.Volume-32767.0/32768.0) > 1e-9 {
		t.Errorf("volume = %v", f.Volume)
	}
}

func TestAnalyzerInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalyzerConfig)
	}{
		{"zero fps", func(c *AnalyzerConfig) { c.FPS = 0 }},
		{"zero rate", func(c *AnalyzerConfig) { c.SampleRate = 0 }},
		{"no history", func(c *AnalyzerConfig) { c.RollingHistory = 0 }},
		{"no bands", func(c *AnalyzerConfig) { c.Bands = 0 }},
		{"bad range", func(c *AnalyzerConfig) { c.MinFrequency = 20000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAnalyzerConfig()
			tt.mutate(&cfg)
			if _, err := NewAnalyzer(cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSetFrequencyRangeRejectsAndKeepsBank(t *testing.T) {
	a := newTestAnalyzer(t)
	before := a.Projector()
	if err := a.SetFrequencyRange(5000, 100); err == nil {
		t.Fatal("expected an error for an inverted range")
	}
	if a.Projector() != before {
		t.Error("a rejected range replaced the mel bank")
	}

	if err := a.SetFrequencyRange(100, 8000); err != nil {
		t.Fatal(err)
	}
	if got := a.Projector().Params().MaxHz; got != 8000 {
		t.Errorf("max = %v after rebuild, want 8000", got)
	}
}

func TestSetFrequencyRangeConcurrentWithUpdate(t *testing.T) {
	a := newTestAnalyzer(t)
	tone := utils.GenerateComplexWave(a.SamplesPerFrame(), 48000)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = a.SetFrequencyRange(float64(100+i), 12000)
		}
	}()
	for i := 0; i < 50; i++ {
		f := a.Update(tone)
		if len(f.Mel) != 24 {
			t.Fatalf("mel length %d", len(f.Mel))
		}
	}
	wg.Wait()
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"", Hamming, false},
		{"Hamming", Hamming, false},
		{"hanning", Hann, false},
		{"BLACKMAN", Blackman, false},
		{"none", Rectangular, false},
		{"kaiser", Hamming, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) = (%v, %v)", tt.in, got, err)
		}
	}
}

func TestHammingCoefficients(t *testing.T) {
	w := windowCoefficients(5, Hamming)
	want := []float64{0.08, 0.54, 1, 0.54, 0.08}
	for i := range want {
		if math.Abs(w[i]-want[i]) > 0.01 {
			t.Errorf("w[%d] = %v, want %v", i, w[i], want[i])
		}
	}
}

func TestFilterBankSizes(t *testing.T) {
	b := NewFilterBank(24, 151)
	if b.Gain.Len() != 24 {
		t.Errorf("gain len %d", b.Gain.Len())
	}
	for name, f := range map[string]*ExpFilter{"r": b.R, "g": b.G, "b": b.B, "common": b.CommonMode} {
		if f.Len() != 75 {
			t.Errorf("%s len %d, want 75", name, f.Len())
		}
	}
	if len(b.PrevSpectrum) != 75 || b.Pixels() != 151 || b.Bands() != 24 {
		t.Errorf("unexpected sizing: prev=%d pixels=%d bands=%d", len(b.PrevSpectrum), b.Pixels(), b.Bands())
	}
}
