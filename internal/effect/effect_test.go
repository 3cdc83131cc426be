// SPDX-License-Identifier: MIT
package effect

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"ledviz/internal/dsp"
	"ledviz/internal/gradient"
	"ledviz/internal/pixel"
)

type harness struct {
	ctx   *Context
	set   *Set
	store *Store
}

func newHarness(t *testing.T, pixels, bands int) *harness {
	t.Helper()
	p := Params{Pixels: pixels, Bands: bands}
	grads, err := gradient.NewStore(gradient.DefaultPalette(), gradient.DefaultGradients(), pixels)
	if err != nil {
		t.Fatalf("gradient.NewStore: %v", err)
	}
	set := NewSet()
	store := NewStore(set, p, gradient.DefaultPalette(), grads.Names())
	return &harness{
		set:   set,
		store: store,
		ctx: &Context{
			Params:    p,
			Now:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
			Elapsed:   16 * time.Millisecond,
			Rand:      rand.New(rand.NewSource(1)),
			Filters:   dsp.NewFilterBank(bands, pixels),
			Gradients: grads,
			Palette:   gradient.DefaultPalette(),
			Prev:      pixel.New(pixels),
			Effects:   set,
		},
	}
}

func (h *harness) render(t *testing.T, name string, mel []float64) pixel.Buffer {
	t.Helper()
	e, ok := h.set.Get(name)
	if !ok {
		t.Fatalf("effect %s not registered", name)
	}
	h.ctx.Options = h.store.Snapshot()
	out := e.Visualize(h.ctx, mel)
	h.ctx.Prev = out
	h.ctx.Now = h.ctx.Now.Add(h.ctx.Elapsed)
	return out
}

func (h *harness) set1(t *testing.T, effect, key string, v any) {
	t.Helper()
	if err := h.store.Set(effect, key, v); err != nil {
		t.Fatalf("Set(%s.%s=%v): %v", effect, key, v, err)
	}
}

func checkFinite(t *testing.T, name string, b pixel.Buffer, n int) {
	t.Helper()
	if b.Len() != n {
		t.Fatalf("%s: %d pixels, want %d", name, b.Len(), n)
	}
	for ch := range b {
		if len(b[ch]) != n {
			t.Fatalf("%s: channel %d has %d pixels", name, ch, len(b[ch]))
		}
		for i, v := range b[ch] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("%s: [%d][%d] = %v", name, ch, i, v)
			}
		}
	}
}

func TestEnergySilenceIsBlack(t *testing.T) {
	h := newHarness(t, 150, 24)
	out := h.render(t, Energy, make([]float64, 24))
	checkFinite(t, Energy, out, 150)
	for ch := range out {
		for i, v := range out[ch] {
			if v != 0 {
				t.Fatalf("[%d][%d] = %v, want 0", ch, i, v)
			}
		}
	}
}

func TestEnergyLoudLowsLightRed(t *testing.T) {
	h := newHarness(t, 150, 24)
	mel := make([]float64, 24)
	for i := 0; i < 8; i++ {
		mel[i] = 1
	}
	var out pixel.Buffer
	for i := 0; i < 5; i++ {
		out = h.render(t, Energy, mel)
	}
	red, blue := 0.0, 0.0
	for i := range out[0] {
		red += out[0][i]
		blue += out[2][i]
	}
	if red <= blue {
		t.Errorf("red energy %v not above blue %v for a bass-heavy spectrum", red, blue)
	}
}

func TestEveryEffectRenders(t *testing.T) {
	const pixels, bands = 60, 24
	rng := rand.New(rand.NewSource(3))
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, pixels, bands)
			for frame := 0; frame < 5; frame++ {
				mel := make([]float64, bands)
				for i := range mel {
					mel[i] = rng.Float64() * 2
				}
				h.ctx.Flags.Beat = frame%2 == 0
				h.ctx.Flags.High = frame == 1
				checkFinite(t, name, h.render(t, name, mel), pixels)
			}
		})
	}
}

func TestWaveFlashAndWipe(t *testing.T) {
	const n = 60
	h := newHarness(t, n, 24)
	grad := gradientSlice(h.ctx.Gradient("Spectral"), 0, n)

	h.ctx.Flags.Beat = true
	flash := h.render(t, Wave, nil)
	for i := 0; i < n; i++ {
		if flash[0][i] != grad[2][i]/2 || flash[2][i] != grad[0][i]/2 {
			t.Fatalf("flash pixel %d = (%v,%v,%v)", i, flash[0][i], flash[1][i], flash[2][i])
		}
	}

	h.ctx.Flags.Beat = false
	out := h.render(t, Wave, nil)
	for _, i := range []int{1, 3, 6} {
		for ch := range out {
			if out[ch][i] != grad[ch][i] {
				t.Errorf("wipe[%d][%d] = %v, want %v", ch, i, out[ch][i], grad[ch][i])
			}
			if out[ch][n-i] != grad[ch][i] {
				t.Errorf("mirrored wipe[%d][%d] = %v, want %v", ch, n-i, out[ch][n-i], grad[ch][i])
			}
		}
	}
	if want := flash[1][30] * 0.9; math.Abs(out[1][30]-want) > 1e-9 {
		t.Errorf("middle pixel = %v, want decayed %v", out[1][30], want)
	}
	if out[0][7] != flash[0][7]*0.9 {
		t.Errorf("pixel past the wipe was painted")
	}
}

func TestPowerSparksThinOut(t *testing.T) {
	h := newHarness(t, 60, 24)
	e, _ := h.set.Get(Power)
	power := e.(*powerEffect)
	mel := make([]float64, 24)

	h.ctx.Flags.High = true
	var got []int
	for i := 0; i < 4; i++ {
		h.render(t, Power, mel)
		h.ctx.Flags.High = false
		got = append(got, power.Sparks())
	}
	want := []int{8, 6, 5, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("spark counts = %v, want %v", got, want)
		}
	}
}

func TestStarsLifecycle(t *testing.T) {
	h := newHarness(t, 100, 24)
	h.set1(t, Stars, "star_rate", 1.0)
	e, _ := h.set.Get(Stars)
	stars := e.(*starsEffect)

	h.render(t, Stars, nil)
	if stars.Live() != 1 {
		t.Fatalf("live stars = %d after one frame, want 1", stars.Live())
	}

	// 0.0006 * 16ms per frame: a star lives about 105 frames.
	for i := 0; i < 400; i++ {
		out := h.render(t, Stars, nil)
		for ch := range out {
			for _, v := range out[ch] {
				if v < 0 || v > 255 {
					t.Fatalf("star brightness %v out of range", v)
				}
			}
		}
	}
	if stars.Live() > 105 {
		t.Errorf("%d stars alive; expired stars are not culled", stars.Live())
	}
}

func TestAutoSwitchesOnBeatAfterTimer(t *testing.T) {
	h := newHarness(t, 60, 24)
	h.set1(t, Auto, "timer", 100)
	e, _ := h.set.Get(Auto)
	auto := e.(*autoEffect)
	mel := make([]float64, 24)

	first := auto.Showing(h.set)
	if first != Energy {
		t.Fatalf("Auto starts with %s, want %s", first, Energy)
	}
	h.ctx.Flags.Beat = true
	h.render(t, Auto, mel)
	if auto.Showing(h.set) != first {
		t.Fatal("Auto switched before the timer elapsed")
	}

	h.ctx.Flags.Beat = false
	for i := 0; i < 100; i++ {
		h.render(t, Auto, mel)
	}
	h.ctx.Flags.Beat = true
	h.render(t, Auto, mel)
	if got := auto.Showing(h.set); got != Spectrum {
		t.Errorf("Auto shows %s after a beat past the timer, want %s", got, Spectrum)
	}
}

func TestMultipleMasks(t *testing.T) {
	h := newHarness(t, 10, 24)
	h.set1(t, Single, "color", "White")
	h.set1(t, Calibration, "r", 51)
	h.set1(t, Calibration, "g", 51)
	h.set1(t, Calibration, "b", 51)
	h.set1(t, Multiple, "a", Single)
	h.set1(t, Multiple, "b", Calibration)

	out := h.render(t, Multiple, nil)
	for i := range out[0] {
		if math.Abs(out[0][i]-51) > 1e-9 {
			t.Fatalf("masked pixel %d = %v, want 51", i, out[0][i])
		}
	}
}

func TestSleepRamp(t *testing.T) {
	h := newHarness(t, 4, 24)
	h.ctx.Now = time.Date(2026, 3, 1, 6, 24, 0, 0, time.UTC)
	if got := h.render(t, Sleep, nil)[0][0]; math.Abs(got-75) > 1e-9 {
		t.Errorf("15 minutes into a 30 minute fade = %v, want 75", got)
	}
	h.ctx.Now = time.Date(2026, 3, 1, 5, 0, 0, 0, time.UTC)
	if got := h.render(t, Sleep, nil)[0][0]; got != 0 {
		t.Errorf("before start = %v, want 0", got)
	}
}

func TestFireHoldsFrameWithinDelay(t *testing.T) {
	h := newHarness(t, 30, 24)
	h.ctx.Elapsed = 10 * time.Millisecond
	a := h.render(t, Fire, nil)
	b := h.render(t, Fire, nil)
	for ch := range a {
		for i := range a[ch] {
			if a[ch][i] != b[ch][i] {
				t.Fatalf("frame redrawn inside the delay window")
			}
			if a[ch][i] < 0 || a[ch][i] > 255 {
				t.Fatalf("fire value %v out of range", a[ch][i])
			}
		}
	}
}

func TestGradientRollsSharedTable(t *testing.T) {
	h := newHarness(t, 20, 24)
	h.set1(t, Gradient, "roll_speed", 2)
	tbl := h.ctx.Gradient("Spectral")
	before := tbl.At(0)
	h.render(t, Gradient, nil)
	if tbl.At(2) != before {
		t.Error("Gradient did not roll the table by roll_speed")
	}
}

func TestSplitSizes(t *testing.T) {
	got := splitSizes(10, 4)
	want := []int{3, 3, 2, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitSizes(10, 4) = %v, want %v", got, want)
		}
	}
}
