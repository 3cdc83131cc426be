// SPDX-License-Identifier: MIT
package effect

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"ledviz/internal/pixel"
)

// Gains below this are treated as silence.
const gainFloor = 1e-9

// channelSplit runs the shared front end of the spectrum effects: resample to
// half the strip, update the common mode tracker and previous spectrum, and
// return the half spectrum y, the common-mode-free red channel and the frame
// difference.
func channelSplit(ctx *Context, mel []float64) (y, r, diff []float64) {
	f := ctx.Filters
	y = ctx.halfSpectrum(mel)
	common := f.CommonMode.Update(y)

	diff = make([]float64, len(y))
	floats.SubTo(diff, y, f.PrevSpectrum)
	copy(f.PrevSpectrum, y)

	lowPass := make([]float64, len(y))
	floats.SubTo(lowPass, y, common)
	r = append([]float64(nil), f.R.Update(lowPass)...)
	return y, r, diff
}

// energyEffect maps low, mid and high energy to red, green and blue bars
// growing from the start of the strip.
type energyEffect struct{}

func (*energyEffect) Name() string   { return Energy }
func (*energyEffect) Reactive() bool { return true }

func (*energyEffect) Schema(p Params) Schema {
	return Schema{
		floatOpt("blur", "Blur", 0.1, 4, 0.1, 1),
		floatOpt("scale", "Scale", 0.4, 1, 0.05, 0.9),
		floatOpt("r_multiplier", "Red", 0.05, 1, 0.05, 1),
		boolOpt("mirror", "Mirror", true),
		floatOpt("g_multiplier", "Green", 0.05, 1, 0.05, 1),
		floatOpt("b_multiplier", "Blue", 0.05, 1, 0.05, 1),
	}
}

func (*energyEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(Energy)
	scale := o.Float("scale")

	y := append([]float64(nil), mel...)
	gain := ctx.Filters.Gain.Update(y)
	width := float64(ctx.Pixels)*scale - 1
	for i := range y {
		y[i] = math.Max(0, y[i]/math.Max(gain[i], gainFloor)*width)
	}
	y = ctx.halfSpectrum(y)
	copy(ctx.Filters.PrevSpectrum, y)

	spectrum := doubled(y)
	for i, v := range spectrum {
		spectrum[i] = math.Pow(v, scale)
	}
	third := len(spectrum) / 3
	lengths := [3]int{
		barLength(spectrum[:third], o.Float("r_multiplier"), ctx.Pixels),
		barLength(spectrum[third:2*third], o.Float("g_multiplier"), ctx.Pixels),
		barLength(spectrum[2*third:], o.Float("b_multiplier"), ctx.Pixels),
	}

	out := pixel.New(ctx.Pixels)
	for ch, n := range lengths {
		for i := 0; i < n; i++ {
			out[ch][i] = 255
		}
	}
	out = out.Blur(o.Float("blur"))
	return finish(out, false, o.Bool("mirror"))
}

func barLength(x []float64, mult float64, limit int) int {
	if len(x) == 0 {
		return 0
	}
	n := int(stat.Mean(x, nil) * mult)
	return max(0, min(limit, n))
}

// spectrumEffect colors the mirrored spectrum with the active gradient.
type spectrumEffect struct{}

func (*spectrumEffect) Name() string   { return Spectrum }
func (*spectrumEffect) Reactive() bool { return true }

func (*spectrumEffect) Schema(p Params) Schema {
	return Schema{
		gradientOpt("Spectral"),
		floatOpt("blur", "Blur", 0.1, 4, 0.1, 1),
	}
}

func (*spectrumEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(Spectrum)
	y, r, diff := channelSplit(ctx, mel)
	g := make([]float64, len(diff))
	for i, d := range diff {
		g[i] = math.Abs(d)
	}
	b := ctx.Filters.B.Update(y)

	grad := gradientSlice(ctx.Gradient(o.String("color_mode")), 0, ctx.Pixels)
	out := pixel.New(ctx.Pixels)
	for ch, half := range [][]float64{r, g, b} {
		mirrored := pixel.MirrorHalf(half)
		for i := 0; i < ctx.Pixels && i < len(mirrored); i++ {
			out[ch][i] = mirrored[i] * grad[ch][i]
		}
	}
	out = out.Blur(o.Float("blur") * 2)
	for ch := range out {
		for i, v := range out[ch] {
			out[ch][i] = math.Min(255, v*2)
		}
	}
	return out
}

// wavelengthEffect scales a gradient slice by the smoothed spectrum.
type wavelengthEffect struct{}

func (*wavelengthEffect) Name() string   { return Wavelength }
func (*wavelengthEffect) Reactive() bool { return true }

func (*wavelengthEffect) Schema(p Params) Schema {
	return Schema{
		gradientOpt("Spectral"),
		intOpt("roll_speed", "Roll Speed", 0, 8, 0),
		floatOpt("blur", "Blur", 0.1, 4, 0.1, 1),
		boolOpt("mirror", "Mirror", false),
		boolOpt("reverse_grad", "Reverse Gradient", false),
		boolOpt("reverse_roll", "Reverse Roll", false),
		boolOpt("flip_lr", "Flip LR", false),
	}
}

func (*wavelengthEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(Wavelength)
	y, r, _ := channelSplit(ctx, mel)
	ctx.Filters.B.Update(y)
	r = doubled(r)

	t := ctx.Gradient(o.String("color_mode"))
	from := 0
	if o.Bool("reverse_grad") {
		from = ctx.Pixels
	}
	out := gradientSlice(t, from, ctx.Pixels)
	for ch := range out {
		for i := range out[ch] {
			if i < len(r) {
				out[ch][i] *= r[i]
			} else {
				out[ch][i] = 0
			}
		}
	}
	t.Roll(o.Int("roll_speed") * direction(o.Bool("reverse_roll")))

	out = out.Blur(o.Float("blur"))
	return finish(out, o.Bool("flip_lr"), o.Bool("mirror"))
}

// barsEffect splits the strip into resolution blocks colored from evenly
// spaced gradient points, each scaled by its loudest band.
type barsEffect struct{}

func (*barsEffect) Name() string   { return Bars }
func (*barsEffect) Reactive() bool { return true }

func (*barsEffect) Schema(p Params) Schema {
	return Schema{
		gradientOpt("Spectral"),
		intOpt("resolution", "Resolution", 1, max(1, p.Bands), 4),
		intOpt("roll_speed", "Roll Speed", 0, 8, 0),
		boolOpt("flip_lr", "Flip LR", false),
		boolOpt("mirror", "Mirror", false),
		boolOpt("reverse_roll", "Reverse Roll", false),
	}
}

func (*barsEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(Bars)
	_, r, _ := channelSplit(ctx, mel)
	r = doubled(r)
	res := max(1, o.Int("resolution"))
	t := ctx.Gradient(o.String("color_mode"))

	values := splitSizes(len(r), res)
	blocks := splitSizes(ctx.Pixels, res)
	out := pixel.New(ctx.Pixels)
	src, dst := 0, 0
	for i := 0; i < res; i++ {
		level := math.Max(0, math.Min(1, maxOf(r[src:src+values[i]])))
		src += values[i]

		c := t.At(min(t.Len()-1, i*(ctx.Pixels/res)))
		for j := dst; j < dst+blocks[i]; j++ {
			out.Set(j, float64(c[0])*level, float64(c[1])*level, float64(c[2])*level)
		}
		dst += blocks[i]
	}
	t.Roll(o.Int("roll_speed") * direction(o.Bool("reverse_roll")))
	return finish(out, o.Bool("flip_lr"), o.Bool("mirror"))
}

// splitSizes divides n items into parts nearly equal chunks, larger chunks
// first.
func splitSizes(n, parts int) []int {
	sizes := make([]int, parts)
	base, extra := n/parts, n%parts
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

// scrollEffect pushes a color mixed from low, mid and high energy in at the
// start of the strip and scrolls it outward while it decays.
type scrollEffect struct {
	trail pixel.Buffer
}

func (*scrollEffect) Name() string   { return Scroll }
func (*scrollEffect) Reactive() bool { return true }

func (*scrollEffect) Schema(p Params) Schema {
	return Schema{
		colorOpt("lows_color", "Lows Color", "Red"),
		colorOpt("mids_color", "Mids Color", "Green"),
		colorOpt("high_color", "Highs Color", "Blue"),
		floatOpt("blur", "Blur", 0.05, 4, 0.05, 0.2),
		boolOpt("mirror", "Mirror", true),
		floatOpt("decay", "Decay", 0.97, 1, 0.0005, 0.995),
		intOpt("speed", "Speed", 1, 5, 1),
	}
}

func (e *scrollEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(Scroll)
	if e.trail.Len() != ctx.Pixels {
		e.trail = pixel.New(ctx.Pixels)
	}

	y := make([]float64, len(mel))
	for i, v := range mel {
		y[i] = math.Pow(v, 4)
	}
	y = ctx.halfSpectrum(y)
	ctx.Filters.CommonMode.Update(y)
	copy(ctx.Filters.PrevSpectrum, y)
	for i, v := range y {
		y[i] = math.Max(0, math.Min(1, v))
	}

	n := len(y)
	peaks := [3]float64{
		maxOf(y[:n/6]),
		maxOf(y[n/6 : 2*n/5]),
		maxOf(y[2*n/5:]),
	}
	var mix [3]float64
	for band, key := range []string{"lows_color", "mids_color", "high_color"} {
		c := ctx.Color(o.String(key))
		for ch := range mix {
			mix[ch] += math.Trunc(float64(c[ch]) * peaks[band])
		}
	}

	speed := min(o.Int("speed"), ctx.Pixels)
	for ch := range e.trail {
		row := e.trail[ch]
		copy(row[speed:], row[:len(row)-speed])
	}
	e.trail.Scale(o.Float("decay")).Truncate()
	e.trail = e.trail.Blur(o.Float("blur"))
	for ch := range e.trail {
		for i := 0; i < speed; i++ {
			e.trail[ch][i] = mix[ch]
		}
	}

	return finish(e.trail.Clone(), false, o.Bool("mirror"))
}
