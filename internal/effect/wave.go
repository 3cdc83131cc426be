// SPDX-License-Identifier: MIT
package effect

import "ledviz/internal/pixel"

// waveEffect flashes the whole strip on a beat and then wipes the gradient
// in from both ends while the flash decays.
type waveEffect struct {
	wipe int
}

func (*waveEffect) Name() string   { return Wave }
func (*waveEffect) Reactive() bool { return true }

func (*waveEffect) Schema(p Params) Schema {
	return Schema{
		gradientOpt("Spectral"),
		intOpt("wipe_len", "Wave Start Length", 0, max(0, p.Pixels/4), 7),
		intOpt("wipe_speed", "Wave Speed", 1, 10, 1),
		floatOpt("decay", "Flash Decay", 0.1, 1, 0.05, 0.9),
	}
}

func (e *waveEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Wave)
	n := ctx.Pixels
	grad := gradientSlice(ctx.Gradient(o.String("color_mode")), 0, n)

	out := pixel.New(n)
	if ctx.Flags.Beat {
		// Channels are swapped for the flash so it contrasts with the wipe.
		for i := 0; i < n; i++ {
			out.Set(i, grad[2][i]/2, grad[1][i]/2, grad[0][i]/2)
		}
		e.wipe = o.Int("wipe_len")
		return out
	}

	out.CopyFrom(ctx.Prev)
	out.Scale(o.Float("decay"))
	for i := 0; i < e.wipe && i < n; i++ {
		for ch := range out {
			out[ch][i] = grad[ch][i]
			out[ch][(n-i)%n] = grad[ch][i]
		}
	}
	if e.wipe > n/2 {
		e.wipe = n / 2
	}
	e.wipe += o.Int("wipe_speed")
	return out
}

// beatEffect flashes a solid color on each beat and decays between beats.
type beatEffect struct{}

func (*beatEffect) Name() string   { return Beat }
func (*beatEffect) Reactive() bool { return true }

func (*beatEffect) Schema(p Params) Schema {
	return Schema{
		colorOpt("color", "Color", "Red"),
		floatOpt("decay", "Flash Decay", 0.3, 0.98, 0.005, 0.7),
	}
}

func (*beatEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Beat)
	out := pixel.New(ctx.Pixels)
	if ctx.Flags.Beat {
		c := ctx.Color(o.String("color"))
		return out.Fill(float64(c[0]), float64(c[1]), float64(c[2]))
	}
	out.CopyFrom(ctx.Prev)
	return out.Scale(o.Float("decay"))
}
