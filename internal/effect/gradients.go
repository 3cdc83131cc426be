// SPDX-License-Identifier: MIT
package effect

import (
	"math"
	"time"

	"ledviz/internal/pixel"
)

// fadeEffect fills the strip with the first gradient color and rolls the
// gradient so the whole strip cycles through it.
type fadeEffect struct{}

func (*fadeEffect) Name() string   { return Fade }
func (*fadeEffect) Reactive() bool { return false }

func (*fadeEffect) Schema(p Params) Schema {
	return Schema{
		gradientOpt("Spectral"),
		intOpt("roll_speed", "Fade Speed", 0, 8, 1),
		boolOpt("reverse", "Reverse", false),
	}
}

func (*fadeEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Fade)
	t := ctx.Gradient(o.String("color_mode"))
	c := t.At(0)
	out := pixel.New(ctx.Pixels).Fill(float64(c[0]), float64(c[1]), float64(c[2]))
	t.Roll(o.Int("roll_speed") * direction(o.Bool("reverse")))
	return out
}

// gradientEffect shows the left half of a gradient table and rolls it. Mood
// is the paced variant: it rolls once per delay instead of every frame.
type gradientEffect struct {
	name        string
	rollDefault int
	paced       bool

	rolled time.Time
}

func (e *gradientEffect) Name() string { return e.name }
func (*gradientEffect) Reactive() bool { return false }

func (e *gradientEffect) Schema(p Params) Schema {
	s := Schema{
		gradientOpt("Spectral"),
		intOpt("roll_speed", "Roll Speed", 0, 8, e.rollDefault),
		boolOpt("mirror", "Mirror", false),
		boolOpt("reverse", "Reverse", false),
	}
	if e.paced {
		s = append(s, floatOpt("delay", "Roll delay", 0, 2, 0.05, 0.1))
	}
	return s
}

func (e *gradientEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(e.name)
	t := ctx.Gradient(o.String("color_mode"))
	out := gradientSlice(t, 0, ctx.Pixels)

	delay := time.Duration(o.Float("delay") * float64(time.Second))
	if !e.paced || ctx.Now.Sub(e.rolled) >= delay {
		t.Roll(o.Int("roll_speed") * direction(o.Bool("reverse")))
		e.rolled = ctx.Now
	}
	return finish(out, false, o.Bool("mirror"))
}

// runnerEffect moves a sine wave through the gradient.
type runnerEffect struct {
	position int
}

func (*runnerEffect) Name() string   { return Runner }
func (*runnerEffect) Reactive() bool { return false }

func (*runnerEffect) Schema(p Params) Schema {
	return Schema{
		floatOpt("times", "Wave length", 0.05, 1, 0.05, 0.15),
		floatOpt("divide", "Speed", 1, 15, 0.1, 4.7),
		floatOpt("add", "Offset", 0, 2, 0.1, 0.1),
		floatOpt("blur", "Blur", 0, 5, 1, 0),
		gradientOpt("Spectral"),
	}
}

func (e *runnerEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Runner)
	grad := gradientSlice(ctx.Gradient(o.String("color_mode")), 0, ctx.Pixels)
	times, divide, add := o.Float("times"), o.Float("divide"), o.Float("add")

	out := pixel.New(ctx.Pixels)
	for i := 0; i < ctx.Pixels; i++ {
		v := (math.Sin(float64(i)*times+float64(e.position)/divide) + add) * 255
		for ch := range out {
			out[ch][i] = v * grad[ch][i] / 255
		}
	}
	if blur := o.Float("blur"); blur > 0 {
		out = out.Blur(blur)
	}
	e.position++
	return out
}

// runnerReactiveEffect modulates the runner wave by the Wavelength output.
type runnerReactiveEffect struct {
	position int
}

func (*runnerReactiveEffect) Name() string   { return RunnerReactive }
func (*runnerReactiveEffect) Reactive() bool { return true }

func (*runnerReactiveEffect) Schema(p Params) Schema {
	return Schema{
		floatOpt("times", "Trail Size", 0, 1, 0.005, 0.9),
		floatOpt("divide", "Speed", 5, 50, 1, 18),
		floatOpt("add", "Offset", 0, 1, 0.001, 0.8),
		floatOpt("blur", "Blur", 0, 5, 1, 1),
		gradientOpt("Fruity"),
	}
}

func (e *runnerReactiveEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(RunnerReactive)
	grad := gradientSlice(ctx.Gradient(o.String("color_mode")), 0, ctx.Pixels)
	times, divide, add := o.Float("times"), o.Float("divide"), o.Float("add")

	out := pixel.New(ctx.Pixels)
	for i := 0; i < ctx.Pixels; i++ {
		v := (math.Sin(float64(i)*times+float64(e.position)/divide) + add) * math.Cos(float64(i))
		for ch := range out {
			out[ch][i] = v * grad[ch][i]
		}
	}

	if wl, ok := ctx.Effects.Get(Wavelength); ok {
		w := wl.Visualize(ctx, mel)
		for i := 0; i < ctx.Pixels && i < w.Len(); i++ {
			m := (w[0][i] + w[1][i] + w[1][i]) / 3 / 10
			for ch := range out {
				out[ch][i] *= m
			}
		}
	}

	if blur := o.Float("blur"); blur > 0 {
		out = out.Blur(blur)
	}
	e.position++
	return out
}
