// SPDX-License-Identifier: MIT
package effect

import (
	"math"
	"time"

	"ledviz/internal/pixel"
)

type offEffect struct{}

func (*offEffect) Name() string           { return Off }
func (*offEffect) Reactive() bool         { return false }
func (*offEffect) Schema(p Params) Schema { return nil }

func (*offEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	return pixel.New(ctx.Pixels)
}

type singleEffect struct{}

func (*singleEffect) Name() string   { return Single }
func (*singleEffect) Reactive() bool { return false }

func (*singleEffect) Schema(p Params) Schema {
	return Schema{colorOpt("color", "Color", "Purple")}
}

func (*singleEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	c := ctx.Color(ctx.Opts(Single).String("color"))
	return pixel.New(ctx.Pixels).Fill(float64(c[0]), float64(c[1]), float64(c[2]))
}

type calibrationEffect struct{}

func (*calibrationEffect) Name() string   { return Calibration }
func (*calibrationEffect) Reactive() bool { return false }

func (*calibrationEffect) Schema(p Params) Schema {
	return Schema{
		intOpt("r", "Red value", 0, 255, 100),
		intOpt("g", "Green value", 0, 255, 100),
		intOpt("b", "Blue value", 0, 255, 100),
	}
}

func (*calibrationEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Calibration)
	return pixel.New(ctx.Pixels).Fill(o.Float("r"), o.Float("g"), o.Float("b"))
}

// sleepEffect ramps white up from 0 to 150 over minutes_fade minutes
// starting at hour:minute local time each day.
type sleepEffect struct{}

const sleepPeak = 150

func (*sleepEffect) Name() string   { return Sleep }
func (*sleepEffect) Reactive() bool { return false }

func (*sleepEffect) Schema(p Params) Schema {
	return Schema{
		intOpt("hour", "Hour to start fade", 0, 23, 6),
		intOpt("minute", "Minute to start fade", 0, 59, 9),
		intOpt("minutes_fade", "How long to fade for", 0, 60, 30),
	}
}

func (*sleepEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Sleep)
	now := ctx.Now
	start := time.Date(now.Year(), now.Month(), now.Day(), o.Int("hour"), o.Int("minute"), 0, 0, now.Location())
	active := time.Duration(o.Int("minutes_fade")) * time.Minute

	level := 0.0
	if after := now.Sub(start); after > 0 && active > 0 && after <= active {
		level = sleepPeak * after.Seconds() / active.Seconds()
	}
	return pixel.New(ctx.Pixels).Fill(level, level, level)
}

// fireEffect flickers an orange base color, redrawing at most once per delay.
type fireEffect struct {
	last  pixel.Buffer
	drawn time.Time
}

var fireBase = [3]float64{255, 96, 12}

func (*fireEffect) Name() string   { return Fire }
func (*fireEffect) Reactive() bool { return false }

func (*fireEffect) Schema(p Params) Schema {
	return Schema{
		floatOpt("delay", "Flicker delay", 0, 1, 0.01, 0.04),
		floatOpt("blur", "Blur", 0.1, 4, 0.1, 1),
	}
}

func (e *fireEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Fire)
	delay := time.Duration(o.Float("delay") * float64(time.Second))
	if e.last.Len() == ctx.Pixels && ctx.Now.Sub(e.drawn) < delay {
		return e.last.Clone()
	}

	out := pixel.New(ctx.Pixels)
	for i := 0; i < ctx.Pixels; i++ {
		flicker := float64(ctx.Rand.Intn(60) + 40)
		for ch := range out {
			out[ch][i] = math.Max(0, math.Min(255, fireBase[ch]-flicker))
		}
	}
	out = out.Blur(o.Float("blur") * 8)

	e.last = out
	e.drawn = ctx.Now
	return out.Clone()
}
