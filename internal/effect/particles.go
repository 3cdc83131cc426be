// SPDX-License-Identifier: MIT
package effect

import (
	"math"
	"time"

	"ledviz/internal/pixel"
)

// starsEffect twinkles white stars that are born at random pixels, brighten,
// then fade out as they age.
type starsEffect struct {
	ages map[int]float64 // pixel -> age in [0,1)
}

const defaultFrameTime = time.Second / 60

func (*starsEffect) Name() string   { return Stars }
func (*starsEffect) Reactive() bool { return false }

func (*starsEffect) Schema(p Params) Schema {
	return Schema{
		floatOpt("star_rate", "Birth rate", 0, 1, 0.01, 0.29),
		floatOpt("star_decay", "Twinkle rise", 1, 20, 0.5, 9),
		floatOpt("star_speed", "Twinkle speed", 0.0001, 0.01, 0.0001, 0.0006),
	}
}

func (e *starsEffect) Visualize(ctx *Context, _ []float64) pixel.Buffer {
	o := ctx.Opts(Stars)
	if e.ages == nil {
		e.ages = make(map[int]float64)
	}
	for idx := range e.ages {
		if idx >= ctx.Pixels {
			delete(e.ages, idx)
		}
	}

	if ctx.Pixels > 0 && ctx.Rand.Float64() < o.Float("star_rate") {
		idx := ctx.Rand.Intn(ctx.Pixels)
		if _, live := e.ages[idx]; !live {
			e.ages[idx] = 0
		}
	}

	dt := ctx.Elapsed
	if dt <= 0 {
		dt = defaultFrameTime
	}
	step := o.Float("star_speed") * float64(dt.Milliseconds())
	rise := o.Float("star_decay")

	out := pixel.New(ctx.Pixels)
	for idx, age := range e.ages {
		age += step
		if age >= 1 {
			delete(e.ages, idx)
			continue
		}
		e.ages[idx] = age
		level := 255 * math.Min(1, age*rise) * (1 - age)
		out.Set(idx, level, level, level)
	}
	return out
}

// Live returns the number of stars currently on the strip.
func (e *starsEffect) Live() int { return len(e.ages) }

// powerEffect draws the gradient scaled by the spectrum, a bass bar whose
// length follows the low bands, and white sparks thrown on every high onset.
type powerEffect struct {
	sparks     []int
	brightness float64
}

func (*powerEffect) Name() string   { return Power }
func (*powerEffect) Reactive() bool { return true }

func (*powerEffect) Schema(p Params) Schema {
	return Schema{
		gradientOpt("Spectral"),
		colorOpt("s_color", "Spark Color", "White"),
		intOpt("s_count", "Spark Amount", 0, max(0, p.Pixels/6), p.Pixels/6),
		boolOpt("mirror", "Mirror", true),
		boolOpt("flip_lr", "Flip LR", false),
	}
}

func (e *powerEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(Power)
	n := ctx.Pixels
	y, r, _ := channelSplit(ctx, mel)
	r = doubled(r)

	t := ctx.Gradient(o.String("color_mode"))
	out := gradientSlice(t, 0, n)
	for ch := range out {
		for i := range out[ch] {
			if i < len(r) {
				out[ch][i] *= r[i]
			} else {
				out[ch][i] = 0
			}
		}
	}

	if ctx.Flags.High {
		e.brightness = 1
		count := min(o.Int("s_count"), n)
		e.sparks = append(e.sparks[:0], ctx.Rand.Perm(n)[:count]...)
	}
	spark := ctx.Color(o.String("s_color"))
	for _, idx := range e.sparks {
		if idx < n {
			out.Set(idx,
				math.Trunc(float64(spark[0])*e.brightness),
				math.Trunc(float64(spark[1])*e.brightness),
				math.Trunc(float64(spark[2])*e.brightness))
		}
	}

	// Drop a random quarter of the sparks for next frame.
	if drop := len(e.sparks) / 4; drop > 0 {
		ctx.Rand.Shuffle(len(e.sparks), func(i, j int) { e.sparks[i], e.sparks[j] = e.sparks[j], e.sparks[i] })
		e.sparks = e.sparks[drop:]
	}
	if len(e.sparks) <= 4 {
		e.sparks = e.sparks[:0]
	}
	if e.brightness > 0 {
		e.brightness = math.Max(0, e.brightness-0.05)
	}

	bass := y[:min(len(y), int(float64(ctx.Bands)*0.2))]
	barLen := int(float64(n/3) * maxOf(bass))
	barLen = max(0, min(n-1, barLen))
	c := t.At(barLen)
	for i := 0; i < barLen; i++ {
		out.Set(i, float64(c[0]), float64(c[1]), float64(c[2]))
	}
	return finish(out, o.Bool("flip_lr"), o.Bool("mirror"))
}

// Sparks returns the number of live sparks.
func (e *powerEffect) Sparks() int { return len(e.sparks) }
