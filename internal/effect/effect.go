// SPDX-License-Identifier: MIT
//
// Package effect implements the visual algorithms that turn a mel spectrum
// into a frame of pixels, together with their option schemas.
package effect

import (
	"errors"
	"math/rand"
	"time"

	"ledviz/internal/dsp"
	"ledviz/internal/gradient"
	"ledviz/internal/log"
	"ledviz/internal/onset"
	"ledviz/internal/pixel"
)

var (
	ErrUnknownEffect       = errors.New("unknown effect")
	ErrUnknownOption       = errors.New("unknown option")
	ErrInvalidValue        = errors.New("invalid value")
	ErrRecursiveComposite  = errors.New("composite effect cannot reference itself or another composite")
	errNoGradientAvailable = errors.New("no gradients configured")
)

var logger = log.Named("Effect")

// Params describe the strip an effect set renders for. Some option bounds
// depend on them.
type Params struct {
	Pixels int
	Bands  int
}

// Effect renders one frame. Implementations keep their own state between
// frames and are driven by a single goroutine.
type Effect interface {
	Name() string
	// Reactive effects are only run while audio is above the volume threshold.
	Reactive() bool
	Schema(p Params) Schema
	Visualize(ctx *Context, mel []float64) pixel.Buffer
}

// composite marks effects that render other effects. They may not be
// referenced by another composite.
type composite interface {
	isComposite()
}

// IsComposite reports whether e renders other effects.
func IsComposite(e Effect) bool {
	_, ok := e.(composite)
	return ok
}

// Context is everything an effect may read or update while rendering a frame
// for one device.
type Context struct {
	Params

	Flags     onset.Flags
	Now       time.Time
	Elapsed   time.Duration // since the previous frame
	Rand      *rand.Rand
	Filters   *dsp.FilterBank
	Gradients *gradient.Store
	Palette   gradient.Palette

	// Prev is the device's previous output. Effects must not modify it.
	Prev pixel.Buffer

	// Options is the option snapshot for this frame, keyed by effect name.
	Options map[string]Options

	// Effects is the device's effect set, for effects that render others.
	Effects *Set
}

// Opts returns the options of the named effect.
func (c *Context) Opts(name string) Options {
	return c.Options[name]
}

// Gradient returns the named table, falling back to the first configured
// gradient if the name is unknown.
func (c *Context) Gradient(name string) *gradient.Table {
	if t, ok := c.Gradients.Get(name); ok {
		return t
	}
	names := c.Gradients.Names()
	if len(names) == 0 {
		panic(errNoGradientAvailable)
	}
	t, _ := c.Gradients.Get(names[0])
	return t
}

// Color returns the named palette color, or white.
func (c *Context) Color(name string) gradient.RGB {
	if rgb, ok := c.Palette[name]; ok {
		return rgb
	}
	return gradient.RGB{255, 255, 255}
}

// halfSpectrum resamples mel onto half the strip.
func (c *Context) halfSpectrum(mel []float64) []float64 {
	return dsp.Resize(mel, c.Pixels/2)
}

// direction is -1 when reverse is set.
func direction(reverse bool) int {
	if reverse {
		return -1
	}
	return 1
}

// doubled repeats every element: [a b] -> [a a b b].
func doubled(x []float64) []float64 {
	out := make([]float64, 0, 2*len(x))
	for _, v := range x {
		out = append(out, v, v)
	}
	return out
}

// gradientSlice returns channel rows [from, from+n) of t as float64.
func gradientSlice(t *gradient.Table, from, n int) pixel.Buffer {
	out := pixel.New(n)
	for ch := range out {
		row := t.Channel(ch)
		for i := 0; i < n && from+i < len(row); i++ {
			out[ch][i] = float64(row[from+i])
		}
	}
	return out
}

// finish applies the common flip and mirror options.
func finish(out pixel.Buffer, flip, mirror bool) pixel.Buffer {
	if flip {
		out.FlipLR()
	}
	if mirror {
		out = out.Mirror()
	}
	return out
}

func maxOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
