// SPDX-License-Identifier: MIT
package effect

import "ledviz/internal/pixel"

// autoEffect cycles through the reactive effects, moving on at the first
// beat after timer frames.
type autoEffect struct {
	current int
	frames  int
}

func (*autoEffect) isComposite() {}

func (*autoEffect) Name() string   { return Auto }
func (*autoEffect) Reactive() bool { return true }

func (*autoEffect) Schema(p Params) Schema {
	return Schema{intOpt("timer", "Timer", 100, 20000, 500)}
}

// candidates are the effects Auto may show.
func (*autoEffect) candidates(s *Set) []Effect {
	var out []Effect
	for _, name := range s.Names() {
		e, _ := s.Get(name)
		if e.Reactive() && !IsComposite(e) {
			out = append(out, e)
		}
	}
	return out
}

func (a *autoEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	choices := a.candidates(ctx.Effects)
	if len(choices) == 0 {
		return pixel.New(ctx.Pixels)
	}
	e := choices[a.current%len(choices)]

	if ctx.Flags.Beat && a.frames > ctx.Opts(Auto).Int("timer") {
		a.frames = 0
		a.current++
		logger.Debugf("auto: switching after %s", e.Name())
	}
	a.frames++
	return e.Visualize(ctx, mel)
}

// Showing returns the name of the effect Auto is currently rendering.
func (a *autoEffect) Showing(s *Set) string {
	choices := a.candidates(s)
	if len(choices) == 0 {
		return ""
	}
	return choices[a.current%len(choices)].Name()
}

// multipleEffect renders effect a and masks it by the brightness of b and c.
type multipleEffect struct{}

func (*multipleEffect) isComposite() {}

func (*multipleEffect) Name() string   { return Multiple }
func (*multipleEffect) Reactive() bool { return false }

func (*multipleEffect) Schema(p Params) Schema {
	return Schema{
		effectOpt("a", "Effect A"),
		effectOpt("b", "Effect B"),
		effectOpt("c", "Effect C"),
	}
}

func (*multipleEffect) Visualize(ctx *Context, mel []float64) pixel.Buffer {
	o := ctx.Opts(Multiple)
	out := pixel.New(ctx.Pixels)

	render := func(key string) (pixel.Buffer, bool) {
		e, ok := ctx.Effects.Get(o.String(key))
		if !ok || IsComposite(e) {
			return pixel.Buffer{}, false
		}
		return e.Visualize(ctx, mel), true
	}

	if a, ok := render("a"); ok {
		out.CopyFrom(a)
	}
	for _, key := range []string{"b", "c"} {
		if mask, ok := render(key); ok {
			out.MaskBy(mask.Gray())
		}
	}
	return out
}
