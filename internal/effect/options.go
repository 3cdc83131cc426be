// SPDX-License-Identifier: MIT
package effect

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value type of an option.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindColor    // name of a palette color
	KindGradient // name of a gradient
	KindEffect   // name of a non-composite effect, or "" for none
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindColor:
		return "color"
	case KindGradient:
		return "gradient"
	case KindEffect:
		return "effect"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText lets schemas serialize kinds by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindInt; c <= KindEffect; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown option kind %q", text)
}

// OptionSpec declares one option of an effect. Min, Max and Step only apply
// to numeric kinds.
type OptionSpec struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Kind    Kind    `json:"kind"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Step    float64 `json:"step,omitempty"`
	Default any     `json:"default"`
}

// Schema is the ordered option list of an effect.
type Schema []OptionSpec

// Lookup finds the spec for key.
func (s Schema) Lookup(key string) (OptionSpec, bool) {
	for _, o := range s {
		if o.Key == key {
			return o, true
		}
	}
	return OptionSpec{}, false
}

// Defaults returns the default value of every option.
func (s Schema) Defaults() Options {
	opts := make(Options, len(s))
	for _, o := range s {
		opts[o.Key] = o.Default
	}
	return opts
}

func intOpt(key, label string, lo, hi, def int) OptionSpec {
	def = max(lo, min(hi, def))
	return OptionSpec{Key: key, Label: label, Kind: KindInt, Min: float64(lo), Max: float64(hi), Step: 1, Default: def}
}

func floatOpt(key, label string, lo, hi, step, def float64) OptionSpec {
	def = math.Max(lo, math.Min(hi, def))
	return OptionSpec{Key: key, Label: label, Kind: KindFloat, Min: lo, Max: hi, Step: step, Default: def}
}

func boolOpt(key, label string, def bool) OptionSpec {
	return OptionSpec{Key: key, Label: label, Kind: KindBool, Default: def}
}

func colorOpt(key, label, def string) OptionSpec {
	return OptionSpec{Key: key, Label: label, Kind: KindColor, Default: def}
}

func gradientOpt(def string) OptionSpec {
	return OptionSpec{Key: "color_mode", Label: "Color Mode", Kind: KindGradient, Default: def}
}

func effectOpt(key, label string) OptionSpec {
	return OptionSpec{Key: key, Label: label, Kind: KindEffect, Default: ""}
}

// Options are the values of one effect's options, keyed by option key.
// Numeric values are stored as int or float64 according to their kind.
type Options map[string]any

// Clone returns a shallow copy; values are immutable scalars.
func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Float returns a numeric option as float64, or 0.
func (o Options) Float(key string) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Int returns a numeric option truncated to int, or 0.
func (o Options) Int(key string) int {
	switch v := o[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Bool returns a boolean option, or false.
func (o Options) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// String returns a name option, or "".
func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// coerce converts raw into the representation of spec's kind. Numeric
// values must fall within [Min, Max]. Name kinds are only type checked here;
// the option store checks that the name exists.
func coerce(spec OptionSpec, raw any) (any, error) {
	switch spec.Kind {
	case KindInt:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidValue, spec.Key, raw)
		}
		if f < spec.Min || f > spec.Max {
			return nil, fmt.Errorf("%w: %s must be in [%g, %g], got %v", ErrInvalidValue, spec.Key, spec.Min, spec.Max, raw)
		}
		return int(f), nil

	case KindFloat:
		f, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		if f < spec.Min || f > spec.Max {
			return nil, fmt.Errorf("%w: %s must be in [%g, %g], got %v", ErrInvalidValue, spec.Key, spec.Min, spec.Max, raw)
		}
		return f, nil

	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidValue, spec.Key, v)
			}
			return b, nil
		}
		f, err := toFloat(raw)
		if err != nil || (f != 0 && f != 1) {
			return nil, fmt.Errorf("%w: %s expects a boolean, got %v", ErrInvalidValue, spec.Key, raw)
		}
		return f == 1, nil

	case KindColor, KindGradient, KindEffect:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a %s name, got %v", ErrInvalidValue, spec.Key, spec.Kind, raw)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s has unsupported kind %v", ErrInvalidValue, spec.Key, spec.Kind)
}

func toFloat(raw any) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float64:
		f = v
	case float32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, raw)
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %v (%T) is not a number", ErrInvalidValue, raw, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrInvalidValue, raw)
	}
	return f, nil
}
