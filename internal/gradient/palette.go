// SPDX-License-Identifier: MIT
package gradient

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a color with 0..255 channels.
type RGB [3]int

// ParseHex parses "#rrggbb" (or "#rgb") into an RGB.
func ParseHex(s string) (RGB, error) {
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return RGB{int(r), int(g), int(b)}, nil
}

// Hex formats c as "#rrggbb".
func (c RGB) Hex() string {
	return colorful.Color{
		R: float64(clampByte(c[0])) / 255,
		G: float64(clampByte(c[1])) / 255,
		B: float64(clampByte(c[2])) / 255,
	}.Hex()
}

func clampByte(v int) int {
	return max(0, min(255, v))
}

// Palette maps color names to values.
type Palette map[string]RGB

// DefaultPalette returns the stock named colors.
func DefaultPalette() Palette {
	return Palette{
		"Red":        {255, 0, 0},
		"Orange":     {255, 40, 0},
		"Yellow":     {255, 255, 0},
		"Green":      {0, 255, 0},
		"Blue":       {0, 0, 255},
		"Light blue": {1, 247, 161},
		"Purple":     {80, 5, 252},
		"Pink":       {255, 0, 178},
		"White":      {255, 255, 255},
	}
}

// Lookup returns the named color.
func (p Palette) Lookup(name string) (RGB, error) {
	c, ok := p[name]
	if !ok {
		return RGB{}, fmt.Errorf("unknown color: '%s'", name)
	}
	return c, nil
}

// Names returns the color names in sorted order.
func (p Palette) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultGradients returns the stock gradients as ordered color names.
func DefaultGradients() map[string][]string {
	return map[string][]string{
		"Spectral":   {"Red", "Orange", "Yellow", "Green", "Light blue", "Blue", "Purple", "Pink"},
		"Dancefloor": {"Red", "Pink", "Purple", "Blue"},
		"Sunset":     {"Red", "Orange", "Yellow"},
		"Ocean":      {"Green", "Light blue", "Blue"},
		"Jungle":     {"Green", "Red", "Orange"},
		"Sunny":      {"Yellow", "Light blue", "Orange", "Blue"},
		"Fruity":     {"Orange", "Blue"},
		"Peach":      {"Orange", "Pink"},
		"Rust":       {"Orange", "Red"},
	}
}
