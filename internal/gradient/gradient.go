// SPDX-License-Identifier: MIT
package gradient

import (
	"fmt"
	"math"
	"sort"
)

// easeSlope shapes the S curve between neighbouring colors.
const easeSlope = 2.5

// Ease maps x in [0,length) onto an S curve t^s / (t^s + (1-t)^s), t = x/length.
func Ease(x, length, slope float64) float64 {
	t := x / length
	a := math.Pow(t, slope)
	return a / (a + math.Pow(1-t, slope))
}

// Build eases through colors over length pixels and returns the 3 x length
// table. The colors are laid out last to first, so index 0 holds the final
// color of the list. Pixels left over by the integer segment split repeat the
// last computed value.
func Build(colors []string, palette Palette, length int) ([3][]int, error) {
	var out [3][]int
	if length < 1 {
		return out, fmt.Errorf("gradient length must be positive, got %d", length)
	}
	if len(colors) == 0 {
		return out, fmt.Errorf("gradient has no colors")
	}

	rgb := make([]RGB, len(colors))
	for i, name := range colors {
		c, err := palette.Lookup(name)
		if err != nil {
			return out, err
		}
		rgb[len(colors)-1-i] = c
	}
	for ch := range out {
		out[ch] = make([]int, length)
	}

	transitions := len(rgb) - 1
	segment := 0
	if transitions > 0 {
		segment = length / transitions
	}
	if segment == 0 {
		// One color, or fewer pixels than transitions: solid fill.
		for ch := range out {
			for i := range out[ch] {
				out[ch][i] = rgb[0][ch]
			}
		}
		return out, nil
	}

	ease := make([]float64, segment)
	for i := range ease {
		ease[i] = Ease(float64(i), float64(segment), easeSlope)
	}

	for ch := range out {
		for j := 0; j < transitions; j++ {
			start := float64(rgb[j][ch])
			diff := float64(rgb[j+1][ch]) - start
			for i, e := range ease {
				out[ch][j*segment+i] = int(start + diff*e)
			}
		}
		filled := transitions * segment
		for i := filled; i < length; i++ {
			out[ch][i] = out[ch][filled-1]
		}
	}
	return out, nil
}

// Table is a gradient mirrored about its center: reverse(ramp) ++ ramp, so
// it holds 2*pixels entries per channel.
type Table struct {
	data [3][]int
	tmp  []int
}

// NewTable builds the mirrored table for colors over pixels LEDs.
func NewTable(colors []string, palette Palette, pixels int) (*Table, error) {
	ramp, err := Build(colors, palette, pixels)
	if err != nil {
		return nil, err
	}
	t := &Table{tmp: make([]int, 2*pixels)}
	for ch := range ramp {
		row := make([]int, 2*pixels)
		for i, v := range ramp[ch] {
			row[pixels-1-i] = v
			row[pixels+i] = v
		}
		t.data[ch] = row
	}
	return t, nil
}

// Len is the number of entries per channel.
func (t *Table) Len() int { return len(t.data[0]) }

// Channel returns channel ch. Callers must not modify it.
func (t *Table) Channel(ch int) []int { return t.data[ch] }

// At returns the color at index i.
func (t *Table) At(i int) RGB {
	return RGB{t.data[0][i], t.data[1][i], t.data[2][i]}
}

// Roll circularly shifts every channel by shift entries, so the value at i
// moves to i+shift.
func (t *Table) Roll(shift int) {
	n := t.Len()
	if n == 0 {
		return
	}
	shift %= n
	if shift < 0 {
		shift += n
	}
	if shift == 0 {
		return
	}
	for ch := range t.data {
		row := t.data[ch]
		for i, v := range row {
			t.tmp[(i+shift)%n] = v
		}
		copy(row, t.tmp)
	}
}

// Store holds one device's gradient tables. Effects reach tables through the
// store by name; it belongs to the device's frame loop and is not safe for
// concurrent use.
type Store struct {
	tables map[string]*Table
	names  []string
	pixels int
}

// NewStore builds a table for every gradient.
func NewStore(palette Palette, gradients map[string][]string, pixels int) (*Store, error) {
	s := &Store{tables: make(map[string]*Table, len(gradients)), pixels: pixels}
	for name, colors := range gradients {
		t, err := NewTable(colors, palette, pixels)
		if err != nil {
			return nil, fmt.Errorf("gradient %s: %w", name, err)
		}
		s.tables[name] = t
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s, nil
}

// Get returns the named table.
func (s *Store) Get(name string) (*Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Roll shifts the named table in place. Unknown names are ignored.
func (s *Store) Roll(name string, shift int) {
	if t, ok := s.tables[name]; ok {
		t.Roll(shift)
	}
}

// Names lists the gradients in sorted order.
func (s *Store) Names() []string { return s.names }

// Pixels is the strip length the tables were built for.
func (s *Store) Pixels() int { return s.pixels }
