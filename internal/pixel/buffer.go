// SPDX-License-Identifier: MIT
//
// Package pixel holds the channel-major frame buffers passed from effects to
// transports.
package pixel

import (
	"math"

	"ledviz/internal/dsp"
)

// Buffer is a 3 x N channel-major frame: row 0 red, 1 green, 2 blue. Values
// are nominally 0..255 but may overshoot until Bytes clamps them.
type Buffer [3][]float64

// New returns a black buffer of n pixels.
func New(n int) Buffer {
	var b Buffer
	for ch := range b {
		b[ch] = make([]float64, n)
	}
	return b
}

// Len is the number of pixels.
func (b Buffer) Len() int { return len(b[0]) }

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	var c Buffer
	for ch := range b {
		c[ch] = append([]float64(nil), b[ch]...)
	}
	return c
}

// CopyFrom copies src into b, truncating or zero filling to b's length.
func (b Buffer) CopyFrom(src Buffer) {
	for ch := range b {
		n := copy(b[ch], src[ch])
		for i := n; i < len(b[ch]); i++ {
			b[ch][i] = 0
		}
	}
}

// Clear sets every value to zero.
func (b Buffer) Clear() {
	for ch := range b {
		for i := range b[ch] {
			b[ch][i] = 0
		}
	}
}

// Scale multiplies every value by f in place.
func (b Buffer) Scale(f float64) Buffer {
	for ch := range b {
		for i := range b[ch] {
			b[ch][i] *= f
		}
	}
	return b
}

// Truncate drops the fractional part of every value in place.
func (b Buffer) Truncate() Buffer {
	for ch := range b {
		for i, v := range b[ch] {
			b[ch][i] = math.Trunc(v)
		}
	}
	return b
}

// Fill paints every pixel with r, g, b.
func (b Buffer) Fill(r, g, bl float64) Buffer {
	for i := range b[0] {
		b[0][i], b[1][i], b[2][i] = r, g, bl
	}
	return b
}

// Set paints pixel i.
func (b Buffer) Set(i int, r, g, bl float64) {
	b[0][i], b[1][i], b[2][i] = r, g, bl
}

// Blur applies a Gaussian blur of sigma to each channel and returns a new buffer.
func (b Buffer) Blur(sigma float64) Buffer {
	var out Buffer
	for ch := range b {
		out[ch] = dsp.GaussianFilter1D(nil, b[ch], sigma)
	}
	return out
}

// Mirror folds the strip onto itself about the center: every second pixel
// reversed, then every second pixel forward. The result has the same length.
func (b Buffer) Mirror() Buffer {
	n := b.Len()
	out := New(n)
	for ch := range b {
		row := out[ch][:0]
		for i := n - 1; i >= 0; i -= 2 {
			row = append(row, b[ch][i])
		}
		for i := 0; i < n && len(row) < n; i += 2 {
			row = append(row, b[ch][i])
		}
		out[ch] = row
	}
	return out
}

// FlipLR reverses the pixel order in place.
func (b Buffer) FlipLR() Buffer {
	for ch := range b {
		row := b[ch]
		for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
			row[i], row[j] = row[j], row[i]
		}
	}
	return b
}

// Gray returns the per-pixel channel mean.
func (b Buffer) Gray() []float64 {
	g := make([]float64, b.Len())
	for i := range g {
		g[i] = (b[0][i] + b[1][i] + b[2][i]) / 3
	}
	return g
}

// MaskBy multiplies every channel by mask[i]/255 in place.
func (b Buffer) MaskBy(mask []float64) Buffer {
	for ch := range b {
		for i := range b[ch] {
			if i < len(mask) {
				b[ch][i] *= mask[i] / 255
			} else {
				b[ch][i] = 0
			}
		}
	}
	return b
}

// Bytes clamps every value into [0, maxBrightness] (itself at most 255),
// truncates to an integer and returns the result. NaN becomes 0.
func (b Buffer) Bytes(maxBrightness int) [3][]uint8 {
	limit := float64(max(0, min(255, maxBrightness)))
	var out [3][]uint8
	for ch := range b {
		out[ch] = make([]uint8, len(b[ch]))
		for i, v := range b[ch] {
			switch {
			case math.IsNaN(v) || v <= 0:
				out[ch][i] = 0
			case v >= limit:
				out[ch][i] = uint8(limit)
			default:
				out[ch][i] = uint8(v)
			}
		}
	}
	return out
}

// MirrorHalf returns reverse(half) ++ half.
func MirrorHalf(half []float64) []float64 {
	n := len(half)
	out := make([]float64, 2*n)
	for i, v := range half {
		out[n-1-i] = v
		out[n+i] = v
	}
	return out
}
