// SPDX-License-Identifier: MIT
package dsp

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// Interpolate linearly resamples y onto len(dst) points. Both arrays are
// treated as spanning [0,1], so the first and last samples are preserved.
// dst is returned.
func Interpolate(dst, y []float64) []float64 {
	switch {
	case len(dst) == 0:
		return dst
	case len(y) == 0:
		for i := range dst {
			dst[i] = 0
		}
		return dst
	case len(y) == 1:
		for i := range dst {
			dst[i] = y[0]
		}
		return dst
	case len(y) == len(dst):
		copy(dst, y)
		return dst
	}

	xs := make([]float64, len(y))
	floats.Span(xs, 0, 1)
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, y); err != nil {
		// Fit only fails on unsorted or short input, which xs never is.
		panic(err)
	}
	if len(dst) == 1 {
		dst[0] = y[0]
		return dst
	}
	step := 1.0 / float64(len(dst)-1)
	for i := range dst {
		dst[i] = pl.Predict(float64(i) * step)
	}
	dst[len(dst)-1] = y[len(y)-1]
	return dst
}

// Resize returns Interpolate(make([]float64, n), y).
func Resize(y []float64, n int) []float64 {
	return Interpolate(make([]float64, n), y)
}
