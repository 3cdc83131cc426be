// SPDX-License-Identifier: MIT
package dsp

import "fmt"

// ExpFilter is an exponential smoother with separate attack and release
// coefficients. Each element moves toward the new sample by AlphaRise when the
// sample is above the current value and by AlphaDecay otherwise:
//
//	value = alpha*x + (1-alpha)*value
//
// The filter is either scalar or a fixed-length vector, decided by the seed it
// was constructed with.
type ExpFilter struct {
	AlphaDecay float64
	AlphaRise  float64

	value  []float64
	scalar bool
}

// NewExpFilter creates a vector filter seeded with a copy of seed.
func NewExpFilter(seed []float64, alphaDecay, alphaRise float64) *ExpFilter {
	checkAlpha(alphaDecay, alphaRise)
	v := make([]float64, len(seed))
	copy(v, seed)
	return &ExpFilter{AlphaDecay: alphaDecay, AlphaRise: alphaRise, value: v}
}

// NewTiledExpFilter creates a vector filter of length n with every element set to seed.
func NewTiledExpFilter(seed float64, n int, alphaDecay, alphaRise float64) *ExpFilter {
	checkAlpha(alphaDecay, alphaRise)
	v := make([]float64, n)
	for i := range v {
		v[i] = seed
	}
	return &ExpFilter{AlphaDecay: alphaDecay, AlphaRise: alphaRise, value: v}
}

// NewScalarFilter creates a filter over a single value.
func NewScalarFilter(seed, alphaDecay, alphaRise float64) *ExpFilter {
	checkAlpha(alphaDecay, alphaRise)
	return &ExpFilter{AlphaDecay: alphaDecay, AlphaRise: alphaRise, value: []float64{seed}, scalar: true}
}

func checkAlpha(decay, rise float64) {
	if decay <= 0 || decay > 1 || rise <= 0 || rise > 1 {
		panic(fmt.Sprintf("dsp: filter coefficients must be in (0,1], got decay=%v rise=%v", decay, rise))
	}
}

// Update folds x into the filter and returns the new state. The returned slice
// is owned by the filter and is overwritten by the next Update; x must have
// Len() elements.
func (f *ExpFilter) Update(x []float64) []float64 {
	for i, v := range f.value {
		alpha := f.AlphaDecay
		if x[i] > v {
			alpha = f.AlphaRise
		}
		f.value[i] = alpha*x[i] + (1-alpha)*v
	}
	return f.value
}

// UpdateScalar folds x into a scalar filter and returns the new value.
func (f *ExpFilter) UpdateScalar(x float64) float64 {
	v := f.value[0]
	alpha := f.AlphaDecay
	if x > v {
		alpha = f.AlphaRise
	}
	f.value[0] = alpha*x + (1-alpha)*v
	return f.value[0]
}

// Value returns the current state. Callers must not modify it.
func (f *ExpFilter) Value() []float64 { return f.value }

// Scalar returns the first (for scalar filters, the only) element.
func (f *ExpFilter) Scalar() float64 { return f.value[0] }

// IsScalar reports whether the filter was built from a scalar seed.
func (f *ExpFilter) IsScalar() bool { return f.scalar }

// Len is the number of smoothed elements.
func (f *ExpFilter) Len() int { return len(f.value) }
