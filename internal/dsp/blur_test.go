// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"
)

func TestGaussianKernel(t *testing.T) {
	tests := []struct {
		sigma   float64
		wantLen int
	}{
		{0.2, 3},
		{1, 9},
		{2, 17},
	}
	for _, tt := range tests {
		k := GaussianKernel(tt.sigma)
		if len(k) != tt.wantLen {
			t.Errorf("sigma %v: kernel length %d, want %d", tt.sigma, len(k), tt.wantLen)
		}
		sum := 0.0
		for _, w := range k {
			sum += w
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Errorf("sigma %v: kernel sums to %v", tt.sigma, sum)
		}
	}
}

func TestReflectIndex(t *testing.T) {
	// d c b a | a b c d | d c b a
	tests := []struct{ in, want int }{
		{-1, 0}, {-2, 1}, {-4, 3}, {-5, 3},
		{0, 0}, {3, 3},
		{4, 3}, {5, 2}, {7, 0}, {8, 0},
	}
	for _, tt := range tests {
		if got := reflectIndex(tt.in, 4); got != tt.want {
			t.Errorf("reflectIndex(%d, 4) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := reflectIndex(-3, 1); got != 0 {
		t.Errorf("single element reflect = %d", got)
	}
}

func TestGaussianFilterPreservesConstant(t *testing.T) {
	src := []float64{5, 5, 5, 5, 5}
	got := GaussianFilter1D(nil, src, 3)
	for i, v := range got {
		if math.Abs(v-5) > 1e-9 {
			t.Errorf("got[%d] = %v, want 5", i, v)
		}
	}
}

func TestGaussianFilterImpulse(t *testing.T) {
	src := make([]float64, 21)
	src[10] = 1
	got := GaussianFilter1D(make([]float64, 21), src, 1)

	sum := 0.0
	for i, v := range got {
		sum += v
		if mirror := got[20-i]; math.Abs(v-mirror) > 1e-12 {
			t.Errorf("asymmetric response at %d: %v vs %v", i, v, mirror)
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("interior impulse energy %v, want 1", sum)
	}
	if got[10] <= got[9] {
		t.Errorf("peak moved: %v <= %v", got[10], got[9])
	}
}

func TestGaussianFilterZeroSigmaCopies(t *testing.T) {
	src := []float64{1, 2, 3}
	got := GaussianFilter1D(nil, src, 0)
	for i := range src {
		if got[i] != src[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], src[i])
		}
	}
}
