// SPDX-License-Identifier: MIT
package dsp

import "math"

// gaussianTruncate is the kernel half-width in standard deviations.
const gaussianTruncate = 4.0

// GaussianKernel returns normalized weights for a 1-D Gaussian of the given
// sigma, radius int(4*sigma+0.5).
func GaussianKernel(sigma float64) []float64 {
	radius := int(gaussianTruncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-0.5 * x * x / (sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// GaussianFilter1D blurs src into dst (which may not alias src) with edges
// mirrored half-sample symmetric: d c b a | a b c d | d c b a. A non-positive
// sigma copies src unchanged.
func GaussianFilter1D(dst, src []float64, sigma float64) []float64 {
	n := len(src)
	if len(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	if sigma <= 0 || n == 0 {
		copy(dst, src)
		return dst
	}

	k := GaussianKernel(sigma)
	radius := len(k) / 2
	for i := 0; i < n; i++ {
		acc := 0.0
		for j, w := range k {
			acc += w * src[reflectIndex(i+j-radius, n)]
		}
		dst[i] = acc
	}
	return dst
}

// reflectIndex folds any index into [0,n) with period 2n.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}
