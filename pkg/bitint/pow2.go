// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers the spectral analyzer needs
to size its zero-padded FFT input.

	padded := bitint.NextPowerOfTwo(len(window)) // 800 samples -> 1024

Both functions are allocation free and safe to call from the frame loop.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size. Values <= 0 yield 1.
//
// Subtracting one before taking the bit length keeps exact powers of two
// unchanged: Len(8-1) = 3 and 1<<3 = 8, whereas Len(8) would give 16.
//
//	Input  Output
//	4      4
//	5      8
//	800    1024
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PadLength returns how many zeros must be appended to n samples to reach the
// next power of two.
func PadLength(n int) int {
	return NextPowerOfTwo(n) - max(n, 0)
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two has
// a single bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
