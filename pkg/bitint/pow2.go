// SPDX-License-Identifier: MIT
/*
Package bitint provides power-of-2 helpers for buffer and FFT sizing.

All operations are O(1), allocation-free and safe from real-time code.
The subtraction in NextPowerOfTwo (size-1) is what keeps exact powers of 2
from being doubled: for input 8, bits.Len(7) = 3 and 1<<3 = 8.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
// Inputs <= 0 return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so n & (n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
