package utils

import "math/bits"

// PreviousPowerOfTwo Largest power of two <= x, 0 for x == 0
func PreviousPowerOfTwo(x uint64) int {
	if x == 0 {
		return 0
	}
	return 1 << (64 - bits.LeadingZeros64(x) - 1)
}
