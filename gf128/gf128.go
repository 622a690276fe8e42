// Package gf128 implements multiplication in GF(2^128) with the GCM bit ordering.
//
// See McGrew and Viega, "The Galois/Counter Mode of Operation", section 2.5.
// An element is a uint128.Uint128 where Hi holds the first 8 bytes of the block (top)
// and Lo the last 8 bytes (bottom). The coefficient of x^0 is the most significant bit of Hi.
package gf128

import (
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"lukechampine.com/uint128"
)

type Element = uint128.Uint128

// ReductionTop Top byte of R = 11100001 || 0^120, from x^128 + x^7 + x^2 + x + 1
const ReductionTop = 0xe1

var r = uint128.New(0, ReductionTop<<56)

// One is the multiplicative identity, x^0
var One = uint128.New(0, 1<<63)

var Zero = uint128.Zero

func FromBlock(b types.Block) Element {
	return b.Uint128()
}

func ToBlock(e Element) types.Block {
	return types.BlockFromUint128(e)
}

// Mul Algorithm 1 of the McGrew and Viega GCM paper. y is scanned from its most significant bit, v starts at x
// and is multiplied by x once per step
func Mul(x, y Element) Element {
	z := uint128.Zero
	v := x

	for _, half := range [2]uint64{y.Hi, y.Lo} {
		for i := 63; i >= 0; i-- {
			if (half>>uint(i))&1 != 0 {
				z = z.Xor(v)
			}
			v = shiftRight(v)
		}
	}
	return z
}

// shiftRight v * x, where a bit leaving the bottom of Lo wraps around as R
func shiftRight(v Element) Element {
	carry := v.Lo & 1
	v = v.Rsh(1)
	if carry != 0 {
		v = v.Xor(r)
	}
	return v
}

// MulBlock Mul over types.Block operands
func MulBlock(x, y types.Block) types.Block {
	return ToBlock(Mul(FromBlock(x), FromBlock(y)))
}
