// Package rijndael implements arithmetic in GF(2^8) as used by AES.
//
// AES is based on the mathematical behavior of binary polynomials
// (polynomials over GF(2)) modulo the irreducible polynomial x⁸ + x⁴ + x³ + x + 1.
// Addition of these binary polynomials corresponds to binary xor.
// Reducing mod poly corresponds to binary xor with poly every
// time a 0x100 bit appears.
package rijndael

const Poly = 1<<8 | 1<<4 | 1<<3 | 1<<1 | 1<<0 // x⁸ + x⁴ + x³ + x + 1

// Reduction low byte of Poly, folded back in when x⁸ overflows
const Reduction = Poly & 0xff

// Add a + b in GF(2⁸)
func Add(a, b byte) byte {
	return a ^ b
}

// XTime Multiplies a by x modulo Poly
func XTime(a byte) byte {
	// mask is 0xff when the high bit is set
	mask := byte(int8(a) >> 7)
	return a<<1 ^ (Reduction & mask)
}

// Mul Multiply a and b as GF(2) polynomials modulo Poly
func Mul(a, b byte) byte {
	var s byte
	for range 8 {
		// a == input a * xⁿ after n iterations
		if b&1 != 0 {
			s ^= a
		}
		a = XTime(a)
		b >>= 1
	}
	return s
}

// Pow a^n, with Pow(a, 0) == 1
func Pow(a byte, n uint) byte {
	result := byte(1)
	for n > 0 {
		if n&1 != 0 {
			result = Mul(result, a)
		}
		a = Mul(a, a)
		n >>= 1
	}
	return result
}

// Inverse Multiplicative inverse of a. The non-zero elements form a group of order 255,
// so a^254 == a^-1. Inverse(0) is 0 by convention
func Inverse(a byte) byte {
	return Pow(a, 254)
}
