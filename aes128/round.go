package aes128

import "git.gammaspectra.live/P2Pool/aes-attest/rijndael"

// SubBytes Applies the S-box to every byte independently
func (s State) SubBytes() (out State) {
	for i := range s {
		out[i] = rijndael.SubByte(s[i])
	}
	return out
}

// ShiftRows Rotates row r left by r positions
func (s State) ShiftRows() (out State) {
	for r := range Rows {
		for c := range Columns {
			out.Set(r, c, s.At(r, (c+r)%Columns))
		}
	}
	return out
}

// MixColumns Multiplies each column by the circulant matrix {2,3,1,1; 1,2,3,1; 1,1,2,3; 3,1,1,2}
func (s State) MixColumns() (out State) {
	for c := range Columns {
		out.SetColumn(c, mixColumn(s.Column(c)))
	}
	return out
}

// mixColumn Each output byte is 2*a_i ^ 3*a_(i+1) ^ a_(i+2) ^ a_(i+3), with 3*a = 2*a ^ a
func mixColumn(a Word) (b Word) {
	var h Word
	for i := range a {
		h[i] = rijndael.XTime(a[i])
	}
	b[0] = h[0] ^ a[3] ^ a[2] ^ h[1] ^ a[1]
	b[1] = h[1] ^ a[0] ^ a[3] ^ h[2] ^ a[2]
	b[2] = h[2] ^ a[1] ^ a[0] ^ h[3] ^ a[3]
	b[3] = h[3] ^ a[2] ^ a[1] ^ h[0] ^ a[0]
	return b
}

// AddRoundKey Byte-wise xor with the round key
func (s State) AddRoundKey(key State) (out State) {
	for i := range s {
		out[i] = s[i] ^ key[i]
	}
	return out
}
