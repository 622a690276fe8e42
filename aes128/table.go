package aes128

import (
	"encoding/binary"
	"math/bits"

	"git.gammaspectra.live/P2Pool/aes-attest/rijndael"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
)

// encLut Combined SubBytes and MixColumns lookup for a byte entering row 0..3 of a column.
// Columns are little-endian uint32, row 0 in the low byte
var encLut = func() (lut [Rows][256]uint32) {
	for x := range 256 {
		s := rijndael.SubByte(byte(x))
		s2 := rijndael.XTime(s)
		s3 := s2 ^ s
		w := uint32(s2) | uint32(s)<<8 | uint32(s)<<16 | uint32(s3)<<24
		for r := range Rows {
			lut[r][x] = bits.RotateLeft32(w, 8*r)
		}
	}
	return lut
}()

var te0, te1, te2, te3 = &encLut[0], &encLut[1], &encLut[2], &encLut[3]

func tableRoundKeys(schedule *Schedule) (rk [Rounds + 1][Columns]uint32) {
	for round := range schedule {
		for c := range Columns {
			rk[round][c] = binary.LittleEndian.Uint32(schedule[round][c*Rows:])
		}
	}
	return rk
}

// tableRound One full round with ShiftRows folded into the column selection
func tableRound(state *[Columns]uint32, key *[Columns]uint32) {
	s0 := state[0]
	s1 := state[1]
	s2 := state[2]
	s3 := state[3]

	state[0] = key[0] ^ te0[uint8(s0)] ^ te1[uint8(s1>>8)] ^ te2[uint8(s2>>16)] ^ te3[uint8(s3>>24)]
	state[1] = key[1] ^ te0[uint8(s1)] ^ te1[uint8(s2>>8)] ^ te2[uint8(s3>>16)] ^ te3[uint8(s0>>24)]
	state[2] = key[2] ^ te0[uint8(s2)] ^ te1[uint8(s3>>8)] ^ te2[uint8(s0>>16)] ^ te3[uint8(s1>>24)]
	state[3] = key[3] ^ te0[uint8(s3)] ^ te1[uint8(s0>>8)] ^ te2[uint8(s1>>16)] ^ te3[uint8(s2>>24)]
}

func subShift(a, b, c, d uint32) uint32 {
	return uint32(rijndael.SubByte(uint8(a))) |
		uint32(rijndael.SubByte(uint8(b>>8)))<<8 |
		uint32(rijndael.SubByte(uint8(c>>16)))<<16 |
		uint32(rijndael.SubByte(uint8(d>>24)))<<24
}

// EncryptTable Same result as Encrypt, using 32-bit lookup tables. Used for bulk keystream generation
func (c *Cipher) EncryptTable(plaintext types.Block) (out types.Block) {
	var state [Columns]uint32
	for i := range state {
		state[i] = binary.LittleEndian.Uint32(plaintext[i*Rows:]) ^ c.rk[0][i]
	}

	for round := 1; round < Rounds; round++ {
		tableRound(&state, &c.rk[round])
	}

	key := &c.rk[Rounds]
	s0, s1, s2, s3 := state[0], state[1], state[2], state[3]
	binary.LittleEndian.PutUint32(out[0:], key[0]^subShift(s0, s1, s2, s3))
	binary.LittleEndian.PutUint32(out[4:], key[1]^subShift(s1, s2, s3, s0))
	binary.LittleEndian.PutUint32(out[8:], key[2]^subShift(s2, s3, s0, s1))
	binary.LittleEndian.PutUint32(out[12:], key[3]^subShift(s3, s0, s1, s2))
	return out
}
