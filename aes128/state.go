// Package aes128 implements the AES-128 block cipher (encryption only) on a column-major 4x4 byte state,
// built from the GF(2⁸) arithmetic in package rijndael.
//
// https://csrc.nist.gov/publications/fips/fips197/fips-197.pdf
package aes128

import (
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	fasthex "github.com/tmthrgd/go-hex"
)

const (
	Rows    = 4
	Columns = 4

	// Rounds Number of rounds for a 128-bit key
	Rounds = 10
)

// Word One column of the state or key, rows 0 to 3
type Word [Rows]byte

// State AES state. Byte (r, c) is stored at index 4*c + r, so bytes 0-3 form column 0
//
//nolint:recvcheck
type State [Rows * Columns]byte

func StateFromBlock(b types.Block) State {
	return State(b)
}

func StateFromColumns(columns [Columns]Word) (s State) {
	for c := range columns {
		copy(s[c*Rows:], columns[c][:])
	}
	return s
}

func (s State) Block() types.Block {
	return types.Block(s)
}

// At Byte at row r, column c
func (s State) At(r, c int) byte {
	return s[c*Rows+r]
}

func (s *State) Set(r, c int, v byte) {
	s[c*Rows+r] = v
}

func (s State) Column(c int) (w Word) {
	copy(w[:], s[c*Rows:(c+1)*Rows])
	return w
}

func (s *State) SetColumn(c int, w Word) {
	copy(s[c*Rows:], w[:])
}

// Columns The state as four columns, the inverse of StateFromColumns
func (s State) Columns() (columns [Columns]Word) {
	for c := range columns {
		columns[c] = s.Column(c)
	}
	return columns
}

func (s State) String() string {
	return fasthex.EncodeToString(s[:])
}

func (w Word) Xor(other Word) (out Word) {
	for i := range out {
		out[i] = w[i] ^ other[i]
	}
	return out
}

func (s State) MarshalJSON() ([]byte, error) {
	return s.Block().MarshalJSON()
}

func (s *State) UnmarshalJSON(buf []byte) error {
	return (*types.Block)(s).UnmarshalJSON(buf)
}
