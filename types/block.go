package types

import (
	"fmt"

	fasthex "github.com/tmthrgd/go-hex"
	"lukechampine.com/uint128"
)

const BlockSize = 16

// Block A 128-bit value in AES byte order: bytes 0-3 are column 0, ..., bytes 12-15 are column 3.
// Counter blocks are interpreted as a big-endian 128-bit integer.
//
//nolint:recvcheck
type Block [BlockSize]byte

var ZeroBlock Block

func MustBlockFromString(s string) Block {
	if b, err := BlockFromString(s); err != nil {
		panic(err)
	} else {
		return b
	}
}

func BlockFromString(s string) (b Block, err error) {
	err = fixedFromString(b[:], "block", s)
	return b, err
}

func BlockFromBytes(buf []byte) (b Block, err error) {
	if len(buf) != BlockSize {
		return b, fmt.Errorf("%w: block needs %d bytes, got %d", ErrWrongSize, BlockSize, len(buf))
	}
	copy(b[:], buf)
	return b, nil
}

// BlockFromUint128 Packs v big-endian, top half first
func BlockFromUint128(v uint128.Uint128) (b Block) {
	v.PutBytesBE(b[:])
	return b
}

// BlocksFromBytes Splits buf into whole blocks. buf must be a multiple of BlockSize
func BlocksFromBytes(buf []byte) ([]Block, error) {
	if len(buf)%BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrWrongSize, len(buf), BlockSize)
	}
	blocks := make([]Block, len(buf)/BlockSize)
	for i := range blocks {
		copy(blocks[i][:], buf[i*BlockSize:])
	}
	return blocks, nil
}

func BlocksToBytes(blocks []Block) []byte {
	buf := make([]byte, 0, len(blocks)*BlockSize)
	for i := range blocks {
		buf = append(buf, blocks[i][:]...)
	}
	return buf
}

func (b Block) Uint128() uint128.Uint128 {
	return uint128.FromBytesBE(b[:])
}

// Add Returns b + n modulo 2^128
func (b Block) Add(n uint64) Block {
	return BlockFromUint128(b.Uint128().AddWrap64(n))
}

// Sub Returns b - other modulo 2^128, truncated to 64 bits
func (b Block) Sub(other Block) uint64 {
	return b.Uint128().SubWrap(other.Uint128()).Lo
}

func (b Block) Xor(other Block) (out Block) {
	for i := range out {
		out[i] = b[i] ^ other[i]
	}
	return out
}

func (b Block) Slice() []byte {
	return b[:]
}

func (b Block) String() string {
	return fasthex.EncodeToString(b[:])
}

func (b Block) MarshalJSON() ([]byte, error) {
	return marshalQuotedHex(b[:]), nil
}

func (b *Block) UnmarshalJSON(buf []byte) error {
	return unmarshalQuotedHex(b[:], "block", buf)
}
