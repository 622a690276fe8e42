package types

import (
	"errors"
	"fmt"

	fasthex "github.com/tmthrgd/go-hex"
)

const HashSize = 32

// Hash holds a commitment or a seal
//
//nolint:recvcheck
type Hash [HashSize]byte

var ZeroHash Hash

var ErrWrongSize = errors.New("wrong size")

// fixedFromString Decodes exactly len(dst)*2 hex characters into dst
func fixedFromString(dst []byte, what, s string) error {
	if len(s) != len(dst)*2 {
		return fmt.Errorf("%w: %s needs %d hex characters, got %d", ErrWrongSize, what, len(dst)*2, len(s))
	}
	_, err := fasthex.Decode(dst, []byte(s))
	return err
}

// marshalQuotedHex JSON string holding the hex of b
func marshalQuotedHex(b []byte) []byte {
	buf := make([]byte, len(b)*2+2)
	buf[0] = '"'
	buf[len(buf)-1] = '"'
	fasthex.Encode(buf[1:], b)
	return buf
}

// unmarshalQuotedHex Decodes a JSON hex string of exactly len(dst) bytes. null and "" leave dst untouched
func unmarshalQuotedHex(dst []byte, what string, buf []byte) error {
	if string(buf) == "null" || string(buf) == `""` {
		return nil
	}
	if len(buf) != len(dst)*2+2 || buf[0] != '"' || buf[len(buf)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrWrongSize, what)
	}
	_, err := fasthex.Decode(dst, buf[1:len(buf)-1])
	return err
}

func HashFromString(s string) (h Hash, err error) {
	err = fixedFromString(h[:], "hash", s)
	return h, err
}

func (h Hash) Slice() []byte {
	return h[:]
}

func (h Hash) String() string {
	return fasthex.EncodeToString(h[:])
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return marshalQuotedHex(h[:]), nil
}

func (h *Hash) UnmarshalJSON(buf []byte) error {
	return unmarshalQuotedHex(h[:], "hash", buf)
}

// Bytes Arbitrary length data, hex in JSON
//
//nolint:recvcheck
type Bytes []byte

// BytesFromString decodes arbitrary length hex, as used for messages on the command line
func BytesFromString(s string) (Bytes, error) {
	return fasthex.DecodeString(s)
}

func (b Bytes) String() string {
	return fasthex.EncodeToString(b)
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return marshalQuotedHex(b), nil
}

func (b *Bytes) UnmarshalJSON(buf []byte) error {
	if string(buf) == "null" {
		*b = nil
		return nil
	}
	if len(buf) < 2 || len(buf)%2 != 0 || buf[0] != '"' || buf[len(buf)-1] != '"' {
		return errors.New("invalid bytes")
	}
	*b = make(Bytes, (len(buf)-2)/2)
	return unmarshalQuotedHex(*b, "bytes", buf)
}
