package attest

import (
	"hash"
	"io"

	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"golang.org/x/crypto/sha3"
)

type hashReader interface {
	hash.Hash
	io.Reader
}

//go:nosplit
func newKeccak256() hashReader {
	//nolint:forcetypeassert
	return sha3.NewLegacyKeccak256().(hashReader)
}

func Keccak256Var[T ~string | ~[]byte](data ...T) (result types.Hash) {
	h := newKeccak256()
	for _, b := range data {
		_, _ = h.Write([]byte(b))
	}
	_, _ = h.Read(result[:types.HashSize])

	return
}

func Keccak256[T ~string | ~[]byte](data T) (result types.Hash) {
	h := newKeccak256()
	_, _ = h.Write([]byte(data))
	_, _ = h.Read(result[:types.HashSize])

	return
}

// Commit One-way commitment to hidden data under a domain separator
func Commit(domain string, data ...[]byte) types.Hash {
	h := newKeccak256()
	_, _ = h.Write([]byte(domain))
	_, _ = h.Write([]byte{0})
	for _, b := range data {
		_, _ = h.Write(b)
	}
	var result types.Hash
	_, _ = h.Read(result[:])
	return result
}
