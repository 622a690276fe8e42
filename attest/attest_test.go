package attest

import (
	"encoding/binary"
	"errors"
	"testing"

	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"github.com/stretchr/testify/require"
)

type counterRecord struct {
	Counter uint64 `json:"counter"`
}

func (r counterRecord) AppendBinary(buf []byte) ([]byte, error) {
	return binary.AppendUvarint(buf, r.Counter), nil
}

var testSealer = NewKeccakSealer(Keccak256("test sealer"))

func buildChain(t *testing.T, n int) []*Attestation[counterRecord, counterRecord] {
	t.Helper()
	var chain []*Attestation[counterRecord, counterRecord]
	var prev *Attestation[counterRecord, counterRecord]
	for i := range n {
		step := "inductive"
		if i == 0 {
			step = "base"
		}
		a, err := New(testSealer, "counter", step, counterRecord{uint64(i)}, counterRecord{uint64(i + 1)}, prev)
		require.NoError(t, err)
		chain = append(chain, a)
		prev = a
	}
	return chain
}

func counterCheck(prev, next *Attestation[counterRecord, counterRecord]) error {
	if prev == nil {
		return Equal("counter", next.Input.Counter, 0)
	}
	return Equal("counter", next.Input.Counter, prev.Output.Counter)
}

func TestVerifyChain(t *testing.T) {
	chain := buildChain(t, 5)
	require.True(t, chain[0].IsBase())
	require.Equal(t, uint64(4), chain[4].Index)
	require.Equal(t, chain[3].Seal, chain[4].Previous)

	require.NoError(t, VerifyChain(testSealer, chain, counterCheck))
}

func TestVerifyChain_Tampered(t *testing.T) {
	chain := buildChain(t, 3)
	chain[1].Output.Counter = 7

	err := VerifyChain(testSealer, chain, counterCheck)
	require.ErrorIs(t, err, ErrInvalidSeal)
}

func TestVerifyChain_WrongSealer(t *testing.T) {
	chain := buildChain(t, 2)
	err := VerifyChain(NewKeccakSealer(types.ZeroHash), chain, nil)
	require.ErrorIs(t, err, ErrInvalidSeal)
}

func TestVerifyChain_Reordered(t *testing.T) {
	chain := buildChain(t, 3)
	chain[1], chain[2] = chain[2], chain[1]

	err := VerifyChain(testSealer, chain, nil)
	require.ErrorIs(t, err, ErrConsistency)
}

func TestVerifyChain_MissingBase(t *testing.T) {
	chain := buildChain(t, 3)
	err := VerifyChain(testSealer, chain[1:], nil)
	require.ErrorIs(t, err, ErrConsistency)

	require.ErrorIs(t, VerifyChain[counterRecord, counterRecord](testSealer, nil, nil), ErrInputShape)
}

func TestVerifyChain_Check(t *testing.T) {
	chain := buildChain(t, 3)
	expected := errors.New("rejected")
	err := VerifyChain(testSealer, chain, func(prev, next *Attestation[counterRecord, counterRecord]) error {
		if next.Index == 2 {
			return expected
		}
		return nil
	})
	require.ErrorIs(t, err, expected)
}

func TestSealSet(t *testing.T) {
	s := NewSealSet(0)
	seal := Keccak256("seal")
	require.NoError(t, s.Add(seal, 0))
	require.True(t, s.Has(seal))
	require.ErrorIs(t, s.Add(seal, 1), ErrConsistency)
	require.Equal(t, 1, s.Count())
}

func TestEqual(t *testing.T) {
	require.NoError(t, Equal("counter", 1, 1))
	err := Equal("counter", 2, 1)
	require.ErrorIs(t, err, ErrConsistency)
	require.Contains(t, err.Error(), "counter mismatch: have 2, want 1")

	err = EqualHidden("key", "secret", "other")
	require.ErrorIs(t, err, ErrConsistency)
	require.NotContains(t, err.Error(), "secret")

	require.ErrorIs(t, Check(false, "phase %s", "final"), ErrConsistency)
	require.ErrorIs(t, Shape("bad"), ErrInputShape)
}

func TestKeccak256(t *testing.T) {
	// Keccak-256 of the empty string
	require.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256("").String())
	require.Equal(t, Keccak256("ab"), Keccak256Var("a", "b"))
	require.NotEqual(t, Commit("a", []byte("b")), Commit("ab"))
}
