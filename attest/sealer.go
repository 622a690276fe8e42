package attest

import (
	"crypto/subtle"
	"fmt"

	"git.gammaspectra.live/P2Pool/aes-attest/types"
)

// Sealer Produces and checks the opaque certificate binding a step transcript.
// Implementations backed by a proof system replace KeccakSealer without changes to the protocols
type Sealer interface {
	Seal(transcript []byte) (types.Hash, error)
	Verify(transcript []byte, seal types.Hash) error
}

const keccakSealerDomain = "aes-attest/seal/v1"

// KeccakSealer Keyed Keccak-256 over the transcript. Prover and verifier share the key,
// the same way a proof system shares a verification key
type KeccakSealer struct {
	key types.Hash
}

func NewKeccakSealer(key types.Hash) *KeccakSealer {
	return &KeccakSealer{key: key}
}

func (s *KeccakSealer) Seal(transcript []byte) (types.Hash, error) {
	return Commit(keccakSealerDomain, s.key[:], transcript), nil
}

func (s *KeccakSealer) Verify(transcript []byte, seal types.Hash) error {
	expected := Commit(keccakSealerDomain, s.key[:], transcript)
	if subtle.ConstantTimeCompare(expected[:], seal[:]) != 1 {
		return fmt.Errorf("%w: seal %s does not match transcript", ErrInvalidSeal, seal)
	}
	return nil
}
