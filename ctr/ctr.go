// Package ctr attests AES-128 counter mode encryption as a chain of per-block steps.
//
// Every step binds one ciphertext block to the IV, the block counter and a commitment
// to the key. The key itself never appears in a public record.
package ctr

import (
	"encoding/binary"

	"git.gammaspectra.live/P2Pool/aes-attest/aes128"
	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/block"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
)

const ProgramName = "aes128-ctr"

const (
	StepBase      = "base"
	StepInductive = "inductive"
)

const cipherCommitmentDomain = "aes128-ctr/cipher"

type PublicInput struct {
	Cipher        types.Block `json:"cipher"`
	IV            types.Block `json:"iv"`
	KeyCommitment types.Hash  `json:"key_commitment"`
	Counter       uint64      `json:"counter"`
}

func (i PublicInput) AppendBinary(buf []byte) ([]byte, error) {
	buf = append(buf, i.Cipher[:]...)
	buf = append(buf, i.IV[:]...)
	buf = append(buf, i.KeyCommitment[:]...)
	return binary.AppendUvarint(buf, i.Counter), nil
}

type PublicOutput struct {
	// CipherCommitment running commitment over every ciphertext block up to and including this step
	CipherCommitment types.Hash `json:"cipher_commitment"`
}

func (o PublicOutput) AppendBinary(buf []byte) ([]byte, error) {
	return append(buf, o.CipherCommitment[:]...), nil
}

type Attestation = attest.Attestation[PublicInput, PublicOutput]

// CommitKey See block.CommitKey
func CommitKey(key types.Block) types.Hash {
	return block.CommitKey(key)
}

// CommitCipher Extends the running commitment prev with the next ciphertext block.
// The first block extends types.ZeroHash
func CommitCipher(prev types.Hash, cipher types.Block) types.Hash {
	return attest.Commit(cipherCommitmentDomain, prev[:], cipher[:])
}

// CommitCiphertext Running commitment over a whole ciphertext, as recorded by the last chain step
func CommitCiphertext(blocks []types.Block) (commitment types.Hash) {
	for _, b := range blocks {
		commitment = CommitCipher(commitment, b)
	}
	return commitment
}

type Program struct {
	Sealer attest.Sealer
	Cache  *aes128.Cache

	// Workers number of keystream goroutines, <= 0 picks one per CPU
	Workers int
}

func NewProgram(sealer attest.Sealer) *Program {
	return &Program{
		Sealer: sealer,
		Cache:  aes128.NewCache(16),
	}
}

func (p *Program) checkCipher(input PublicInput, message, key types.Block) error {
	keystream := p.Cache.Get(key).Encrypt(input.IV.Add(input.Counter))
	return attest.Equal("cipher", message.Xor(keystream), input.Cipher)
}

// Base First step of a chain, counter 0
func (p *Program) Base(input PublicInput, message, key types.Block) (*Attestation, error) {
	if err := attest.Equal("counter", input.Counter, 0); err != nil {
		return nil, err
	}
	if err := attest.Equal("key commitment", CommitKey(key), input.KeyCommitment); err != nil {
		return nil, err
	}
	if err := p.checkCipher(input, message, key); err != nil {
		return nil, err
	}

	return attest.New(p.Sealer, ProgramName, StepBase, input, PublicOutput{
		CipherCommitment: CommitCipher(types.ZeroHash, input.Cipher),
	}, nil)
}

// Inductive Extends prev with the next block
func (p *Program) Inductive(input PublicInput, prev *Attestation, message, key types.Block) (*Attestation, error) {
	if err := attest.Verify(p.Sealer, prev); err != nil {
		return nil, err
	}
	if err := attest.Equal("program", prev.Program, ProgramName); err != nil {
		return nil, err
	}
	if err := attest.Equal("iv", input.IV, prev.Input.IV); err != nil {
		return nil, err
	}
	if err := attest.Equal("key commitment", input.KeyCommitment, prev.Input.KeyCommitment); err != nil {
		return nil, err
	}
	if err := attest.Equal("key commitment", CommitKey(key), input.KeyCommitment); err != nil {
		return nil, err
	}
	if err := attest.Equal("counter", input.Counter, prev.Input.Counter+1); err != nil {
		return nil, err
	}
	if err := p.checkCipher(input, message, key); err != nil {
		return nil, err
	}

	return attest.New(p.Sealer, ProgramName, StepInductive, input, PublicOutput{
		CipherCommitment: CommitCipher(prev.Output.CipherCommitment, input.Cipher),
	}, prev)
}
