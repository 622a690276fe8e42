// Package gcm attests AES-128 GCM encryption as a chain of phase ordered steps.
//
// A chain is one base step, any number of authenticated data steps, any number of
// encryption steps and exactly one final step checking the tag.
// Plaintext and authenticated data are processed in whole blocks.
package gcm

import (
	"encoding/binary"
	"fmt"

	"git.gammaspectra.live/P2Pool/aes-attest/aes128"
	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/block"
	"git.gammaspectra.live/P2Pool/aes-attest/gf128"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"lukechampine.com/uint128"
)

const ProgramName = "aes128-gcm"

const (
	StepBase     = "base"
	StepAuthData = "auth_data"
	StepEncrypt  = "encrypt"
	StepFinal    = "final"
)

var (
	ErrFinalized  = fmt.Errorf("%w: chain is finalized", attest.ErrConsistency)
	ErrPhaseOrder = fmt.Errorf("%w: authenticated data after encryption", attest.ErrConsistency)
)

type PublicInput struct {
	Tag types.Block `json:"tag"`
	// IV initial counter block J0, data blocks use IV+1 onwards and IV masks the tag
	IV types.Block `json:"iv"`
	// CipherOf0 encryption of the zero block, the GHASH subkey H
	CipherOf0 types.Block `json:"cipherOf0"`
}

func (i PublicInput) AppendBinary(buf []byte) ([]byte, error) {
	buf = append(buf, i.Tag[:]...)
	buf = append(buf, i.IV[:]...)
	return append(buf, i.CipherOf0[:]...), nil
}

type PublicOutput struct {
	// PartialTag GHASH accumulator, the tag itself once Final is set
	PartialTag    types.Block `json:"partialTag"`
	DataCounter   types.Block `json:"dataCounter"`
	AuthBlocks    uint64      `json:"authBlocks"`
	KeyCommitment types.Hash  `json:"keyCommitment"`
	Final         bool        `json:"final"`
}

func (o PublicOutput) AppendBinary(buf []byte) ([]byte, error) {
	buf = append(buf, o.PartialTag[:]...)
	buf = append(buf, o.DataCounter[:]...)
	buf = binary.AppendUvarint(buf, o.AuthBlocks)
	buf = append(buf, o.KeyCommitment[:]...)
	if o.Final {
		return append(buf, 1), nil
	}
	return append(buf, 0), nil
}

type Attestation = attest.Attestation[PublicInput, PublicOutput]

// GHASHMul x * h in GF(2^128)
func GHASHMul(x, h types.Block) types.Block {
	return gf128.MulBlock(x, h)
}

// fold One GHASH absorption of b into the accumulator
func fold(acc, b, h types.Block) types.Block {
	return GHASHMul(acc.Xor(b), h)
}

// LengthBlock Bit lengths of authenticated data (top) and ciphertext (bottom)
func LengthBlock(authBlocks, cipherBlocks uint64) types.Block {
	return types.BlockFromUint128(uint128.New(cipherBlocks*types.BlockSize*8, authBlocks*types.BlockSize*8))
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

// extend Checks common to every step after the base
func (p *Program) extend(input PublicInput, prev *Attestation) error {
	if err := attest.Verify(p.Sealer, prev); err != nil {
		return err
	}
	if err := attest.Equal("program", prev.Program, ProgramName); err != nil {
		return err
	}
	if prev.Output.Final {
		return ErrFinalized
	}
	if err := attest.Equal("iv", input.IV, prev.Input.IV); err != nil {
		return err
	}
	if err := attest.Equal("cipherOf0", input.CipherOf0, prev.Input.CipherOf0); err != nil {
		return err
	}
	return attest.Equal("tag", input.Tag, prev.Input.Tag)
}

// Base Setup step, checks CipherOf0 and commits to key
func (p *Program) Base(input PublicInput, key types.Block) (*Attestation, error) {
	if err := attest.Equal("cipherOf0", p.Cache.Get(key).Encrypt(types.ZeroBlock), input.CipherOf0); err != nil {
		return nil, err
	}
	return attest.New(p.Sealer, ProgramName, StepBase, input, PublicOutput{
		DataCounter:   input.IV.Add(1),
		KeyCommitment: block.CommitKey(key),
	}, nil)
}

// AuthData Folds one block of authenticated data. Must precede every Encrypt step
func (p *Program) AuthData(input PublicInput, prev *Attestation, auth, key types.Block) (*Attestation, error) {
	if err := p.extend(input, prev); err != nil {
		return nil, err
	}
	if err := attest.Equal("key commitment", block.CommitKey(key), prev.Output.KeyCommitment); err != nil {
		return nil, err
	}
	if prev.Output.DataCounter != input.IV.Add(1) {
		return nil, ErrPhaseOrder
	}

	output := prev.Output
	output.PartialTag = fold(output.PartialTag, auth, input.CipherOf0)
	output.AuthBlocks++

	return attest.New(p.Sealer, ProgramName, StepAuthData, input, output, prev)
}

// Encrypt Encrypts message under the current data counter and folds the resulting cipher
func (p *Program) Encrypt(input PublicInput, prev *Attestation, message, key types.Block) (a *Attestation, cipher types.Block, err error) {
	if err = p.extend(input, prev); err != nil {
		return nil, cipher, err
	}
	if err = attest.Equal("key commitment", block.CommitKey(key), prev.Output.KeyCommitment); err != nil {
		return nil, cipher, err
	}

	output := prev.Output
	cipher = message.Xor(p.Cache.Get(key).Encrypt(output.DataCounter))
	output.PartialTag = fold(output.PartialTag, cipher, input.CipherOf0)
	output.DataCounter = output.DataCounter.Add(1)

	a, err = attest.New(p.Sealer, ProgramName, StepEncrypt, input, output, prev)
	if err != nil {
		return nil, cipher, err
	}
	return a, cipher, nil
}

// Final Folds the length block, masks with E(IV) and checks the result equals input.Tag
func (p *Program) Final(input PublicInput, prev *Attestation, key types.Block) (*Attestation, error) {
	if err := p.extend(input, prev); err != nil {
		return nil, err
	}
	if err := attest.Equal("key commitment", block.CommitKey(key), prev.Output.KeyCommitment); err != nil {
		return nil, err
	}

	output := prev.Output
	cipherBlocks := output.DataCounter.Sub(input.IV.Add(1))
	tag := fold(output.PartialTag, LengthBlock(output.AuthBlocks, cipherBlocks), input.CipherOf0)
	tag = tag.Xor(p.Cache.Get(key).Encrypt(input.IV))
	if err := attest.Equal("tag", tag, input.Tag); err != nil {
		return nil, err
	}
	output.PartialTag = tag
	output.Final = true

	return attest.New(p.Sealer, ProgramName, StepFinal, input, output, prev)
}
