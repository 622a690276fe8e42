// Package block attests single AES-128 block encryptions.
package block

import (
	"git.gammaspectra.live/P2Pool/aes-attest/aes128"
	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
)

const (
	ProgramName          = "aes128-block"
	ProgramNameDisclosed = "aes128-block-disclosed"
	ProgramNameStaged    = "aes128-block-staged"
)

const (
	keyCommitmentDomain   = "aes128/key"
	stateCommitmentDomain = "aes128/state"
)

// StageSplit Last round of the first stage in a staged proof
const StageSplit = aes128.Rounds - 2

// CommitKey One-way commitment to key, comparable across steps without revealing the key
func CommitKey(key types.Block) types.Hash {
	return attest.Commit(keyCommitmentDomain, key[:])
}

func commitState(state aes128.State, keyCommitment types.Hash) types.Hash {
	return attest.Commit(stateCommitmentDomain, state[:], keyCommitment[:])
}

// Input Public cipher, message and key hidden
type Input struct {
	Cipher types.Block `json:"cipher"`
}

func (i Input) AppendBinary(buf []byte) ([]byte, error) {
	return append(buf, i.Cipher[:]...), nil
}

// DisclosedInput Public cipher and message, key bound by commitment
type DisclosedInput struct {
	Cipher        types.Block `json:"cipher"`
	Message       types.Block `json:"message"`
	KeyCommitment types.Hash  `json:"key_commitment"`
}

func (i DisclosedInput) AppendBinary(buf []byte) ([]byte, error) {
	buf = append(buf, i.Cipher[:]...)
	buf = append(buf, i.Message[:]...)
	return append(buf, i.KeyCommitment[:]...), nil
}

type Empty struct{}

func (Empty) AppendBinary(buf []byte) ([]byte, error) {
	return buf, nil
}

// StageOutput Commitment to the hidden intermediate state after the first stage
type StageOutput struct {
	StateCommitment types.Hash `json:"state_commitment"`
	KeyCommitment   types.Hash `json:"key_commitment"`
}

func (o StageOutput) AppendBinary(buf []byte) ([]byte, error) {
	buf = append(buf, o.StateCommitment[:]...)
	return append(buf, o.KeyCommitment[:]...), nil
}

type Attestation = attest.Attestation[Input, Empty]
type DisclosedAttestation = attest.Attestation[DisclosedInput, Empty]
type StagedAttestation = attest.Attestation[Input, StageOutput]

type Program struct {
	Sealer attest.Sealer
	Cache  *aes128.Cache
}

func NewProgram(sealer attest.Sealer) *Program {
	return &Program{
		Sealer: sealer,
		Cache:  aes128.NewCache(16),
	}
}

// Prove Attests input.Cipher is the encryption of a hidden message under a hidden key
func (p *Program) Prove(input Input, message, key types.Block) (*Attestation, error) {
	cipher := p.Cache.Get(key).Encrypt(message)
	if err := attest.Equal("cipher", cipher, input.Cipher); err != nil {
		return nil, err
	}
	return attest.New(p.Sealer, ProgramName, "verify", input, Empty{}, nil)
}

// ProveDisclosed Attests input.Cipher is the encryption of the public input.Message under the committed key.
// Used for counter blocks, where the message is not secret
func (p *Program) ProveDisclosed(input DisclosedInput, key types.Block) (*DisclosedAttestation, error) {
	if err := attest.Equal("key commitment", CommitKey(key), input.KeyCommitment); err != nil {
		return nil, err
	}
	cipher := p.Cache.Get(key).Encrypt(input.Message)
	if err := attest.Equal("cipher", cipher, input.Cipher); err != nil {
		return nil, err
	}
	return attest.New(p.Sealer, ProgramNameDisclosed, "verify", input, Empty{}, nil)
}

// ProveStaged Splits one encryption into two chained attestations, rounds [0, StageSplit] and (StageSplit, Rounds]
func (p *Program) ProveStaged(input Input, message, key types.Block) (stageOne, stageTwo *StagedAttestation, err error) {
	c := p.Cache.Get(key)
	keyCommitment := CommitKey(key)

	intermediate := c.EncryptRounds(aes128.StateFromBlock(message), 0, StageSplit)
	stageOne, err = attest.New(p.Sealer, ProgramNameStaged, "stage_one", input, StageOutput{
		StateCommitment: commitState(intermediate, keyCommitment),
		KeyCommitment:   keyCommitment,
	}, nil)
	if err != nil {
		return nil, nil, err
	}

	stageTwo, err = p.ProveStageTwo(input, stageOne, intermediate, key)
	if err != nil {
		return nil, nil, err
	}
	return stageOne, stageTwo, nil
}

// ProveStageTwo Finishes a staged proof from the hidden intermediate state committed in stageOne
func (p *Program) ProveStageTwo(input Input, stageOne *StagedAttestation, intermediate aes128.State, key types.Block) (*StagedAttestation, error) {
	if err := attest.Verify(p.Sealer, stageOne); err != nil {
		return nil, err
	}
	if err := attest.Equal("step", stageOne.Step, "stage_one"); err != nil {
		return nil, err
	}
	if err := attest.Equal("cipher", input.Cipher, stageOne.Input.Cipher); err != nil {
		return nil, err
	}
	keyCommitment := CommitKey(key)
	if err := attest.Equal("key commitment", keyCommitment, stageOne.Output.KeyCommitment); err != nil {
		return nil, err
	}
	if err := attest.EqualHidden("state commitment", commitState(intermediate, keyCommitment), stageOne.Output.StateCommitment); err != nil {
		return nil, err
	}

	cipher := p.Cache.Get(key).EncryptRounds(intermediate, StageSplit+1, aes128.Rounds).Block()
	if err := attest.Equal("cipher", cipher, input.Cipher); err != nil {
		return nil, err
	}

	utils.Debugf("Block", "staged proof for cipher %s complete", input.Cipher)

	return attest.New(p.Sealer, ProgramNameStaged, "stage_two", input, StageOutput{
		StateCommitment: stageOne.Output.StateCommitment,
		KeyCommitment:   keyCommitment,
	}, stageOne)
}

// Verify Checks a hidden-message attestation for cipher
func (p *Program) Verify(a *Attestation, cipher types.Block) error {
	if err := attest.Verify(p.Sealer, a); err != nil {
		return err
	}
	if err := attest.Equal("program", a.Program, ProgramName); err != nil {
		return err
	}
	return attest.Equal("cipher", a.Input.Cipher, cipher)
}

// VerifyDisclosed Checks a disclosed-message attestation
func (p *Program) VerifyDisclosed(a *DisclosedAttestation) error {
	if err := attest.Verify(p.Sealer, a); err != nil {
		return err
	}
	return attest.Equal("program", a.Program, ProgramNameDisclosed)
}

// VerifyStaged Checks both stages of a staged proof for cipher
func (p *Program) VerifyStaged(stageOne, stageTwo *StagedAttestation, cipher types.Block) error {
	return attest.VerifyChain(p.Sealer, []*StagedAttestation{stageOne, stageTwo}, func(prev, next *StagedAttestation) error {
		if err := attest.Equal("program", next.Program, ProgramNameStaged); err != nil {
			return err
		}
		if err := attest.Equal("cipher", next.Input.Cipher, cipher); err != nil {
			return err
		}
		if prev == nil {
			return attest.Equal("step", next.Step, "stage_one")
		}
		if err := attest.Equal("step", next.Step, "stage_two"); err != nil {
			return err
		}
		if err := attest.Equal("key commitment", next.Output.KeyCommitment, prev.Output.KeyCommitment); err != nil {
			return err
		}
		return attest.Equal("state commitment", next.Output.StateCommitment, prev.Output.StateCommitment)
	})
}
