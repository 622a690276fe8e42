package attest

import (
	"encoding/binary"

	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
)

// Record A public input or output record, encoded canonically into the sealed transcript
type Record interface {
	AppendBinary(preAllocatedBuf []byte) (data []byte, err error)
}

// Attestation One sealed chain step. Index 0 is a base step with an empty Previous,
// every following step seals Previous = Seal of the step it extends
type Attestation[I, O Record] struct {
	Program  string     `json:"program"`
	Step     string     `json:"step"`
	Index    uint64     `json:"index"`
	Input    I          `json:"input"`
	Output   O          `json:"output"`
	Previous types.Hash `json:"previous"`
	Seal     types.Hash `json:"seal"`
}

func (a *Attestation[I, O]) IsBase() bool {
	return a.Index == 0
}

// Transcript Canonical encoding of everything the seal binds
func (a *Attestation[I, O]) Transcript() (buf []byte, err error) {
	buf = make([]byte, 0, 256)
	buf = utils.AppendLengthPrefixed(buf, a.Program)
	buf = utils.AppendLengthPrefixed(buf, a.Step)
	buf = binary.AppendUvarint(buf, a.Index)
	buf = append(buf, a.Previous[:]...)
	if buf, err = a.Input.AppendBinary(buf); err != nil {
		return nil, err
	}
	if buf, err = a.Output.AppendBinary(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// New Seals a step. prev is nil for a base step
func New[I, O Record](sealer Sealer, program, step string, input I, output O, prev *Attestation[I, O]) (*Attestation[I, O], error) {
	a := &Attestation[I, O]{
		Program: program,
		Step:    step,
		Input:   input,
		Output:  output,
	}
	if prev != nil {
		a.Index = prev.Index + 1
		a.Previous = prev.Seal
	}

	transcript, err := a.Transcript()
	if err != nil {
		return nil, err
	}
	if a.Seal, err = sealer.Seal(transcript); err != nil {
		return nil, err
	}
	return a, nil
}

// Verify Checks the seal of a single attestation
func Verify[I, O Record](sealer Sealer, a *Attestation[I, O]) error {
	if a == nil {
		return Shape("missing attestation")
	}
	transcript, err := a.Transcript()
	if err != nil {
		return err
	}
	return sealer.Verify(transcript, a.Seal)
}

// VerifyLink Checks next directly extends prev
func VerifyLink[I, O Record](prev, next *Attestation[I, O]) error {
	if err := Equal("program", next.Program, prev.Program); err != nil {
		return err
	}
	if err := Equal("index", next.Index, prev.Index+1); err != nil {
		return err
	}
	return Equal("previous seal", next.Previous, prev.Seal)
}
