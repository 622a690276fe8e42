package attest

import (
	"fmt"

	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"github.com/dolthub/swiss"
)

// SealSet Seals already accepted within one chain, a repeated seal means a replayed step
type SealSet struct {
	m *swiss.Map[types.Hash, uint64]
}

func NewSealSet(size int) *SealSet {
	return &SealSet{
		m: swiss.NewMap[types.Hash, uint64](uint32(max(size, 1))),
	}
}

func (s *SealSet) Add(seal types.Hash, index uint64) error {
	if previous, ok := s.m.Get(seal); ok {
		return fmt.Errorf("%w: seal %s replayed at index %d, first seen at %d", ErrConsistency, seal, index, previous)
	}
	s.m.Put(seal, index)
	return nil
}

func (s *SealSet) Has(seal types.Hash) bool {
	return s.m.Has(seal)
}

func (s *SealSet) Count() int {
	return s.m.Count()
}

// StepCheck Protocol specific checks of next against the step it extends. prev is nil for the base step
type StepCheck[I, O Record] func(prev, next *Attestation[I, O]) error

// VerifyChain Verifies seals and links of a whole chain in order, calling check for each step
func VerifyChain[I, O Record](sealer Sealer, chain []*Attestation[I, O], check StepCheck[I, O]) error {
	if len(chain) == 0 {
		return Shape("empty chain")
	}

	seen := NewSealSet(len(chain))

	var prev *Attestation[I, O]
	for i, a := range chain {
		if err := Verify(sealer, a); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if prev == nil {
			if err := Equal("base index", a.Index, 0); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			if err := Equal("base previous seal", a.Previous, types.ZeroHash); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		} else if err := VerifyLink(prev, a); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if err := seen.Add(a.Seal, a.Index); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if check != nil {
			if err := check(prev, a); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		prev = a
	}
	return nil
}
