package gcm

import (
	"fmt"

	"git.gammaspectra.live/P2Pool/aes-attest/aes128"
	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/block"
	"git.gammaspectra.live/P2Pool/aes-attest/ctr"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
)

const NonceSize = 12

// IVFromNonce nonce || 00000001, the initial counter block of GCM with a 96-bit nonce
func IVFromNonce(nonce [NonceSize]byte) (iv types.Block) {
	copy(iv[:], nonce[:])
	iv[types.BlockSize-1] = 1
	return iv
}

func splitBlocks(what string, buf []byte) ([]types.Block, error) {
	blocks, err := types.BlocksFromBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", attest.ErrInputShape, what, err)
	}
	return blocks, nil
}

// ComputeTag Authentication tag of aad and ciphertext, both whole blocks
func ComputeTag(key, iv types.Block, aad, ciphertext []byte) (tag types.Block, err error) {
	aadBlocks, err := splitBlocks("authenticated data", aad)
	if err != nil {
		return tag, err
	}
	ciphers, err := splitBlocks("ciphertext", ciphertext)
	if err != nil {
		return tag, err
	}

	c := aes128.NewCipher(key)
	h := c.Encrypt(types.ZeroBlock)

	for _, b := range aadBlocks {
		tag = fold(tag, b, h)
	}
	for _, b := range ciphers {
		tag = fold(tag, b, h)
	}
	tag = fold(tag, LengthBlock(uint64(len(aadBlocks)), uint64(len(ciphers))), h)
	return tag.Xor(c.Encrypt(iv)), nil
}

// Seal Encrypts plaintext and authenticates it together with aad, returning the ciphertext,
// the tag and the attestation chain ending in a final step
func (p *Program) Seal(key, iv types.Block, plaintext, aad []byte) (ciphertext []byte, tag types.Block, chain []*Attestation, err error) {
	messages, err := splitBlocks("plaintext", plaintext)
	if err != nil {
		return nil, tag, nil, err
	}
	aadBlocks, err := splitBlocks("authenticated data", aad)
	if err != nil {
		return nil, tag, nil, err
	}

	c := p.Cache.Get(key)
	keystream := ctr.Keystream(c, iv, 1, len(messages), p.Workers)
	ciphers := make([]types.Block, len(messages))
	for i := range messages {
		ciphers[i] = messages[i].Xor(keystream[i])
	}
	ciphertext = types.BlocksToBytes(ciphers)

	// The final step asserts the tag, so it is known before the chain is built
	if tag, err = ComputeTag(key, iv, aad, ciphertext); err != nil {
		return nil, tag, nil, err
	}

	input := PublicInput{
		Tag:       tag,
		IV:        iv,
		CipherOf0: c.Encrypt(types.ZeroBlock),
	}

	chain = make([]*Attestation, 0, len(aadBlocks)+len(messages)+2)
	a, err := p.Base(input, key)
	if err != nil {
		return nil, tag, nil, fmt.Errorf("base: %w", err)
	}
	chain = append(chain, a)

	for i, auth := range aadBlocks {
		if a, err = p.AuthData(input, a, auth, key); err != nil {
			return nil, tag, nil, fmt.Errorf("authenticated data block %d: %w", i, err)
		}
		chain = append(chain, a)
	}

	for i, message := range messages {
		var cipher types.Block
		if a, cipher, err = p.Encrypt(input, a, message, key); err != nil {
			return nil, tag, nil, fmt.Errorf("block %d: %w", i, err)
		}
		if err = attest.Equal("cipher", cipher, ciphers[i]); err != nil {
			return nil, tag, nil, fmt.Errorf("block %d: %w", i, err)
		}
		chain = append(chain, a)
	}

	if a, err = p.Final(input, a, key); err != nil {
		return nil, tag, nil, fmt.Errorf("final: %w", err)
	}
	chain = append(chain, a)

	utils.Debugf("GCM", "attested %d authenticated and %d encrypted blocks, tag %s", len(aadBlocks), len(messages), tag)
	if utils.IsLogLevelDebug() {
		if buf, err := utils.MarshalJSON(a); err == nil {
			utils.Debugf("GCM", "final step %s", buf)
		}
	}

	return ciphertext, tag, chain, nil
}

// VerifyChain Checks chain authenticates aad and ciphertext under iv. Returns the tag
// and the key commitment shared by all steps
func (p *Program) VerifyChain(chain []*Attestation, iv types.Block, aad, ciphertext []byte) (tag types.Block, keyCommitment types.Hash, err error) {
	aadBlocks, err := splitBlocks("authenticated data", aad)
	if err != nil {
		return tag, keyCommitment, err
	}
	ciphers, err := splitBlocks("ciphertext", ciphertext)
	if err != nil {
		return tag, keyCommitment, err
	}
	if len(chain) != len(aadBlocks)+len(ciphers)+2 {
		return tag, keyCommitment, attest.Shape("chain has %d steps for %d authenticated and %d encrypted blocks", len(chain), len(aadBlocks), len(ciphers))
	}

	first := iv.Add(1)

	err = attest.VerifyChain(p.Sealer, chain, func(prev, next *Attestation) error {
		if err := attest.Equal("program", next.Program, ProgramName); err != nil {
			return err
		}
		if err := attest.Equal("iv", next.Input.IV, iv); err != nil {
			return err
		}

		if prev == nil {
			if err := attest.Equal("step", next.Step, StepBase); err != nil {
				return err
			}
			return attest.Equal("output", next.Output, PublicOutput{
				DataCounter:   first,
				KeyCommitment: next.Output.KeyCommitment,
			})
		}

		if prev.Output.Final {
			return ErrFinalized
		}
		if err := attest.Equal("input", next.Input, prev.Input); err != nil {
			return err
		}
		if err := attest.Equal("key commitment", next.Output.KeyCommitment, prev.Output.KeyCommitment); err != nil {
			return err
		}

		expected := prev.Output
		h := next.Input.CipherOf0
		switch next.Step {
		case StepAuthData:
			if prev.Output.DataCounter != first {
				return ErrPhaseOrder
			}
			if err := attest.Check(expected.AuthBlocks < uint64(len(aadBlocks)), "more authenticated data steps than blocks"); err != nil {
				return err
			}
			expected.PartialTag = fold(expected.PartialTag, aadBlocks[expected.AuthBlocks], h)
			expected.AuthBlocks++
		case StepEncrypt:
			index := expected.DataCounter.Sub(first)
			if err := attest.Check(index < uint64(len(ciphers)), "more encryption steps than blocks"); err != nil {
				return err
			}
			expected.PartialTag = fold(expected.PartialTag, ciphers[index], h)
			expected.DataCounter = expected.DataCounter.Add(1)
		case StepFinal:
			expected.PartialTag = next.Input.Tag
			expected.Final = true
		default:
			return attest.Check(false, "unknown step %q", next.Step)
		}
		return attest.Equal("output", next.Output, expected)
	})
	if err != nil {
		return tag, keyCommitment, err
	}

	last := chain[len(chain)-1]
	if err = attest.Check(last.Output.Final, "chain is not finalized"); err != nil {
		return tag, keyCommitment, err
	}
	return last.Output.PartialTag, last.Output.KeyCommitment, nil
}

// CommitKey See block.CommitKey
func CommitKey(key types.Block) types.Hash {
	return block.CommitKey(key)
}
