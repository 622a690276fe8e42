package ctr

import (
	"crypto/subtle"
	"fmt"

	"git.gammaspectra.live/P2Pool/aes-attest/aes128"
	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/block"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
)

// Keystream Encryptions of the counter blocks iv+first ... iv+first+n-1, computed across workers goroutines
func Keystream(c *aes128.Cipher, iv types.Block, first uint64, n int, workers int) []types.Block {
	keystream := make([]types.Block, n)
	if n == 0 {
		return keystream
	}
	if err := utils.SplitWork(workers, uint64(n), func(workIndex uint64, routineIndex int) error {
		keystream[workIndex] = c.EncryptTable(iv.Add(first + workIndex))
		return nil
	}, nil); err != nil {
		utils.Panicf("ctr: keystream: %s", err)
	}
	return keystream
}

// XORKeyStream Plain counter mode over src of any length, counter blocks are iv, iv+1, ...
// as a big-endian 128-bit integer. dst must be at least len(src), and may alias src exactly
func XORKeyStream(dst, src []byte, key, iv types.Block) {
	if len(dst) < len(src) {
		utils.Panicf("ctr: output smaller than input")
	}
	c := aes128.NewCipher(key)
	n := (len(src) + types.BlockSize - 1) / types.BlockSize
	keystream := Keystream(c, iv, 0, n, 0)
	for i, ks := range keystream {
		offset := i * types.BlockSize
		end := min(offset+types.BlockSize, len(src))
		subtle.XORBytes(dst[offset:end], src[offset:end], ks[:end-offset])
	}
}

// Encrypt Encrypts plaintext and returns the ciphertext with one attestation per block.
// plaintext must be a non-empty multiple of the block size
func (p *Program) Encrypt(key, iv types.Block, plaintext []byte) (ciphertext []byte, chain []*Attestation, err error) {
	if len(plaintext) == 0 {
		return nil, nil, attest.Shape("empty plaintext")
	}
	messages, err := types.BlocksFromBytes(plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", attest.ErrInputShape, err)
	}

	keystream := Keystream(p.Cache.Get(key), iv, 0, len(messages), p.Workers)

	keyCommitment := CommitKey(key)
	chain = make([]*Attestation, 0, len(messages))
	ciphers := make([]types.Block, len(messages))

	var prev *Attestation
	for i, message := range messages {
		ciphers[i] = message.Xor(keystream[i])
		input := PublicInput{
			Cipher:        ciphers[i],
			IV:            iv,
			KeyCommitment: keyCommitment,
			Counter:       uint64(i),
		}

		var a *Attestation
		if prev == nil {
			a, err = p.Base(input, message, key)
		} else {
			a, err = p.Inductive(input, prev, message, key)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("block %d: %w", i, err)
		}
		chain = append(chain, a)
		prev = a
	}

	utils.Debugf("CTR", "attested %d blocks, key commitment %s, cipher commitment %s", len(chain), keyCommitment, prev.Output.CipherCommitment)
	if utils.IsLogLevelDebug() {
		if buf, err := utils.MarshalJSON(prev); err == nil {
			utils.Debugf("CTR", "last step %s", buf)
		}
	}

	return types.BlocksToBytes(ciphers), chain, nil
}

// VerifyChain Checks chain attests ciphertext under iv, and returns the key commitment all steps share
func (p *Program) VerifyChain(chain []*Attestation, iv types.Block, ciphertext []byte) (keyCommitment types.Hash, err error) {
	ciphers, err := types.BlocksFromBytes(ciphertext)
	if err != nil {
		return types.ZeroHash, fmt.Errorf("%w: %w", attest.ErrInputShape, err)
	}
	if len(chain) != len(ciphers) {
		return types.ZeroHash, attest.Shape("chain has %d steps for %d ciphertext blocks", len(chain), len(ciphers))
	}

	err = attest.VerifyChain(p.Sealer, chain, func(prev, next *Attestation) error {
		if err := attest.Equal("program", next.Program, ProgramName); err != nil {
			return err
		}
		if err := attest.Equal("iv", next.Input.IV, iv); err != nil {
			return err
		}
		if err := attest.Equal("cipher", next.Input.Cipher, ciphers[next.Index]); err != nil {
			return err
		}

		previousCommitment := types.ZeroHash
		if prev == nil {
			if err := attest.Equal("step", next.Step, StepBase); err != nil {
				return err
			}
			if err := attest.Equal("counter", next.Input.Counter, 0); err != nil {
				return err
			}
		} else {
			if err := attest.Equal("step", next.Step, StepInductive); err != nil {
				return err
			}
			if err := attest.Equal("counter", next.Input.Counter, prev.Input.Counter+1); err != nil {
				return err
			}
			if err := attest.Equal("key commitment", next.Input.KeyCommitment, prev.Input.KeyCommitment); err != nil {
				return err
			}
			previousCommitment = prev.Output.CipherCommitment
		}
		return attest.Equal("cipher commitment", next.Output.CipherCommitment, CommitCipher(previousCommitment, next.Input.Cipher))
	})
	if err != nil {
		return types.ZeroHash, err
	}

	last := chain[len(chain)-1]
	if err = attest.Equal("ciphertext commitment", last.Output.CipherCommitment, CommitCiphertext(ciphers)); err != nil {
		return types.ZeroHash, err
	}
	return last.Input.KeyCommitment, nil
}

// ProveKeystream Disclosed single block attestations of every keystream block iv+i, for VerifyIndependent
func ProveKeystream(blocks *block.Program, key, iv types.Block, n int) ([]*block.DisclosedAttestation, error) {
	c := blocks.Cache.Get(key)
	keyCommitment := CommitKey(key)
	proofs := make([]*block.DisclosedAttestation, n)
	for i := range proofs {
		counter := iv.Add(uint64(i))
		proof, err := blocks.ProveDisclosed(block.DisclosedInput{
			Cipher:        c.Encrypt(counter),
			Message:       counter,
			KeyCommitment: keyCommitment,
		}, key)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		proofs[i] = proof
	}
	return proofs, nil
}

// VerifyIndependent Checks plaintext and ciphertext are related by counter mode under keyCommitment,
// given one independently verifiable keystream attestation per block. Unlike VerifyChain the
// proofs carry no order, so every block is checked against its own counter value
func VerifyIndependent(blocks *block.Program, proofs []*block.DisclosedAttestation, keyCommitment types.Hash, iv types.Block, plaintext, ciphertext []byte) error {
	messages, err := types.BlocksFromBytes(plaintext)
	if err != nil {
		return fmt.Errorf("%w: %w", attest.ErrInputShape, err)
	}
	ciphers, err := types.BlocksFromBytes(ciphertext)
	if err != nil {
		return fmt.Errorf("%w: %w", attest.ErrInputShape, err)
	}
	if len(messages) != len(ciphers) || len(proofs) != len(ciphers) {
		return attest.Shape("%d proofs for %d plaintext and %d ciphertext blocks", len(proofs), len(messages), len(ciphers))
	}

	seen := attest.NewSealSet(len(proofs))
	for i, proof := range proofs {
		if err = blocks.VerifyDisclosed(proof); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if err = seen.Add(proof.Seal, uint64(i)); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if err = attest.Equal("key commitment", proof.Input.KeyCommitment, keyCommitment); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if err = attest.Equal("counter block", proof.Input.Message, iv.Add(uint64(i))); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if err = attest.Equal("cipher", messages[i].Xor(proof.Input.Cipher), ciphers[i]); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	return nil
}

// KeystreamRoot Merkle root over the seals of keystream proofs, in block order
func KeystreamRoot(proofs []*block.DisclosedAttestation) types.Hash {
	tree := make(attest.MerkleTree, len(proofs))
	for i, proof := range proofs {
		tree[i] = proof.Seal
	}
	return tree.RootHash()
}

// KeystreamBranch Merkle branch of proof index within proofs, see VerifyKeystreamBlock
func KeystreamBranch(proofs []*block.DisclosedAttestation, index int) attest.MerkleProof {
	tree := make(attest.MerkleTree, len(proofs))
	for i, proof := range proofs {
		tree[i] = proof.Seal
	}
	return tree.Branch(index)
}

// VerifyKeystreamBlock Checks a single block of a message against a published keystream root,
// without the proofs of the other count-1 blocks
func VerifyKeystreamBlock(blocks *block.Program, proof *block.DisclosedAttestation, branch attest.MerkleProof, index, count int, root, keyCommitment types.Hash, iv, message, cipher types.Block) error {
	if err := blocks.VerifyDisclosed(proof); err != nil {
		return err
	}
	if !branch.Verify(proof.Seal, index, count, root) {
		return fmt.Errorf("%w: block %d of %d is not under keystream root %s", attest.ErrConsistency, index, count, root)
	}
	if err := attest.Equal("key commitment", proof.Input.KeyCommitment, keyCommitment); err != nil {
		return err
	}
	if err := attest.Equal("counter block", proof.Input.Message, iv.Add(uint64(index))); err != nil {
		return err
	}
	return attest.Equal("cipher", message.Xor(proof.Input.Cipher), cipher)
}
