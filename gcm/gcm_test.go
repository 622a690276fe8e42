package gcm_test

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/gcm"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"pgregory.net/rapid"
)

func assertNoError(t *testing.T, err error, msgAndArgs ...any) {
	if err != nil {
		message := ""
		if len(msgAndArgs) > 0 {
			message = fmt.Sprint(msgAndArgs...) + ": "
		}
		t.Fatalf("%sunexpected err: %s", message, err)
	}
}

func assertErrorIs(t *testing.T, err, target error, msgAndArgs ...any) {
	if !errors.Is(err, target) {
		message := ""
		if len(msgAndArgs) > 0 {
			message = fmt.Sprint(msgAndArgs...) + ": "
		}
		t.Errorf("%sexpected %v, got %v", message, target, err)
	}
}

func assertEqual(t *testing.T, actual, expected any, msgAndArgs ...any) {
	if !reflect.DeepEqual(actual, expected) {
		message := ""
		if len(msgAndArgs) > 0 {
			message = fmt.Sprint(msgAndArgs...) + ": "
		}
		t.Errorf("%sactual: %v expected: %v", message, actual, expected)
	}
}

func mustBytes(s string) []byte {
	b, err := types.BytesFromString(s)
	if err != nil {
		panic(err)
	}
	return b
}

func mustNonce(s string) (nonce [gcm.NonceSize]byte) {
	copy(nonce[:], mustBytes(s))
	return nonce
}

var testSealer = attest.NewKeccakSealer(attest.Keccak256("gcm test"))

// McGrew and Viega, GCM test case 3
var (
	tc3Key        = types.MustBlockFromString("feffe9928665731c6d6a8f9467308308")
	tc3IV         = gcm.IVFromNonce(mustNonce("cafebabefacedbaddecaf888"))
	tc3Plaintext  = mustBytes("d9313225f88406e5a55909c5aff5269a86a7a9531534f7da2e4c303d8a318a721c3c0c95956809532fcf0e2449a6b525b16aedf5aa0de657ba637b391aafd255")
	tc3Ciphertext = "42831ec2217774244b7221b784d0d49ce3aa212f2c02a4e035c17e2329aca12e21d514b25466931c7d8f6a5aac84aa051ba30b396a0aac973d58e091473f5985"
	tc3AAD        = mustBytes("feedfacedeadbeeffeedfacedeadbeef")
)

func TestIVFromNonce(t *testing.T) {
	if tc3IV.String() != "cafebabefacedbaddecaf88800000001" {
		t.Errorf("unexpected iv %s", tc3IV)
	}
}

func TestComputeTag(t *testing.T) {
	zero := types.ZeroBlock
	zeroIV := gcm.IVFromNonce([gcm.NonceSize]byte{})

	vectors := []struct {
		key        types.Block
		iv         types.Block
		aad        []byte
		ciphertext []byte
		tag        string
	}{
		// test cases 1 and 2
		{zero, zeroIV, nil, nil, "58e2fccefa7e3061367f1d57a4e7455a"},
		{zero, zeroIV, nil, mustBytes("0388dace60b6a392f328c2b971b2fe78"), "ab6e47d42cec13bdf53a67b21257bddf"},
		{tc3Key, tc3IV, nil, mustBytes(tc3Ciphertext), "4d5c2af327cd64a62cf35abd2ba6fab4"},
		{tc3Key, tc3IV, tc3AAD, mustBytes(tc3Ciphertext), "02f10806fe1e4bee67d42db661e012ce"},
	}

	for i, v := range vectors {
		tag, err := gcm.ComputeTag(v.key, v.iv, v.aad, v.ciphertext)
		if err != nil {
			t.Fatalf("vector %d: %s", i, err)
		}
		if tag.String() != v.tag {
			t.Errorf("vector %d: tag %s, expected %s", i, tag, v.tag)
		}
	}

	if _, err := gcm.ComputeTag(tc3Key, tc3IV, make([]byte, 20), nil); !errors.Is(err, attest.ErrInputShape) {
		t.Errorf("expected ErrInputShape, got %v", err)
	}
}

func TestLengthBlock(t *testing.T) {
	if b := gcm.LengthBlock(1, 4); b.String() != "00000000000000800000000000000200" {
		t.Errorf("unexpected length block %s", b)
	}
}

func TestProgram(t *testing.T) {
	spec.Run(t, "Program", func(t *testing.T, when spec.G, it spec.S) {
		var p *gcm.Program

		it.Before(func() {
			p = gcm.NewProgram(testSealer)
			p.Workers = 2
		})

		when("sealing", func() {
			it("matches test case 3", func() {
				ciphertext, tag, chain, err := p.Seal(tc3Key, tc3IV, tc3Plaintext, nil)
				assertNoError(t, err)
				assertEqual(t, types.Bytes(ciphertext).String(), tc3Ciphertext)
				assertEqual(t, tag.String(), "4d5c2af327cd64a62cf35abd2ba6fab4")
				assertEqual(t, len(chain), 6)
				assertEqual(t, chain[0].Step, gcm.StepBase)
				assertEqual(t, chain[5].Step, gcm.StepFinal)
				assertEqual(t, chain[5].Output.PartialTag, tag)
				assertEqual(t, chain[5].Output.Final, true)
			})

			it("authenticates data", func() {
				_, tag, chain, err := p.Seal(tc3Key, tc3IV, tc3Plaintext, tc3AAD)
				assertNoError(t, err)
				assertEqual(t, tag.String(), "02f10806fe1e4bee67d42db661e012ce")
				assertEqual(t, chain[1].Step, gcm.StepAuthData)
				assertEqual(t, chain[1].Output.AuthBlocks, uint64(1))
			})

			it("seals empty messages", func() {
				ciphertext, tag, chain, err := p.Seal(types.ZeroBlock, gcm.IVFromNonce([gcm.NonceSize]byte{}), nil, nil)
				assertNoError(t, err)
				assertEqual(t, len(ciphertext), 0)
				assertEqual(t, tag.String(), "58e2fccefa7e3061367f1d57a4e7455a")
				assertEqual(t, len(chain), 2)
			})

			it("fails w/ partial blocks", func() {
				_, _, _, err := p.Seal(tc3Key, tc3IV, tc3Plaintext[:60], nil)
				assertErrorIs(t, err, attest.ErrInputShape)
				_, _, _, err = p.Seal(tc3Key, tc3IV, tc3Plaintext, tc3AAD[:15])
				assertErrorIs(t, err, attest.ErrInputShape)
			})
		})

		when("stepping", func() {
			var input gcm.PublicInput
			var base *gcm.Attestation
			var message types.Block

			it.Before(func() {
				message = types.Block(tc3Plaintext[:types.BlockSize])
				tag, err := gcm.ComputeTag(tc3Key, tc3IV, tc3AAD, mustBytes(tc3Ciphertext)[:types.BlockSize])
				assertNoError(t, err)
				input = gcm.PublicInput{
					Tag:       tag,
					IV:        tc3IV,
					CipherOf0: aesBlock(tc3Key, types.ZeroBlock),
				}
				base, err = p.Base(input, tc3Key)
				assertNoError(t, err)
			})

			it("starts data counter after the iv", func() {
				assertEqual(t, base.Output.DataCounter, tc3IV.Add(1))
				assertEqual(t, base.Output.KeyCommitment, gcm.CommitKey(tc3Key))
			})

			it("runs every phase in order", func() {
				a, err := p.AuthData(input, base, types.Block(tc3AAD), tc3Key)
				assertNoError(t, err)
				a, ct, err := p.Encrypt(input, a, message, tc3Key)
				assertNoError(t, err)
				assertEqual(t, ct.String(), tc3Ciphertext[:2*types.BlockSize])
				a, err = p.Final(input, a, tc3Key)
				assertNoError(t, err)
				assertEqual(t, a.Output.PartialTag, input.Tag)
			})

			it("fails w/ wrong cipherOf0", func() {
				bad := input
				bad.CipherOf0[0] ^= 1
				_, err := p.Base(bad, tc3Key)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails w/ authenticated data after encryption", func() {
				a, _, err := p.Encrypt(input, base, message, tc3Key)
				assertNoError(t, err)
				_, err = p.AuthData(input, a, types.Block(tc3AAD), tc3Key)
				assertErrorIs(t, err, gcm.ErrPhaseOrder)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails w/ steps after final", func() {
				a, err := p.AuthData(input, base, types.Block(tc3AAD), tc3Key)
				assertNoError(t, err)
				a, _, err = p.Encrypt(input, a, message, tc3Key)
				assertNoError(t, err)
				a, err = p.Final(input, a, tc3Key)
				assertNoError(t, err)

				_, _, err = p.Encrypt(input, a, message, tc3Key)
				assertErrorIs(t, err, gcm.ErrFinalized)
				_, err = p.Final(input, a, tc3Key)
				assertErrorIs(t, err, gcm.ErrFinalized)
				_, err = p.AuthData(input, a, types.Block(tc3AAD), tc3Key)
				assertErrorIs(t, err, gcm.ErrFinalized)
			})

			it("fails w/ wrong tag", func() {
				bad := input
				bad.Tag[15] ^= 1
				a, err := p.Base(bad, tc3Key)
				assertNoError(t, err)
				a, err = p.AuthData(bad, a, types.Block(tc3AAD), tc3Key)
				assertNoError(t, err)
				a, _, err = p.Encrypt(bad, a, message, tc3Key)
				assertNoError(t, err)
				_, err = p.Final(bad, a, tc3Key)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails w/ missing authenticated data", func() {
				a, _, err := p.Encrypt(input, base, message, tc3Key)
				assertNoError(t, err)
				_, err = p.Final(input, a, tc3Key)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails when the key changes", func() {
				otherKey := tc3Key.Add(1)
				_, _, err := p.Encrypt(input, base, message, otherKey)
				assertErrorIs(t, err, attest.ErrConsistency)
				_, err = p.Final(input, base, otherKey)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails when the key changes in authenticated data", func() {
				otherKey := tc3Key.Add(1)
				_, err := p.AuthData(input, base, types.Block(tc3AAD), otherKey)
				assertErrorIs(t, err, attest.ErrConsistency)

				a, err := p.AuthData(input, base, types.Block(tc3AAD), tc3Key)
				assertNoError(t, err)
				_, err = p.AuthData(input, a, types.Block(tc3AAD), otherKey)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails w/ a different iv", func() {
				bad := input
				bad.IV = tc3IV.Add(2)
				_, err := p.AuthData(bad, base, types.Block(tc3AAD), tc3Key)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails w/ tampered previous step", func() {
				base.Output.AuthBlocks = 3
				_, err := p.AuthData(input, base, types.Block(tc3AAD), tc3Key)
				assertErrorIs(t, err, attest.ErrInvalidSeal)
			})
		})

		when("verifying", func() {
			var ciphertext []byte
			var chain []*gcm.Attestation

			it.Before(func() {
				var err error
				ciphertext, _, chain, err = p.Seal(tc3Key, tc3IV, tc3Plaintext, tc3AAD)
				assertNoError(t, err)
			})

			it("accepts the sealed chain", func() {
				tag, keyCommitment, err := p.VerifyChain(chain, tc3IV, tc3AAD, ciphertext)
				assertNoError(t, err)
				assertEqual(t, tag.String(), "02f10806fe1e4bee67d42db661e012ce")
				assertEqual(t, keyCommitment, gcm.CommitKey(tc3Key))
			})

			it("accepts the chain after a json round trip", func() {
				buf, err := utils.MarshalJSON(chain)
				assertNoError(t, err)
				var decoded []*gcm.Attestation
				assertNoError(t, utils.UnmarshalJSON(buf, &decoded))
				assertEqual(t, decoded, chain)

				tag, keyCommitment, err := p.VerifyChain(decoded, tc3IV, tc3AAD, ciphertext)
				assertNoError(t, err)
				assertEqual(t, tag.String(), "02f10806fe1e4bee67d42db661e012ce")
				assertEqual(t, keyCommitment, gcm.CommitKey(tc3Key))
			})

			it("fails w/ final flag cleared in json", func() {
				buf, err := utils.MarshalJSON(chain)
				assertNoError(t, err)
				buf = bytes.Replace(buf, []byte(`"final":true`), []byte(`"final":false`), 1)
				var decoded []*gcm.Attestation
				assertNoError(t, utils.UnmarshalJSON(buf, &decoded))
				assertEqual(t, decoded[len(decoded)-1].Output.Final, false)

				_, _, err = p.VerifyChain(decoded, tc3IV, tc3AAD, ciphertext)
				assertErrorIs(t, err, attest.ErrInvalidSeal)
			})

			it("fails w/ tampered ciphertext", func() {
				ciphertext[40] ^= 4
				_, _, err := p.VerifyChain(chain, tc3IV, tc3AAD, ciphertext)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails w/ tampered authenticated data", func() {
				aad := bytes.Clone(tc3AAD)
				aad[0] ^= 1
				_, _, err := p.VerifyChain(chain, tc3IV, aad, ciphertext)
				assertErrorIs(t, err, attest.ErrConsistency)
			})

			it("fails w/ missing final step", func() {
				_, _, err := p.VerifyChain(chain[:len(chain)-1], tc3IV, tc3AAD, ciphertext)
				assertErrorIs(t, err, attest.ErrInputShape)
			})

			it("fails w/ another sealer", func() {
				other := gcm.NewProgram(attest.NewKeccakSealer(attest.Keccak256("other")))
				_, _, err := other.VerifyChain(chain, tc3IV, tc3AAD, ciphertext)
				assertErrorIs(t, err, attest.ErrInvalidSeal)
			})

			it("fails w/ wrong iv", func() {
				_, _, err := p.VerifyChain(chain, tc3IV.Add(1), tc3AAD, ciphertext)
				assertErrorIs(t, err, attest.ErrConsistency)
			})
		})
	}, spec.Report(report.Terminal{}), spec.Parallel(), spec.Random())
}

func aesBlock(key, in types.Block) (out types.Block) {
	c, err := aes.NewCipher(key[:])
	if err != nil {
		panic(err)
	}
	c.Encrypt(out[:], in[:])
	return out
}

func TestProgram_Seal_Reference(t *testing.T) {
	p := gcm.NewProgram(testSealer)

	rapid.Check(t, func(t *rapid.T) {
		key := types.Block(rapid.SliceOfN(rapid.Byte(), types.BlockSize, types.BlockSize).Draw(t, "key"))
		nonce := [gcm.NonceSize]byte(rapid.SliceOfN(rapid.Byte(), gcm.NonceSize, gcm.NonceSize).Draw(t, "nonce"))
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "plaintext")
		plaintext = plaintext[:len(plaintext)/types.BlockSize*types.BlockSize]
		aad := rapid.SliceOfN(rapid.Byte(), 0, 48).Draw(t, "aad")
		aad = aad[:len(aad)/types.BlockSize*types.BlockSize]

		block, err := aes.NewCipher(key[:])
		if err != nil {
			t.Fatal(err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			t.Fatal(err)
		}
		expected := aead.Seal(nil, nonce[:], plaintext, aad)

		iv := gcm.IVFromNonce(nonce)
		ciphertext, tag, chain, err := p.Seal(key, iv, plaintext, aad)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(append(ciphertext, tag[:]...), expected) {
			t.Fatalf("mismatch: %x%s != %x", ciphertext, tag, expected)
		}

		verifiedTag, _, err := p.VerifyChain(chain, iv, aad, ciphertext)
		if err != nil {
			t.Fatal(err)
		}
		if verifiedTag != tag {
			t.Fatalf("verified tag mismatch")
		}
	})
}
