package block

import (
	"errors"
	"testing"

	"git.gammaspectra.live/P2Pool/aes-attest/aes128"
	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"github.com/stretchr/testify/require"
)

var (
	testKey       = types.MustBlockFromString("000102030405060708090a0b0c0d0e0f")
	testPlaintext = types.MustBlockFromString("00112233445566778899aabbccddeeff")
	testCipher    = types.MustBlockFromString("69c4e0d86a7b0430d8cdb78070b4c55a")
	testSealer    = attest.NewKeccakSealer(attest.Keccak256("block test"))
)

func TestProgram_Prove(t *testing.T) {
	p := NewProgram(testSealer)

	a, err := p.Prove(Input{Cipher: testCipher}, testPlaintext, testKey)
	require.NoError(t, err)
	require.NoError(t, p.Verify(a, testCipher))
	require.ErrorIs(t, p.Verify(a, testPlaintext), attest.ErrConsistency)

	_, err = p.Prove(Input{Cipher: testPlaintext}, testPlaintext, testKey)
	require.ErrorIs(t, err, attest.ErrConsistency)

	_, err = p.Prove(Input{Cipher: testCipher}, testPlaintext, testKey.Add(1))
	require.ErrorIs(t, err, attest.ErrConsistency)
}

func TestProgram_ProveDisclosed(t *testing.T) {
	p := NewProgram(testSealer)
	input := DisclosedInput{
		Cipher:        testCipher,
		Message:       testPlaintext,
		KeyCommitment: CommitKey(testKey),
	}

	a, err := p.ProveDisclosed(input, testKey)
	require.NoError(t, err)
	require.NoError(t, p.VerifyDisclosed(a))

	a.Input.Message[0] ^= 1
	require.ErrorIs(t, p.VerifyDisclosed(a), attest.ErrInvalidSeal)

	other := input
	other.KeyCommitment = CommitKey(testKey.Add(1))
	_, err = p.ProveDisclosed(other, testKey)
	require.ErrorIs(t, err, attest.ErrConsistency)
}

func TestProgram_ProveStaged(t *testing.T) {
	p := NewProgram(testSealer)
	input := Input{Cipher: testCipher}

	stageOne, stageTwo, err := p.ProveStaged(input, testPlaintext, testKey)
	require.NoError(t, err)
	require.Equal(t, stageOne.Seal, stageTwo.Previous)
	require.Equal(t, stageOne.Output, stageTwo.Output)
	require.NoError(t, p.VerifyStaged(stageOne, stageTwo, testCipher))

	require.ErrorIs(t, p.VerifyStaged(stageOne, stageTwo, testPlaintext), attest.ErrConsistency)
	require.ErrorIs(t, p.VerifyStaged(stageTwo, stageOne, testCipher), attest.ErrConsistency)

	_, _, err = p.ProveStaged(Input{Cipher: testPlaintext}, testPlaintext, testKey)
	require.ErrorIs(t, err, attest.ErrConsistency)
}

func TestProgram_ProveStageTwo(t *testing.T) {
	p := NewProgram(testSealer)
	input := Input{Cipher: testCipher}
	c := aes128.NewCipher(testKey)
	intermediate := c.EncryptRounds(aes128.StateFromBlock(testPlaintext), 0, StageSplit)

	stageOne, _, err := p.ProveStaged(input, testPlaintext, testKey)
	require.NoError(t, err)

	_, err = p.ProveStageTwo(input, stageOne, intermediate, testKey)
	require.NoError(t, err)

	// a different intermediate state does not open the commitment
	tampered := intermediate
	tampered[3] ^= 0x10
	_, err = p.ProveStageTwo(input, stageOne, tampered, testKey)
	require.ErrorIs(t, err, attest.ErrConsistency)
	require.NotContains(t, err.Error(), tampered.String())

	_, err = p.ProveStageTwo(input, stageOne, intermediate, testKey.Add(1))
	require.ErrorIs(t, err, attest.ErrConsistency)

	stageOne.Output.StateCommitment[0] ^= 1
	_, err = p.ProveStageTwo(input, stageOne, intermediate, testKey)
	require.True(t, errors.Is(err, attest.ErrInvalidSeal))
}

func TestCommitKey(t *testing.T) {
	require.Equal(t, CommitKey(testKey), CommitKey(testKey))
	require.NotEqual(t, CommitKey(testKey), CommitKey(testKey.Add(1)))
	require.NotEqual(t, CommitKey(testKey), attest.Keccak256(testKey[:]))
}
