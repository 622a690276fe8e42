package aes128

import (
	"fmt"

	"git.gammaspectra.live/P2Pool/aes-attest/types"
)

// Cipher An expanded AES-128 key
type Cipher struct {
	schedule Schedule
	rk       [Rounds + 1][Columns]uint32
}

func NewCipher(key types.Block) *Cipher {
	c := &Cipher{
		schedule: KeyExpansion(key),
	}
	c.rk = tableRoundKeys(&c.schedule)
	return c
}

// Encrypt Single block AES-128 encryption of plaintext under key
func Encrypt(plaintext, key types.Block) types.Block {
	return NewCipher(key).Encrypt(plaintext)
}

func (c *Cipher) Schedule() Schedule {
	return c.schedule
}

func (c *Cipher) RoundKey(round int) State {
	return c.schedule[round]
}

// Encrypt Runs rounds 0 to Rounds on the byte-wise state
func (c *Cipher) Encrypt(plaintext types.Block) types.Block {
	return c.EncryptRounds(StateFromBlock(plaintext), 0, Rounds).Block()
}

// EncryptRounds Applies rounds from to to, inclusive, to state.
// Round 0 is the initial AddRoundKey, round Rounds omits MixColumns.
// Splitting [0, Rounds] into consecutive ranges yields the same result as a single pass
func (c *Cipher) EncryptRounds(state State, from, to int) State {
	if from < 0 || to > Rounds || from > to {
		panic(fmt.Sprintf("invalid round range [%d, %d]", from, to))
	}
	for round := from; round <= to; round++ {
		state = c.round(state, round)
	}
	return state
}

func (c *Cipher) round(state State, round int) State {
	switch round {
	case 0:
		return state.AddRoundKey(c.schedule[0])
	case Rounds:
		return state.SubBytes().ShiftRows().AddRoundKey(c.schedule[Rounds])
	default:
		return state.SubBytes().ShiftRows().MixColumns().AddRoundKey(c.schedule[round])
	}
}

// RoundTrace Intermediate values of one round, named as in FIPS-197 Appendix B
type RoundTrace struct {
	Start          State `json:"start"`
	AfterSubBytes  State `json:"s_box"`
	AfterShiftRows State `json:"s_row"`
	// AfterMixColumns equals AfterShiftRows in round 0 and Rounds
	AfterMixColumns State `json:"m_col"`
	RoundKey        State `json:"k_sch"`
}

type Trace struct {
	Input  types.Block            `json:"input"`
	Rounds [Rounds + 1]RoundTrace `json:"rounds"`
	Output types.Block            `json:"output"`
}

// Trace Encrypts plaintext recording every intermediate state. Round 0 has only Start and RoundKey set
func (c *Cipher) Trace(plaintext types.Block) (t Trace) {
	t.Input = plaintext
	state := StateFromBlock(plaintext)

	t.Rounds[0] = RoundTrace{
		Start:    state,
		RoundKey: c.schedule[0],
	}
	state = state.AddRoundKey(c.schedule[0])

	for round := 1; round <= Rounds; round++ {
		rt := &t.Rounds[round]
		rt.Start = state
		rt.AfterSubBytes = state.SubBytes()
		rt.AfterShiftRows = rt.AfterSubBytes.ShiftRows()
		if round == Rounds {
			rt.AfterMixColumns = rt.AfterShiftRows
		} else {
			rt.AfterMixColumns = rt.AfterShiftRows.MixColumns()
		}
		rt.RoundKey = c.schedule[round]
		state = rt.AfterMixColumns.AddRoundKey(rt.RoundKey)
	}
	t.Output = state.Block()
	return t
}
