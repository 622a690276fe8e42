package aes128

import (
	"git.gammaspectra.live/P2Pool/aes-attest/rijndael"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
)

// Schedule Round keys 0 to Rounds
type Schedule [Rounds + 1]State

const scheduleWords = Columns * (Rounds + 1)

// RotWord Rotate bytes left by one
func RotWord(w Word) Word {
	return Word{w[1], w[2], w[3], w[0]}
}

// SubWord Apply the S-box to each byte in w
func SubWord(w Word) (out Word) {
	for i := range w {
		out[i] = rijndael.SubByte(w[i])
	}
	return out
}

// KeyExpansion FIPS-197 Figure 11
func KeyExpansion(key types.Block) (schedule Schedule) {
	var w [scheduleWords]Word

	k := StateFromBlock(key)
	for i := range Columns {
		w[i] = k.Column(i)
	}

	for i := Columns; i < scheduleWords; i++ {
		temp := w[i-1]
		if i%Columns == 0 {
			temp = SubWord(RotWord(temp))
			temp[0] ^= rijndael.Rcon(i/Columns - 1)
		}
		w[i] = w[i-Columns].Xor(temp)
	}

	for round := range schedule {
		for c := range Columns {
			schedule[round].SetColumn(c, w[round*Columns+c])
		}
	}
	return schedule
}
