package main

import (
	"fmt"
	"os"

	"git.gammaspectra.live/P2Pool/aes-attest/aes128"
	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/block"
	"git.gammaspectra.live/P2Pool/aes-attest/ctr"
	"git.gammaspectra.live/P2Pool/aes-attest/gcm"
	"git.gammaspectra.live/P2Pool/aes-attest/rijndael"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
	"github.com/urfave/cli"
)

func blockArg(ctx *cli.Context, index int, name string) (types.Block, error) {
	if ctx.NArg() <= index {
		return types.ZeroBlock, fmt.Errorf("missing %s", name)
	}
	b, err := types.BlockFromString(ctx.Args().Get(index))
	if err != nil {
		return types.ZeroBlock, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

func bytesArg(ctx *cli.Context, index int, name string) (types.Bytes, error) {
	if ctx.NArg() <= index {
		return nil, nil
	}
	b, err := types.BytesFromString(ctx.Args().Get(index))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

// ctrOutput Printed by ctr, read back by verify
type ctrOutput struct {
	IV            types.Block                   `json:"iv"`
	Ciphertext    types.Bytes                   `json:"ciphertext"`
	Chain         []*ctr.Attestation            `json:"chain"`
	KeystreamRoot *types.Hash                   `json:"keystream_root,omitempty"`
	Keystream     []*block.DisclosedAttestation `json:"keystream,omitempty"`
}

// gcmOutput Printed by gcm, read back by verify
type gcmOutput struct {
	IV         types.Block        `json:"iv"`
	AAD        types.Bytes        `json:"aad"`
	Ciphertext types.Bytes        `json:"ciphertext"`
	Tag        types.Block        `json:"tag"`
	Chain      []*gcm.Attestation `json:"chain"`
}

var encryptCommand = cli.Command{
	Name:      "encrypt",
	Usage:     "Encrypt a single block.",
	ArgsUsage: "plaintext key",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.ShowCommandHelp(ctx, "encrypt")
		}
		plaintext, err := blockArg(ctx, 0, "plaintext")
		if err != nil {
			return err
		}
		key, err := blockArg(ctx, 1, "key")
		if err != nil {
			return err
		}
		fmt.Println(aes128.Encrypt(plaintext, key))
		return nil
	},
}

var expandCommand = cli.Command{
	Name:      "expand",
	Usage:     "Print the 11 round keys of a key.",
	ArgsUsage: "key",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.ShowCommandHelp(ctx, "expand")
		}
		key, err := blockArg(ctx, 0, "key")
		if err != nil {
			return err
		}
		for i, roundKey := range aes128.KeyExpansion(key) {
			fmt.Printf("%2d %s\n", i, roundKey)
		}
		return nil
	},
}

var traceCommand = cli.Command{
	Name:      "trace",
	Usage:     "Encrypt a single block, printing every intermediate state as JSON.",
	ArgsUsage: "plaintext key",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.ShowCommandHelp(ctx, "trace")
		}
		plaintext, err := blockArg(ctx, 0, "plaintext")
		if err != nil {
			return err
		}
		key, err := blockArg(ctx, 1, "key")
		if err != nil {
			return err
		}
		return printJSON(aes128.NewCipher(key).Trace(plaintext))
	},
}

var sboxCommand = cli.Command{
	Name:  "sbox",
	Usage: "Print the S-box as a 16x16 table, rows by high nibble.",
	Action: func(ctx *cli.Context) error {
		table := rijndael.SBoxTable()
		for row := range 16 {
			fmt.Printf("%x0 % x\n", row, table[row*16:row*16+16])
		}
		return nil
	},
}

var blockCommand = cli.Command{
	Name:      "block",
	Usage:     "Attest a single block encryption in two stages, hiding message and key.",
	ArgsUsage: "plaintext key",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.ShowCommandHelp(ctx, "block")
		}
		plaintext, err := blockArg(ctx, 0, "plaintext")
		if err != nil {
			return err
		}
		key, err := blockArg(ctx, 1, "key")
		if err != nil {
			return err
		}
		sealer, err := getSealer(ctx)
		if err != nil {
			return err
		}

		p := block.NewProgram(sealer)
		input := block.Input{Cipher: aes128.Encrypt(plaintext, key)}
		stageOne, stageTwo, err := p.ProveStaged(input, plaintext, key)
		if err != nil {
			return err
		}
		if err = p.VerifyStaged(stageOne, stageTwo, input.Cipher); err != nil {
			return err
		}
		return printJSON([]*block.StagedAttestation{stageOne, stageTwo})
	},
}

var ctrCommand = cli.Command{
	Name:      "ctr",
	Usage:     "Encrypt whole blocks in counter mode and print the verified attestation chain.",
	ArgsUsage: "key iv plaintext",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name: "independent",
			Usage: "Also attest every keystream block on its own " +
				"and print their merkle root.",
		},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 3 {
			return cli.ShowCommandHelp(ctx, "ctr")
		}
		key, err := blockArg(ctx, 0, "key")
		if err != nil {
			return err
		}
		iv, err := blockArg(ctx, 1, "iv")
		if err != nil {
			return err
		}
		plaintext, err := bytesArg(ctx, 2, "plaintext")
		if err != nil {
			return err
		}
		sealer, err := getSealer(ctx)
		if err != nil {
			return err
		}

		p := ctr.NewProgram(sealer)
		p.Workers = ctx.GlobalInt("workers")

		ciphertext, chain, err := p.Encrypt(key, iv, plaintext)
		if err != nil {
			return err
		}
		keyCommitment, err := p.VerifyChain(chain, iv, ciphertext)
		if err != nil {
			return err
		}
		utils.Noticef("CLI", "verified %d steps, key commitment %s", len(chain), keyCommitment)

		out := ctrOutput{
			IV:         iv,
			Ciphertext: ciphertext,
			Chain:      chain,
		}
		if !ctx.Bool("independent") {
			return printJSON(out)
		}

		blocks := block.NewProgram(sealer)
		proofs, err := ctr.ProveKeystream(blocks, key, iv, len(chain))
		if err != nil {
			return err
		}
		if err = ctr.VerifyIndependent(blocks, proofs, keyCommitment, iv, plaintext, ciphertext); err != nil {
			return err
		}

		root := ctr.KeystreamRoot(proofs)
		out.KeystreamRoot = &root
		out.Keystream = proofs
		return printJSON(out)
	},
}

var gcmCommand = cli.Command{
	Name:      "gcm",
	Usage:     "Encrypt and authenticate whole blocks in GCM mode and print the verified attestation chain.",
	ArgsUsage: "key nonce plaintext [aad]",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 3 && ctx.NArg() != 4 {
			return cli.ShowCommandHelp(ctx, "gcm")
		}
		key, err := blockArg(ctx, 0, "key")
		if err != nil {
			return err
		}
		nonceBytes, err := bytesArg(ctx, 1, "nonce")
		if err != nil {
			return err
		}
		if len(nonceBytes) != gcm.NonceSize {
			return fmt.Errorf("nonce: %w: need %d bytes, got %d", types.ErrWrongSize, gcm.NonceSize, len(nonceBytes))
		}
		plaintext, err := bytesArg(ctx, 2, "plaintext")
		if err != nil {
			return err
		}
		aad, err := bytesArg(ctx, 3, "aad")
		if err != nil {
			return err
		}
		sealer, err := getSealer(ctx)
		if err != nil {
			return err
		}

		p := gcm.NewProgram(sealer)
		p.Workers = ctx.GlobalInt("workers")

		iv := gcm.IVFromNonce([gcm.NonceSize]byte([]byte(nonceBytes)))
		ciphertext, tag, chain, err := p.Seal(key, iv, plaintext, aad)
		if err != nil {
			return err
		}
		if _, _, err = p.VerifyChain(chain, iv, aad, ciphertext); err != nil {
			return err
		}
		utils.Noticef("CLI", "verified %d steps, tag %s", len(chain), tag)

		return printJSON(gcmOutput{
			IV:         iv,
			AAD:        aad,
			Ciphertext: ciphertext,
			Tag:        tag,
			Chain:      chain,
		})
	},
}

// readJSON Decodes the file named by argument index, or stdin when it is missing or "-"
func readJSON(ctx *cli.Context, index int, v any) error {
	if name := ctx.Args().Get(index); name != "" && name != "-" {
		buf, err := os.ReadFile(name)
		if err != nil {
			return err
		}
		return utils.UnmarshalJSON(buf, v)
	}
	return utils.NewJSONDecoder(os.Stdin).Decode(v)
}

func verifyCtr(ctx *cli.Context, sealer attest.Sealer) error {
	var out ctrOutput
	if err := readJSON(ctx, 1, &out); err != nil {
		return fmt.Errorf("ctr output: %w", err)
	}

	keyCommitment, err := ctr.NewProgram(sealer).VerifyChain(out.Chain, out.IV, out.Ciphertext)
	if err != nil {
		return err
	}

	if len(out.Keystream) > 0 {
		if out.KeystreamRoot == nil {
			return attest.Shape("keystream proofs without a root")
		}
		if err = attest.Equal("keystream root", ctr.KeystreamRoot(out.Keystream), *out.KeystreamRoot); err != nil {
			return err
		}
		if ctx.IsSet("plaintext") {
			plaintext, err := types.BytesFromString(ctx.String("plaintext"))
			if err != nil {
				return fmt.Errorf("plaintext: %w", err)
			}
			if err = ctr.VerifyIndependent(block.NewProgram(sealer), out.Keystream, keyCommitment, out.IV, plaintext, out.Ciphertext); err != nil {
				return err
			}
		}
	}

	utils.Logf("CLI", "ctr chain of %d steps is valid, key commitment %s", len(out.Chain), keyCommitment)
	return nil
}

func verifyGcm(ctx *cli.Context, sealer attest.Sealer) error {
	var out gcmOutput
	if err := readJSON(ctx, 1, &out); err != nil {
		return fmt.Errorf("gcm output: %w", err)
	}

	tag, keyCommitment, err := gcm.NewProgram(sealer).VerifyChain(out.Chain, out.IV, out.AAD, out.Ciphertext)
	if err != nil {
		return err
	}
	if err = attest.Equal("tag", tag, out.Tag); err != nil {
		return err
	}

	utils.Logf("CLI", "gcm chain of %d steps is valid, tag %s, key commitment %s", len(out.Chain), tag, keyCommitment)
	return nil
}

var verifyCommand = cli.Command{
	Name:      "verify",
	Usage:     "Read the JSON printed by ctr or gcm and verify its attestation chain.",
	ArgsUsage: "ctr|gcm [file]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "plaintext",
			Usage: "Hex plaintext, checks ctr keystream proofs against it when present.",
		},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 && ctx.NArg() != 2 {
			return cli.ShowCommandHelp(ctx, "verify")
		}
		sealer, err := getSealer(ctx)
		if err != nil {
			return err
		}
		switch mode := ctx.Args().Get(0); mode {
		case "ctr":
			return verifyCtr(ctx, sealer)
		case "gcm":
			return verifyGcm(ctx, sealer)
		default:
			return fmt.Errorf("unknown mode %q", mode)
		}
	},
}
