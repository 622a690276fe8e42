package main

import (
	"fmt"
	"os"

	"git.gammaspectra.live/P2Pool/aes-attest/attest"
	"git.gammaspectra.live/P2Pool/aes-attest/types"
	"git.gammaspectra.live/P2Pool/aes-attest/utils"
	"github.com/urfave/cli"
)

const defaultSealKeySeed = "aes-attest default seal key"

func fatal(err error) {
	utils.Errorf("CLI", "%v", err)
	os.Exit(1)
}

func printJSON(v any) error {
	encoder := utils.NewJSONEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	return encoder.Encode(v)
}

func getSealer(ctx *cli.Context) (attest.Sealer, error) {
	s := ctx.GlobalString("seal-key")
	if s == "" {
		return attest.NewKeccakSealer(attest.Keccak256(defaultSealKeySeed)), nil
	}
	key, err := types.HashFromString(s)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}
	return attest.NewKeccakSealer(key), nil
}

func main() {
	app := cli.NewApp()
	app.Name = "aesattest"
	app.Usage = "AES-128, CTR and GCM with per-block attestations"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Log chain progress.",
		},
		cli.StringFlag{
			Name: "seal-key",
			Usage: "Hex encoded 32 byte key shared by prover and " +
				"verifier. A fixed development key is used when empty.",
		},
		cli.BoolFlag{
			Name:  "log-caller",
			Usage: "Prefix log lines with the calling file and line.",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "Keystream goroutines, 0 picks one per CPU.",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		if ctx.GlobalBool("debug") {
			utils.GlobalLogLevel |= utils.LogLevelDebug | utils.LogLevelNotice
		}
		utils.LogFile = ctx.GlobalBool("log-caller")
		return nil
	}
	app.Commands = []cli.Command{
		encryptCommand,
		expandCommand,
		traceCommand,
		sboxCommand,
		blockCommand,
		ctrCommand,
		gcmCommand,
		verifyCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
