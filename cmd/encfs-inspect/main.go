package main

import (
	"log"
	"os"
	"slices"

	"github.com/cryptimg/encfs-deploy/cmd/flags"
	"github.com/cryptimg/encfs-deploy/encfs"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var inspectFlags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:     "image",
		Required: true,
		Usage:    "path of the encrypted image file to inspect",
		EnvVars:  []string{"IMAGE"},
	},
}

func main() {
	godotenv.Load()

	app := &cli.App{
		Name:  "encfs-inspect",
		Usage: "Dump the LUKS header and fixed byte offsets of an encrypted image file (best effort)",
		Flags: slices.Concat(inspectFlags, flags.CommonFlags),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			encfs.Inspect(cCtx.Context, nil, cCtx.String("image"), logger)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
