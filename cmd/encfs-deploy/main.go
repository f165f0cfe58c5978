package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"

	"github.com/cryptimg/encfs-deploy/cmd/flags"
	"github.com/cryptimg/encfs-deploy/deploy"
	"github.com/cryptimg/encfs-deploy/encfs"
	"github.com/cryptimg/encfs-deploy/uploader"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var deployFlags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:     "upload-uri",
		Required: true,
		Usage:    "upload destination: az://account/container, s3://bucket/prefix or file:///dir",
		EnvVars:  []string{"UPLOAD_URI"},
	},
	&cli.StringFlag{
		Name:     "blob-name",
		Required: true,
		Usage:    "destination blob name",
		EnvVars:  []string{"BLOB_NAME"},
	},
	&cli.StringFlag{
		Name:    "blob-type",
		Value:   "page",
		Usage:   "destination blob type (block, page or append)",
		EnvVars: []string{"BLOB_TYPE"},
	},
	&cli.StringFlag{
		Name:     "source-dir",
		Required: true,
		Usage:    "directory tree to copy into the encrypted filesystem",
		EnvVars:  []string{"SOURCE_DIR"},
	},
	&cli.StringFlag{
		Name:    "key-file",
		Usage:   "file containing raw volume key material",
		EnvVars: []string{"KEY_FILE"},
	},
	&cli.StringFlag{
		Name:    "key-hex",
		Usage:   "hex-encoded volume key material",
		EnvVars: []string{"KEY_HEX"},
	},
	&cli.StringFlag{
		Name:    "derive-secret",
		Usage:   "derive the volume key from this secret with Argon2id instead of passing raw key material",
		EnvVars: []string{"DERIVE_SECRET"},
	},
	&cli.StringFlag{
		Name:    "key-label",
		Value:   "encfs-deploy",
		Usage:   "label mixed into key derivation when --derive-secret is used",
		EnvVars: []string{"KEY_LABEL"},
	},
	&cli.StringFlag{
		Name:    "mapper-name",
		Usage:   "device mapper name for the encrypted volume; defaults to a generated unique name",
		EnvVars: []string{"MAPPER_NAME"},
	},
	&cli.BoolFlag{
		Name:    "debug-dump",
		Usage:   "run best-effort header and hexdump inspection after mounting",
		EnvVars: []string{"DEBUG_DUMP"},
	},
}

const usage string = `Provision a temporary LUKS2-encrypted filesystem, populate it from a
source directory, tear it down and upload the encrypted image as a blob.
Requires root and the host's cryptsetup, mkfs.ext4, mount and umount.`

func main() {
	godotenv.Load()

	app := &cli.App{
		Name:   "encfs-deploy",
		Usage:  usage,
		Flags:  slices.Concat(deployFlags, flags.CommonFlags),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	key, err := resolveKey(cCtx)
	if err != nil {
		return err
	}

	up, err := uploader.UploaderFor(cCtx.String("upload-uri"), logger)
	if err != nil {
		return err
	}

	sourceDir := cCtx.String("source-dir")
	if _, err := os.Stat(sourceDir); err != nil {
		return fmt.Errorf("could not read source directory: %w", err)
	}

	return deploy.Deploy(cCtx.Context, deploy.Config{
		Blob: uploader.Blob{
			Name: cCtx.String("blob-name"),
			Type: cCtx.String("blob-type"),
		},
		Key:        key,
		Uploader:   up,
		MapperName: cCtx.String("mapper-name"),
		Debug:      cCtx.Bool("debug-dump"),
		Log:        logger,
	}, func(mountPoint string) error {
		return copyTree(sourceDir, mountPoint)
	})
}

func resolveKey(cCtx *cli.Context) ([]byte, error) {
	switch {
	case cCtx.String("key-file") != "":
		key, err := os.ReadFile(cCtx.String("key-file"))
		if err != nil {
			return nil, fmt.Errorf("could not read key file: %w", err)
		}
		return key, nil

	case cCtx.String("key-hex") != "":
		key, err := hex.DecodeString(cCtx.String("key-hex"))
		if err != nil {
			return nil, fmt.Errorf("invalid key-hex: %w", err)
		}
		return key, nil

	case cCtx.String("derive-secret") != "":
		label := []byte(cCtx.String("key-label"))
		return encfs.DeriveVolumeKey(label, []byte(cCtx.String("derive-secret"))), nil
	}

	return nil, errors.New("one of --key-file, --key-hex or --derive-secret is required")
}

func copyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
}
