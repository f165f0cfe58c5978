package uploader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cryptimg/encfs-deploy/encfs"
)

// AzCLI uploads blobs by shelling out to the az CLI, authenticated via the
// ambient login session (az login must have been run beforehand).
type AzCLI struct {
	account   string
	container string
	run       encfs.Runner
	log       *slog.Logger
}

// NewAzCLI creates an az CLI upload backend for the given storage account
// and container. A nil runner selects encfs.ExecRunner.
func NewAzCLI(account, container string, run encfs.Runner, log *slog.Logger) *AzCLI {
	if run == nil {
		run = encfs.ExecRunner{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &AzCLI{
		account:   account,
		container: container,
		run:       run,
		log:       log,
	}
}

// Upload stores the file as a blob, overwriting any existing blob of the
// same name.
func (u *AzCLI) Upload(ctx context.Context, blob Blob, path string) error {
	u.log.Info("Uploading blob",
		slog.String("account", u.account),
		slog.String("container", u.container),
		slog.String("blob", blob.Name),
		slog.String("file", path))

	err := u.run.Run(ctx, "az",
		"storage", "blob", "upload",
		"--account-name", u.account,
		"--container-name", u.container,
		"--name", blob.Name,
		"--file", path,
		"--type", blob.Type,
		"--auth-mode", "login",
		"--overwrite",
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}

	return nil
}

// Name returns a unique identifier for this upload backend.
func (u *AzCLI) Name() string {
	return fmt.Sprintf("az-%s-%s", u.account, u.container)
}
