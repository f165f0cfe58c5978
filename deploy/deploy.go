package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cryptimg/encfs-deploy/encfs"
	"github.com/cryptimg/encfs-deploy/uploader"
)

// Config contains configuration for one deployment.
type Config struct {
	// Blob is the destination blob identity.
	Blob uploader.Blob

	// Key is the volume key material, written to a private temporary file
	// for the duration of the deployment.
	Key []byte

	// Uploader receives the encrypted image after teardown.
	Uploader uploader.Uploader

	// MapperName optionally forces the device mapper name. Leave empty to
	// generate a unique one.
	MapperName string

	// Debug runs the best-effort inspection commands after mounting.
	Debug bool

	Log *slog.Logger

	// Runner overrides external command execution; nil selects
	// encfs.ExecRunner.
	Runner encfs.Runner
}

// Deploy provisions a temporary encrypted filesystem, hands its mount point
// to populate, tears the volume down, and uploads the resulting encrypted
// image as a blob.
//
// Teardown runs unconditionally once the volume was set up, even when
// populate fails or panics. The upload only happens when populate and
// teardown both succeeded. All temporary files live in a private workspace
// directory removed on every exit path.
func Deploy(ctx context.Context, cfg Config, populate func(mountPoint string) error) error {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	workspace, err := os.MkdirTemp("", "encfs-deploy-")
	if err != nil {
		return fmt.Errorf("could not create workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			log.Error("Failed to remove workspace", "err", err)
		}
	}()

	keyFile, err := os.CreateTemp(workspace, "key_")
	if err != nil {
		return fmt.Errorf("could not create key file: %w", err)
	}
	if _, err := keyFile.Write(cfg.Key); err != nil {
		keyFile.Close()
		return fmt.Errorf("could not write key file: %w", err)
	}
	if err := keyFile.Close(); err != nil {
		return fmt.Errorf("could not write key file: %w", err)
	}

	imageFile, err := os.CreateTemp(workspace, "blob_")
	if err != nil {
		return fmt.Errorf("could not create image file: %w", err)
	}
	imagePath := imageFile.Name()
	if err := imageFile.Close(); err != nil {
		return fmt.Errorf("could not create image file: %w", err)
	}

	vol := encfs.NewVolume(encfs.Config{
		ImagePath:  imagePath,
		KeyPath:    keyFile.Name(),
		MapperName: cfg.MapperName,
		Debug:      cfg.Debug,
		Log:        log,
	}, cfg.Runner)

	mountPoint, err := vol.Setup(ctx)
	if err != nil {
		return err
	}

	var populateErr, cleanupErr error
	func() {
		defer func() {
			cleanupErr = vol.Cleanup(ctx)
		}()
		populateErr = populate(mountPoint)
	}()

	if populateErr != nil {
		if cleanupErr != nil {
			log.Error("Teardown after failed populate", "err", cleanupErr)
		}
		return fmt.Errorf("populating filesystem failed: %w", populateErr)
	}
	if cleanupErr != nil {
		return cleanupErr
	}

	if err := cfg.Uploader.Upload(ctx, cfg.Blob, imagePath); err != nil {
		return err
	}

	log.Info("Deployed blob into the storage container",
		slog.String("blob", cfg.Blob.Name),
		slog.String("uploader", cfg.Uploader.Name()))

	return nil
}
