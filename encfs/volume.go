package encfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// DefaultImageSize is the size the backing image file is preallocated to
// before formatting, regardless of how much data is written later.
const DefaultImageSize = 64 * 1024 * 1024

const (
	luksSectorSize = "4096"
	luksCipher     = "aes-xts-plain64"

	// Minimal iteration count. This is test tooling; the resulting volume
	// is not a hardened configuration.
	luksPBKDFIterations = "1000"
)

var (
	// ErrProvision wraps any external tool failure during volume setup.
	ErrProvision = errors.New("encrypted volume provisioning failed")

	// ErrTeardown wraps unmount and close failures during volume release.
	ErrTeardown = errors.New("encrypted volume teardown failed")
)

// Config contains configuration for one encrypted volume.
type Config struct {
	// ImagePath is the backing file for the encrypted volume.
	ImagePath string

	// KeyPath is the key file handed to cryptsetup.
	KeyPath string

	// MapperName names the device mapper entry. Defaults to a generated
	// unique name so multiple volumes can coexist on the same host.
	MapperName string

	// ImageSize overrides the preallocated image size. Defaults to
	// DefaultImageSize.
	ImageSize int64

	// Debug runs the best-effort inspection commands after a successful
	// mount.
	Debug bool

	Log *slog.Logger
}

// Volume is one encrypted, formatted, mounted filesystem backed by a file.
// A Volume is single-use and not safe for concurrent use; overlapping Setup
// calls are rejected.
type Volume struct {
	cfg Config
	run Runner
	log *slog.Logger

	active   atomic.Bool
	opened   bool
	mounted  bool
	mountDir string
}

// NewVolume creates a volume over the given backing image and key file.
// A nil runner selects ExecRunner.
func NewVolume(cfg Config, run Runner) *Volume {
	if cfg.MapperName == "" {
		cfg.MapperName = GenerateMapperName()
	}
	if cfg.ImageSize == 0 {
		cfg.ImageSize = DefaultImageSize
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if run == nil {
		run = ExecRunner{}
	}

	return &Volume{
		cfg: cfg,
		run: run,
		log: cfg.Log.With(slog.String("mapper", cfg.MapperName)),
	}
}

// GenerateMapperName returns a unique device mapper name.
func GenerateMapperName() string {
	return "encfs-" + uuid.NewString()[:8]
}

// MapperDevice returns the path of the mapped device.
func (v *Volume) MapperDevice() string {
	return "/dev/mapper/" + v.cfg.MapperName
}

// MountPoint returns the mount directory, or "" while the volume is not
// mounted.
func (v *Volume) MountPoint() string {
	return v.mountDir
}

func (v *Volume) cryptsetup(ctx context.Context, args ...string) error {
	// --debug and -v make cryptsetup print enough to diagnose failures.
	return v.run.Run(ctx, "cryptsetup", append([]string{"--debug", "-v"}, args...)...)
}

// Setup provisions the volume: preallocate the image, luksFormat, open the
// mapping, mkfs.ext4, and mount on a fresh temporary directory. It returns
// the mount point for the caller to populate. On any failure after
// preallocation the volume is fully cleaned up before the error is returned.
func (v *Volume) Setup(ctx context.Context) (string, error) {
	if !v.active.CompareAndSwap(false, true) {
		return "", fmt.Errorf("%w: volume already set up", ErrProvision)
	}

	if err := preallocate(v.cfg.ImagePath, v.cfg.ImageSize); err != nil {
		v.active.Store(false)
		return "", fmt.Errorf("%w: could not preallocate image: %w", ErrProvision, err)
	}

	mountPoint, err := v.setup(ctx)
	if err != nil {
		if cleanupErr := v.Cleanup(ctx); cleanupErr != nil {
			v.log.Error("Cleanup after failed setup", "err", cleanupErr)
		}
		return "", fmt.Errorf("%w: %w", ErrProvision, err)
	}

	if v.cfg.Debug {
		Inspect(ctx, v.run, v.cfg.ImagePath, v.log)
	}

	return mountPoint, nil
}

func (v *Volume) setup(ctx context.Context) (string, error) {
	v.log.Info("Formatting LUKS2 volume", slog.String("image", v.cfg.ImagePath))
	if err := v.cryptsetup(ctx,
		"luksFormat", "--type", "luks2", v.cfg.ImagePath,
		"--key-file", v.cfg.KeyPath,
		"--batch-mode",
		"--sector-size", luksSectorSize,
		"--cipher", luksCipher,
		"--pbkdf", "pbkdf2",
		"--pbkdf-force-iterations", luksPBKDFIterations,
	); err != nil {
		return "", fmt.Errorf("could not format image: %w", err)
	}

	v.log.Info("Opening LUKS volume")
	if err := v.cryptsetup(ctx,
		"open", v.cfg.ImagePath, v.cfg.MapperName,
		"--key-file", v.cfg.KeyPath,
		// No integrity journal, for performance.
		"--integrity-no-journal",
		"--persistent",
	); err != nil {
		return "", fmt.Errorf("could not open LUKS device: %w", err)
	}
	v.opened = true

	v.log.Info("Creating ext4 filesystem")
	if err := v.run.Run(ctx, "mkfs.ext4", v.MapperDevice()); err != nil {
		return "", fmt.Errorf("could not create filesystem: %w", err)
	}

	dir, err := os.MkdirTemp("", "encfs-mount-")
	if err != nil {
		return "", fmt.Errorf("could not create mount point: %w", err)
	}
	v.mountDir = dir

	v.log.Info("Mounting filesystem", slog.String("mountpoint", dir))
	if err := v.run.Run(ctx, "mount", "-t", "ext4", v.MapperDevice(), dir, "-o", "loop"); err != nil {
		return "", fmt.Errorf("could not mount filesystem: %w", err)
	}
	v.mounted = true

	return dir, nil
}

// Cleanup releases the volume: unmount, close the mapping, remove the mount
// directory. The steps are independent; a failed unmount does not prevent
// the close, and the directory is removed last regardless of the close
// outcome. Failures are logged and returned wrapped in ErrTeardown since a
// leaked device mapping has to be closed by hand. Calling Cleanup again is
// a no-op.
func (v *Volume) Cleanup(ctx context.Context) error {
	var errs []error

	if v.mountDir != "" {
		defer func() {
			if err := os.RemoveAll(v.mountDir); err != nil {
				v.log.Error("Failed to remove mount directory", "err", err)
			}
			v.mountDir = ""
		}()
	}

	if v.mounted {
		v.log.Info("Unmounting filesystem", slog.String("mountpoint", v.mountDir))
		if err := v.run.Run(ctx, "umount", v.mountDir); err != nil {
			v.log.Error("Failed to unmount filesystem", "err", err)
			errs = append(errs, fmt.Errorf("could not unmount filesystem: %w", err))
		}
		v.mounted = false
	}

	if v.opened {
		v.log.Info("Closing LUKS device")
		if err := v.cryptsetup(ctx, "close", v.cfg.MapperName); err != nil {
			v.log.Error("Failed to close LUKS device", "err", err)
			errs = append(errs, fmt.Errorf("could not close LUKS device: %w", err))
		}
		v.opened = false
	}

	v.active.Store(false)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrTeardown, errors.Join(errs...))
	}
	return nil
}

// preallocate creates a sparse file of exactly the requested size by seeking
// to size-1 and writing a single zero byte.
func preallocate(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}

	if _, err := f.Seek(size-1, io.SeekStart); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write([]byte{0}); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
