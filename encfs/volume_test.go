package encfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records every external command instead of executing it, and
// fails commands whose joined form contains a configured substring.
type fakeRunner struct {
	calls  []string
	failOn map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{failOn: map[string]error{}}
}

func (r *fakeRunner) record(name string, args []string) error {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	for substr, err := range r.failOn {
		if strings.Contains(call, substr) {
			return err
		}
	}
	return nil
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	return r.record(name, args)
}

func (r *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := r.record(name, args); err != nil {
		return nil, err
	}
	return []byte("ok"), nil
}

func (r *fakeRunner) callsContaining(substr string) []string {
	var matched []string
	for _, call := range r.calls {
		if strings.Contains(call, substr) {
			matched = append(matched, call)
		}
	}
	return matched
}

func newTestVolume(t *testing.T, run Runner) *Volume {
	t.Helper()

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "keyfile")
	require.NoError(t, os.WriteFile(keyPath, []byte(strings.Repeat("0", 32)), 0600))

	return NewVolume(Config{
		ImagePath:  filepath.Join(dir, "disk.img"),
		KeyPath:    keyPath,
		MapperName: "testmapper",
	}, run)
}

func TestVolumeSetupRunsFullSequence(t *testing.T) {
	run := newFakeRunner()
	vol := newTestVolume(t, run)

	mountPoint, err := vol.Setup(context.Background())
	require.NoError(t, err)
	require.DirExists(t, mountPoint)

	// Image preallocated to exactly 64 MiB before formatting.
	info, err := os.Stat(vol.cfg.ImagePath)
	require.NoError(t, err)
	assert.Equal(t, int64(64*1024*1024), info.Size())

	require.Len(t, run.calls, 4)
	assert.Contains(t, run.calls[0], "cryptsetup --debug -v luksFormat --type luks2")
	assert.Contains(t, run.calls[0], "--batch-mode")
	assert.Contains(t, run.calls[0], "--sector-size 4096")
	assert.Contains(t, run.calls[0], "--cipher aes-xts-plain64")
	assert.Contains(t, run.calls[0], "--pbkdf pbkdf2 --pbkdf-force-iterations 1000")
	assert.Contains(t, run.calls[1], "cryptsetup --debug -v open")
	assert.Contains(t, run.calls[1], "--integrity-no-journal --persistent")
	assert.Equal(t, "mkfs.ext4 /dev/mapper/testmapper", run.calls[2])
	assert.Equal(t, "mount -t ext4 /dev/mapper/testmapper "+mountPoint+" -o loop", run.calls[3])

	require.NoError(t, vol.Cleanup(context.Background()))
	require.Len(t, run.calls, 6)
	assert.Equal(t, "umount "+mountPoint, run.calls[4])
	assert.Equal(t, "cryptsetup --debug -v close testmapper", run.calls[5])
	assert.NoDirExists(t, mountPoint)

	// Second Cleanup is a no-op.
	require.NoError(t, vol.Cleanup(context.Background()))
	assert.Len(t, run.calls, 6)
}

func TestVolumeSetupFailureCleansUp(t *testing.T) {
	tests := []struct {
		name        string
		failOn      string
		expectClose bool
	}{
		{
			name:        "format fails before device is mapped",
			failOn:      "luksFormat",
			expectClose: false,
		},
		{
			name:        "open fails before device is mapped",
			failOn:      "cryptsetup --debug -v open",
			expectClose: false,
		},
		{
			name:        "filesystem creation fails with device mapped",
			failOn:      "mkfs.ext4",
			expectClose: true,
		},
		{
			name:        "mount fails with device mapped",
			failOn:      "mount -t ext4",
			expectClose: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := newFakeRunner()
			run.failOn[tt.failOn] = errors.New("tool exploded")
			vol := newTestVolume(t, run)

			_, err := vol.Setup(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProvision)

			closes := run.callsContaining("cryptsetup --debug -v close")
			if tt.expectClose {
				assert.Len(t, closes, 1, "device mapping must be released")
			} else {
				assert.Empty(t, closes)
			}

			// The mount directory, if it was created, must be gone.
			if mounts := run.callsContaining("mount -t ext4"); len(mounts) > 0 {
				fields := strings.Fields(mounts[0])
				mountPoint := fields[4]
				assert.NoDirExists(t, mountPoint)
			}

			// A failed setup never leaves the umount step behind.
			assert.Empty(t, run.callsContaining("umount"))
		})
	}
}

func TestVolumeCleanupUnmountFailureStillCloses(t *testing.T) {
	run := newFakeRunner()
	vol := newTestVolume(t, run)

	mountPoint, err := vol.Setup(context.Background())
	require.NoError(t, err)

	run.failOn["umount"] = errors.New("target is busy")

	err = vol.Cleanup(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTeardown)

	// The close step is independent from the failed unmount, and the mount
	// directory is removed regardless.
	assert.Len(t, run.callsContaining("cryptsetup --debug -v close"), 1)
	assert.NoDirExists(t, mountPoint)

	require.NoError(t, vol.Cleanup(context.Background()))
}

func TestVolumeSetupTwiceRejected(t *testing.T) {
	run := newFakeRunner()
	vol := newTestVolume(t, run)

	_, err := vol.Setup(context.Background())
	require.NoError(t, err)
	defer vol.Cleanup(context.Background())

	_, err = vol.Setup(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProvision)
}

func TestGenerateMapperName(t *testing.T) {
	a := GenerateMapperName()
	b := GenerateMapperName()

	assert.True(t, strings.HasPrefix(a, "encfs-"))
	assert.Len(t, a, len("encfs-")+8)
	assert.NotEqual(t, a, b)
}

func TestPreallocateSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	require.NoError(t, preallocate(path, 1024))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Size())
}
