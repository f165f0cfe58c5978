// Package encfs provisions temporary LUKS2-encrypted filesystems backed by
// plain files.
//
// A Volume wraps the full lifecycle of one encrypted volume: preallocate the
// backing image, format it with cryptsetup, open the device mapping, create
// an ext4 filesystem, and mount it on a fresh temporary directory. Cleanup
// releases everything in reverse order and is safe to call more than once.
//
// All operations delegate to the host's cryptsetup, mkfs.ext4, mount and
// umount binaries and require root. The LUKS configuration uses a minimal
// PBKDF iteration count; the resulting volume is test tooling, not a
// hardened secret store.
//
// Basic usage:
//
//	vol := encfs.NewVolume(encfs.Config{
//		ImagePath: "/tmp/disk.img",
//		KeyPath:   "/tmp/keyfile",
//	}, nil)
//
//	mountPoint, err := vol.Setup(ctx)
//	if err != nil {
//		log.Fatalf("Failed to set up volume: %v", err)
//	}
//	defer vol.Cleanup(ctx)
//
//	// Populate mountPoint, then Cleanup leaves the encrypted image
//	// at ImagePath.
package encfs
