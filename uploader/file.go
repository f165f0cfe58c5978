package uploader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// File copies blobs into a local directory. It exists for tests and local
// development, where no cloud credentials are available.
type File struct {
	dir string
	log *slog.Logger
}

// NewFile creates a file upload backend rooted at dir, creating the
// directory if needed.
func NewFile(dir string, log *slog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	return &File{dir: dir, log: log}, nil
}

// Upload copies the file to <dir>/<blob name>, overwriting any existing
// file of the same name.
func (u *File) Upload(ctx context.Context, blob Blob, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: could not open file: %w", ErrUpload, err)
	}
	defer src.Close()

	destPath := filepath.Join(u.dir, blob.Name)
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: could not create destination: %w", ErrUpload, err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		return fmt.Errorf("%w: could not copy blob: %w", ErrUpload, err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("%w: could not close destination: %w", ErrUpload, err)
	}

	u.log.Debug("Stored blob in directory",
		slog.String("path", destPath),
		slog.String("blob", blob.Name))

	return nil
}

// Name returns a unique identifier for this upload backend.
func (u *File) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(u.dir))
}
