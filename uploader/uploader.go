package uploader

import (
	"context"
	"errors"
)

// ErrUpload wraps any failure while storing a blob.
var ErrUpload = errors.New("blob upload failed")

// Blob identifies the destination object of an upload.
type Blob struct {
	// Name is the blob name within the destination container or bucket.
	Name string

	// Type is the storage tool's blob type parameter (for Azure: block,
	// page or append).
	Type string
}

// Uploader stores a local file as a blob. Existing blobs of the same name
// are overwritten.
type Uploader interface {
	Upload(ctx context.Context, blob Blob, path string) error

	// Name returns a unique identifier for this upload backend.
	Name() string
}
