// Package uploader stores finished image files as blobs in external storage.
//
// Backends implement the Uploader interface and are created from location
// URIs via UploaderFor:
//
//   - az://account/container - Azure blob storage via the az CLI, using the
//     ambient login session
//   - s3://bucket/prefix?region=..&endpoint=.. - Amazon S3 or compatible
//     object storage
//   - file:///dir - a local directory, for tests and local development
package uploader
