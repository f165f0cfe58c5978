package uploader

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// ErrInvalidLocationURI indicates a malformed upload destination URI.
var ErrInvalidLocationURI = errors.New("invalid upload location URI")

// UploaderFor creates an upload backend from a location URI.
//
// Supported schemes:
//   - az://account/container - Azure blob storage via the az CLI
//   - s3://bucket/prefix?region=..&endpoint=..&access_key=..&secret_key=.. -
//     Amazon S3 or compatible object storage
//   - file:///dir - local directory
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func UploaderFor(locationURI string, log *slog.Logger) (Uploader, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}
	if log == nil {
		log = slog.Default()
	}

	switch strings.ToLower(u.Scheme) {
	case "az":
		container := strings.Trim(u.Path, "/")
		if u.Host == "" || container == "" || strings.Contains(container, "/") {
			return nil, fmt.Errorf("%w: az URI must be az://account/container", ErrInvalidLocationURI)
		}
		return NewAzCLI(u.Host, container, nil, log), nil

	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: s3 URI must include a bucket", ErrInvalidLocationURI)
		}
		params := u.Query()
		region := params.Get("region")
		if region == "" {
			region = "us-east-1"
		}
		return NewS3(
			u.Host,
			strings.Trim(u.Path, "/"),
			region,
			params.Get("endpoint"),
			params.Get("access_key"),
			params.Get("secret_key"),
			log,
		)

	case "file":
		if u.Path == "" {
			return nil, fmt.Errorf("%w: file URI must include a directory", ErrInvalidLocationURI)
		}
		return NewFile(u.Path, log)

	default:
		return nil, fmt.Errorf("%w: unsupported scheme: %s", ErrInvalidLocationURI, u.Scheme)
	}
}
