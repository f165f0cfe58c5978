package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3 uploads blobs to Amazon S3 or a compatible object store.
type S3 struct {
	client *s3.S3
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3 creates an S3 upload backend. If accessKey and secretKey are empty
// the default credential chain is used, which may only work against public
// writable buckets.
func NewS3(bucket, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	} else {
		log.Warn("No S3 credentials provided - uploads may fail unless bucket is public writable")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3{
		client: s3.New(sess),
		bucket: bucket,
		prefix: prefix,
		log:    log,
	}, nil
}

// Upload stores the file under the blob name, overwriting any existing
// object (S3 PUT semantics).
func (u *S3) Upload(ctx context.Context, blob Blob, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%w: could not open file: %w", ErrUpload, err)
	}
	defer f.Close()

	key := blob.Name
	if u.prefix != "" {
		key = path.Join(u.prefix, blob.Name)
	}

	u.log.Info("Uploading blob to S3",
		slog.String("bucket", u.bucket),
		slog.String("key", key),
		slog.String("file", filePath))

	_, err = u.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upload object to S3: %w", ErrUpload, err)
	}

	return nil
}

// Name returns a unique identifier for this upload backend.
func (u *S3) Name() string {
	return fmt.Sprintf("s3-%s", u.bucket)
}
