// Package archive keeps the normalized enrollment photos so embeddings can be
// recomputed when the extractor model changes.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// Archiver stores an enrollment image and returns its key.
type Archiver interface {
	Store(ctx context.Context, employeeCode string, image []byte) (string, error)
}

// Nop discards images.
type Nop struct{}

// Store does nothing.
func (Nop) Store(context.Context, string, []byte) (string, error) { return "", nil }

// Key returns the object key for an enrollment image.
func Key(employeeCode string, id uuid.UUID) string {
	return fmt.Sprintf("enrollments/%s/%s.jpg", url.PathEscape(employeeCode), id)
}

// S3 uploads enrollment images to an S3 bucket.
type S3 struct {
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3 creates an uploader for cfg.Bucket. Static credentials are used when set,
// otherwise the SDK's default chain.
func NewS3(cfg config.ArchiveConfig) (*S3, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}

	return &S3{
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
	}, nil
}

// Store uploads the JPEG image under a fresh key.
func (s *S3) Store(ctx context.Context, employeeCode string, image []byte) (string, error) {
	key := Key(employeeCode, uuid.New())
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(image),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}
