package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hyperjump/kubun/internal/config"
)

// S3 stores objects in an S3 bucket under a key prefix.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 loads AWS configuration, using static credentials when both keys are set
// and the default provider chain otherwise.
func NewS3(ctx context.Context, cfg *config.ArchiveConfig) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 archive requires a bucket")
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.AWSAccessKey != "" && cfg.AWSSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.S3Bucket,
		prefix: cfg.S3Prefix,
	}, nil
}

// objectKey joins the configured prefix and key with exactly one slash.
func objectKey(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return strings.TrimRight(prefix, "/") + "/" + key
}

// Put uploads data to key.
func (s *S3) Put(ctx context.Context, key string, data io.Reader, contentType string) error {
	if contentType == "" {
		contentType = ContentType(key)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(s.prefix, key)),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Get downloads key.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	return out.Body, nil
}

// Delete removes key.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// Append rewrites key with data added. S3 has no append, so concurrent appends to
// the same key from different processes can lose lines.
func (s *S3) Append(ctx context.Context, key string, data []byte) error {
	var buf bytes.Buffer
	rc, err := s.Get(ctx, key)
	switch {
	case err == nil:
		_, err = io.Copy(&buf, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", key, err)
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}
	buf.Write(data)
	return s.Put(ctx, key, &buf, ContentType(key))
}
