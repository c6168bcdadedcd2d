package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Config holds S3/MinIO configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string // base URL used to build report locations
}

// Client stores failure reports in an S3 bucket
type Client struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

// NewClient creates a new S3/MinIO client. No request is made until first use.
func NewClient(cfg *Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		logger:    logger.With().Str("component", "s3_client").Logger(),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist. Reports stay private.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		c.logger.Info().Str("bucket", c.bucket).Msg("created S3 bucket")
	}

	return nil
}

// Upload stores an object and returns its location
func (c *Client) Upload(ctx context.Context, objectKey, contentType string, reader io.Reader, size int64) (string, error) {
	_, err := c.client.PutObject(ctx, c.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", objectKey, err)
	}

	location := c.ObjectURL(objectKey)
	c.logger.Debug().
		Str("object_key", objectKey).
		Str("url", location).
		Int64("size", size).
		Msg("uploaded object to S3")

	return location, nil
}

// ObjectURL returns the URL of objectKey, or an s3:// URI without a public URL
func (c *Client) ObjectURL(objectKey string) string {
	if c.publicURL == "" {
		return fmt.Sprintf("s3://%s/%s", c.bucket, objectKey)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicURL, c.bucket, objectKey)
}
