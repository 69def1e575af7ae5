package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const fallbackContentType = "application/octet-stream"

// Uploader stores a chat attachment and returns the public URL that
// goes into the message's fileUrl field.
type Uploader interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (fileURL string, err error)
}

// AttachmentBucket stores attachments in a single S3-compatible bucket.
// The bucket is created on first upload and made publicly readable, so
// fileUrl values resolve in the chat client without signed URLs.
type AttachmentBucket struct {
	bucket    string
	publicURL string
	client    *minio.Client
	logger    *slog.Logger

	initOnce sync.Once
	initErr  error
}

// NewAttachmentBucket connects to the configured endpoint. publicBaseURL
// is what clients can reach (it differs from endpoint when MinIO sits
// behind a proxy); empty falls back to the endpoint itself.
func NewAttachmentBucket(endpoint string, useSSL bool, accessKey, secretKey, bucket, publicBaseURL string, logger *slog.Logger) (*AttachmentBucket, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	client, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}

	public := strings.TrimSpace(publicBaseURL)
	if public == "" {
		public = endpoint
	}
	return &AttachmentBucket{
		bucket:    bucket,
		publicURL: strings.TrimRight(public, "/"),
		client:    client,
		logger:    logger,
	}, nil
}

func (b *AttachmentBucket) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := b.ensureBucket(ctx); err != nil {
		return "", err
	}

	if contentType == "" {
		// Browsers usually send one; fall back to the file extension.
		contentType = mime.TypeByExtension(path.Ext(key))
		if contentType == "" {
			contentType = fallbackContentType
		}
	}

	_, err := b.client.PutObject(ctx, b.bucket, key, reader, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}

	fileURL := fmt.Sprintf("%s/%s/%s", b.publicURL, b.bucket, key)
	if b.logger != nil {
		b.logger.Info("attachment stored", "bucket", b.bucket, "key", key, "content_type", contentType)
	}
	return fileURL, nil
}

func (b *AttachmentBucket) ensureBucket(ctx context.Context) error {
	b.initOnce.Do(func() {
		exists, err := b.client.BucketExists(ctx, b.bucket)
		if err != nil {
			b.initErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if !exists {
			if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
				b.initErr = fmt.Errorf("s3: create bucket: %w", err)
				return
			}
		}
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, b.bucket)
		if err := b.client.SetBucketPolicy(ctx, b.bucket, policy); err != nil {
			b.initErr = fmt.Errorf("s3: set bucket policy: %w", err)
		}
	})
	return b.initErr
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// NoopUploader fails fast when no object storage is configured, so a
// misconfigured deployment surfaces at the first upload rather than
// producing dead fileUrl values.
type NoopUploader struct{}

func (NoopUploader) Upload(context.Context, string, io.Reader, string) (string, error) {
	return "", errors.New("s3: uploader is not configured")
}

var _ Uploader = (*AttachmentBucket)(nil)
var _ Uploader = NoopUploader{}
