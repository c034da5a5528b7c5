package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/danvolkens/haven-hub-api/pkg/config"
)

// Storage path prefixes inside the bucket.
const (
	PathAssets  = "assets"
	PathMockups = "mockups"
)

// ObjectStore persists rendered binaries in an S3-compatible bucket and
// produces the public URLs the publish API needs.
type ObjectStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewObjectStore connects to the configured bucket.
func NewObjectStore(cfg config.ObjectStoreConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store connect: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &ObjectStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// UploadImage stores image bytes under a generated key and returns (key, url).
func (s *ObjectStore) UploadImage(ctx context.Context, prefix, accountID, name string, data []byte, contentType string) (string, string, error) {
	if contentType == "" {
		contentType = "image/png"
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s/%s/%d/%02d/%s-%s",
		prefix,
		accountID,
		now.Year(),
		now.Month(),
		uuid.NewString(),
		name,
	)

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
			UserMetadata: map[string]string{
				"account-id":  accountID,
				"uploaded-at": now.Format(time.RFC3339),
			},
		})
	if err != nil {
		return "", "", fmt.Errorf("object store upload: %w", err)
	}

	return key, fmt.Sprintf("%s/%s", s.publicURL, key), nil
}

// Delete removes a stored object.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("object store delete: %w", err)
	}
	return nil
}
