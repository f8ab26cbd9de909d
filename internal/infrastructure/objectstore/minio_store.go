// Package objectstore uploads processed media to S3-compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"ContentEnricher/internal/ports"
)

// Config holds the endpoint, bucket and public address of the store.
type Config struct {
	Endpoint  string
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Bucket    string
	Region    string
	UseSSL    bool
	// PublicBaseURL is prepended to object paths in returned URLs. When empty
	// the endpoint URL and bucket are used.
	PublicBaseURL string
}

// MinioStore implements ports.ObjectStore.
type MinioStore struct {
	client *minio.Client
	bucket string
	base   string
}

var _ ports.ObjectStore = (*MinioStore)(nil)

// NewMinioStore creates the client. It does not contact the server.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("object store endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("object store bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + cfg.Bucket
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, base: base}, nil
}

// Put uploads data at path and returns its public URL.
func (s *MinioStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", errors.New("object path is empty")
	}

	_, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", path, err)
	}
	return s.PublicURL(path), nil
}

// PublicURL maps an object path to the address clients fetch it from.
func (s *MinioStore) PublicURL(path string) string {
	return s.base + "/" + strings.TrimLeft(path, "/")
}
