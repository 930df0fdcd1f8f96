package utils

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderMinio = "minio"
)

const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ObjectInfo is the listing view of a stored object.
// LastModified is the storage write time, not anything carried in the object body.
type ObjectInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// BlobStore is the object storage surface the audit pipelines need.
// Upload always overwrites. EnsureBucket creates the bucket when absent and
// treats "already exists" as success.
type BlobStore interface {
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Download(ctx context.Context, bucket, name string) ([]byte, error)
	Upload(ctx context.Context, bucket, name string, data []byte, contentType string) error
	EnsureBucket(ctx context.Context, bucket string) error
	Close() error
}

type StorageOptions struct {
	Provider string

	// S3-compatible (minio) accounts.
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// GCS.
	ProjectID       string
	CredentialsJSON string
}

func NormalizeStorageProvider(provider, def string) string {
	provider = strings.TrimSpace(strings.ToLower(provider))
	if provider == "" {
		return def
	}
	return provider
}

func NewBlobStore(ctx context.Context, opts StorageOptions) (BlobStore, error) {
	switch opts.Provider {
	case StorageProviderGCS:
		return NewGCSStore(ctx, opts.ProjectID, opts.CredentialsJSON)
	case StorageProviderMinio:
		return NewMinioStore(opts.Endpoint, opts.AccessKey, opts.SecretKey, opts.UseSSL)
	default:
		return nil, fmt.Errorf("storage provider %q is not supported", opts.Provider)
	}
}
