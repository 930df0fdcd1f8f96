package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSStore struct {
	client    *storage.Client
	projectID string
}

// NewGCSStore prefers ADC (Cloud Run service account / GOOGLE_APPLICATION_CREDENTIALS).
// Pass credJSON to use explicit service account credentials (e.g. locally).
func NewGCSStore(ctx context.Context, projectID, credJSON string) (*GCSStore, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSStore{client: client, projectID: projectID}, nil
}

func (s *GCSStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var out []ObjectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", bucket, prefix, err)
		}
		out = append(out, ObjectInfo{
			Name:         attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}
	return out, nil
}

func (s *GCSStore) Download(ctx context.Context, bucket, name string) ([]byte, error) {
	rc, err := s.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, name, ErrorObjectNotFound)
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %v", bucket, name, err)
	}
	return data, nil
}

func (s *GCSStore) Upload(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	wc := s.client.Bucket(bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to upload bytes to Google Cloud Storage: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %v", err)
	}
	return nil
}

func (s *GCSStore) EnsureBucket(ctx context.Context, bucket string) error {
	if s.projectID == "" {
		// Creating needs a project; without one we can only check access.
		if _, err := s.client.Bucket(bucket).Attrs(ctx); err != nil {
			return fmt.Errorf("gcs bucket %q not found or not accessible: %v", bucket, err)
		}
		return nil
	}

	err := s.client.Bucket(bucket).Create(ctx, s.projectID, nil)
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
		return nil
	}
	return fmt.Errorf("create gcs bucket %q: %w", bucket, err)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
