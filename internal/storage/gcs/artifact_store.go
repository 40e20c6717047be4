// Package gcs provides an ArtifactStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// ArtifactStore stores screenshot artifacts in a configured GCS bucket.
type ArtifactStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed artifact store.
func New(client *storage.Client, cfg Config) (*ArtifactStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &ArtifactStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Upload writes data to the configured bucket under name.
func (s *ArtifactStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	if strings.TrimSpace(name) == "" {
		return &watch.StorageError{Op: "upload", Err: fmt.Errorf("name is required")}
	}
	writer := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			err = fmt.Errorf("%w (close writer: %v)", err, closeErr)
		}
		return &watch.StorageError{Op: "upload", Name: name, Err: err}
	}
	if err := writer.Close(); err != nil {
		return &watch.StorageError{Op: "upload", Name: name, Err: err}
	}
	return nil
}

// Delete removes the named object from the bucket.
func (s *ArtifactStore) Delete(ctx context.Context, name string) error {
	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil {
		return &watch.StorageError{Op: "delete", Name: name, Err: err}
	}
	return nil
}

// List enumerates every object name in the bucket. The iterator paginates
// internally, so buckets past the backend page size list completely rather
// than truncating.
func (s *ArtifactStore) List(ctx context.Context) ([]string, error) {
	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &watch.StorageError{Op: "list", Err: err}
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}
