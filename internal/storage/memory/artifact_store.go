// Package memory stores artifacts in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// ArtifactStore keeps artifact blobs in a map.
type ArtifactStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewArtifactStore creates a new in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		data: make(map[string][]byte),
	}
}

// Upload persists a copy of the content under name.
func (s *ArtifactStore) Upload(_ context.Context, name string, data []byte, _ string) error {
	if name == "" {
		return &watch.StorageError{Op: "upload", Err: fmt.Errorf("name is required")}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = append([]byte(nil), data...)
	return nil
}

// Delete removes the named artifact. Deleting a missing name is an error,
// matching object-store semantics.
func (s *ArtifactStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[name]; !ok {
		return &watch.StorageError{Op: "delete", Name: name, Err: fmt.Errorf("object not found")}
	}
	delete(s.data, name)
	return nil
}

// List returns all stored names in sorted order.
func (s *ArtifactStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the stored content, for test assertions.
func (s *ArtifactStore) Get(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[name]
	return data, ok
}
