// Package storage abstracts blob storage for embedding vectors and cycle
// reports. Embeddings are expensive to recompute and near-static, so they
// live in durable blob storage rather than the in-memory cache or Postgres.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore abstracts blob storage for embeddings and cycle reports.
type BlobStore interface {
	PutEmbedding(ctx context.Context, paperID string, data []byte) error
	GetEmbedding(ctx context.Context, paperID string) ([]byte, error)
	PutCycleReport(ctx context.Context, cycleID string, data []byte) error
	GetCycleReport(ctx context.Context, cycleID string) ([]byte, error)
}

// LocalStorage implements BlobStore using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(kind, id string) string {
	return filepath.Join(s.BaseDir, kind, id+".json")
}

func (s *LocalStorage) put(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// PutEmbedding stores a paper's embedding vector.
func (s *LocalStorage) PutEmbedding(ctx context.Context, paperID string, data []byte) error {
	return s.put(s.path("embeddings", paperID), data)
}

// GetEmbedding retrieves a paper's embedding vector.
func (s *LocalStorage) GetEmbedding(ctx context.Context, paperID string) ([]byte, error) {
	return os.ReadFile(s.path("embeddings", paperID))
}

// PutCycleReport stores a ranking cycle's summary report.
func (s *LocalStorage) PutCycleReport(ctx context.Context, cycleID string, data []byte) error {
	return s.put(s.path("cycles", cycleID), data)
}

// GetCycleReport retrieves a ranking cycle's summary report.
func (s *LocalStorage) GetCycleReport(ctx context.Context, cycleID string) ([]byte, error) {
	return os.ReadFile(s.path("cycles", cycleID))
}
