package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paperradar/paperradar/pkg/config"
)

// NewFromConfig constructs the configured BlobStore backend.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStorage(cfg.Dir), nil
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	case "gcs":
		return NewGCSStorage(ctx, cfg.GCSBucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// EncodeEmbedding serializes an embedding vector for blob storage.
func EncodeEmbedding(vec []float32) ([]byte, error) {
	return json.Marshal(vec)
}

// DecodeEmbedding deserializes an embedding vector from blob storage.
func DecodeEmbedding(data []byte) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	return vec, nil
}
