package storage

import (
	"context"
	"fmt"

	"github.com/jaki95/ambient-mixer/config"
)

// NewFromConfig builds the storage backend selected by cfg.Type.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalFileStorage(cfg.OutputDir, cfg.TempDir)
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket, cfg.ObjectPrefix, cfg.TempDir, cfg.CredentialsFile, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
