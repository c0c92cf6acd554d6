package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/config"
)

// ErrBlobNotFound is returned by a BlobStore when no blob exists under a key.
var ErrBlobNotFound = errors.New("images: blob not found")

// BlobStore persists opaque payloads under string keys.
// Delete of an absent key succeeds.
type BlobStore interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// OpenStore builds the blob store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.BlobConfig) (BlobStore, error) {
	switch cfg.Driver {
	case config.BlobDriverMemory, "":
		return NewMemoryStore(), nil
	case config.BlobDriverRedis:
		return NewRedisStoreFromConfig(ctx, cfg.Redis)
	case config.BlobDriverMinIO:
		return NewMinIOStore(ctx, cfg.MinIO)
	case config.BlobDriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("images: unsupported blob driver %q", cfg.Driver)
	}
}
