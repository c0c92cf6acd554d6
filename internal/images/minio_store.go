package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	bucketEnsureTimeout = 5 * time.Second
	payloadContentType  = "text/plain"
	minioNoSuchKey      = "NoSuchKey"
)

// MinIOStore keeps blobs as objects in a single bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore connects and makes sure the bucket exists.
func NewMinIOStore(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("images: minio client: %w", err)
	}

	ensureCtx, cancel := context.WithTimeout(ctx, bucketEnsureTimeout)
	defer cancel()
	if err := client.MakeBucket(ensureCtx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, existsErr := client.BucketExists(ensureCtx, cfg.Bucket)
		if existsErr != nil || !exists {
			return nil, fmt.Errorf("images: minio bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinIOStore) Put(ctx context.Context, key string, payload []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: payloadContentType})
	return err
}

func (s *MinIOStore) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinIOError(err)
	}
	defer object.Close()

	payload, err := io.ReadAll(object)
	if err != nil {
		return nil, translateMinIOError(err)
	}
	return payload, nil
}

func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func translateMinIOError(err error) error {
	if minio.ToErrorResponse(err).Code == minioNoSuchKey {
		return ErrBlobNotFound
	}
	return err
}
