// Package images stores building photos as data-URL payloads in a blob store
// under generated readable filenames.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrInvalidInput indicates a malformed payload or filename.
	ErrInvalidInput = errors.New("images: invalid input")
	// ErrNotFound indicates that no image is stored under the filename.
	ErrNotFound = errors.New("images: image not found")
	// ErrPayloadTooLarge indicates an upload above the configured size.
	ErrPayloadTooLarge = errors.New("images: payload too large")

	errMissingStore = errors.New("blob store is required")
	noOpLogger      = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew       = "images.service.new"
	opUpload           = "images.upload"
	opFetch            = "images.fetch"
	opDelete           = "images.delete"
	reasonMissingStore = "missing_store"
	reasonInvalidInput = "invalid_input"
	reasonTooLarge     = "payload_too_large"
	reasonNotFound     = "not_found"
	reasonStoreFailed  = "store_failed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Store    BlobStore
	MaxBytes int64
	Logger   *zap.Logger
	// NameGenerator overrides GenerateName.
	NameGenerator func() string
}

type Service struct {
	store         BlobStore
	maxBytes      int64
	logger        *zap.Logger
	nameGenerator func() string
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, reasonMissingStore, errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	generator := cfg.NameGenerator
	if generator == nil {
		generator = GenerateName
	}
	return &Service{
		store:         cfg.Store,
		maxBytes:      cfg.MaxBytes,
		logger:        logger,
		nameGenerator: generator,
	}, nil
}

// Upload stores the data URL verbatim and returns the generated filename.
func (s *Service) Upload(ctx context.Context, payload string) (string, error) {
	if s.maxBytes > 0 && int64(len(payload)) > s.maxBytes {
		return "", newServiceError(opUpload, reasonTooLarge,
			fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, len(payload), s.maxBytes))
	}
	if _, err := ParseDataURL(payload); err != nil {
		return "", newServiceError(opUpload, reasonInvalidInput, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	filename := s.nameGenerator()
	if err := s.store.Put(ctx, filename, []byte(strings.TrimSpace(payload))); err != nil {
		s.logError(opUpload, reasonStoreFailed, err, zap.String("filename", filename))
		return "", newServiceError(opUpload, reasonStoreFailed, err)
	}
	return filename, nil
}

// Fetch returns the stored payload bytes.
func (s *Service) Fetch(ctx context.Context, filename string) ([]byte, error) {
	name, err := checkFilename(opFetch, filename)
	if err != nil {
		return nil, err
	}
	payload, err := s.store.Get(ctx, name)
	if errors.Is(err, ErrBlobNotFound) {
		return nil, newServiceError(opFetch, reasonNotFound, ErrNotFound)
	}
	if err != nil {
		s.logError(opFetch, reasonStoreFailed, err, zap.String("filename", name))
		return nil, newServiceError(opFetch, reasonStoreFailed, err)
	}
	return payload, nil
}

// Delete removes the blob. Deleting an absent filename succeeds.
func (s *Service) Delete(ctx context.Context, filename string) error {
	name, err := checkFilename(opDelete, filename)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.logError(opDelete, reasonStoreFailed, err, zap.String("filename", name))
		return newServiceError(opDelete, reasonStoreFailed, err)
	}
	return nil
}

func checkFilename(operation, filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if !validFilename(name) {
		return "", newServiceError(operation, reasonInvalidInput,
			fmt.Errorf("%w: filename %q", ErrInvalidInput, filename))
	}
	return name, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("images service error", attrs...)
}
