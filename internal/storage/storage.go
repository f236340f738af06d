package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/warenvoyage/apiserver/config"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Object is an opened stored object. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Documents stores identity verification documents, one per identity.
type Documents struct {
	backend ObjectStorage
}

func NewDocuments(backend ObjectStorage) *Documents {
	return &Documents{backend: backend}
}

// KYCKey is the object key of an identity's verification document.
func KYCKey(userID uuid.UUID) string {
	return fmt.Sprintf("kyc/%s/document", userID)
}

// PutKYCDocument stores the document, replacing any previous one.
func (d *Documents) PutKYCDocument(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return d.backend.Put(ctx, KYCKey(userID), r, size, contentType)
}

// OpenKYCDocument returns ErrNotFound when nothing was submitted.
func (d *Documents) OpenKYCDocument(ctx context.Context, userID uuid.UUID) (Object, error) {
	return d.backend.Get(ctx, KYCKey(userID))
}

// DeleteKYCDocument is a no-op when nothing was submitted.
func (d *Documents) DeleteKYCDocument(ctx context.Context, userID uuid.UUID) error {
	err := d.backend.Delete(ctx, KYCKey(userID))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Open connects the backend selected by cfg.Backend and makes sure its
// bucket exists. It returns a nil backend when document storage is disabled.
func Open(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case "minio":
		backend, err = newMinio(cfg.Minio)
	case "gcs":
		backend, err = newGCS(ctx, cfg.GCS)
	case "memory":
		// Documents are lost on restart.
		backend = NewMemoryStorage("kyc")
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return backend, nil
}

// newMinio and newGCS return the interface so a failed constructor never
// yields a typed nil.
func newMinio(cfg config.MinioConfig) (ObjectStorage, error) {
	client, err := NewMinioClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newGCS(ctx context.Context, cfg config.GCSConfig) (ObjectStorage, error) {
	client, err := NewGCSClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
