package storage

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
)

// Path under which blobs written by the local disk store are served.
const UploadsPath = "/uploads"

type Blob struct {
	Filename    string
	ContentType string
	Data        []byte
}

type BlobStore interface {
	// Validates and persists the blob, returning the reference that should be
	// recorded as the artwork image url.
	Put(ctx context.Context, blob Blob) (string, error)

	Delete(ctx context.Context, ref string) error

	// Router that serves stored blobs, nil when they are served by another system.
	Routes() chi.Router

	Type() string
}

type UsageReporter interface {
	Usage() (DiskUsage, error)
}

type DiskUsage struct {
	TotalBytes uint64
	FreeBytes  uint64
}

type Config struct {
	Backend   string
	UploadDir string
	S3        S3Config
}

func New(cfg Config) (BlobStore, error) {
	switch cfg.Backend {
	case "", "local":
		store, err := NewLocalDisk(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3Store(cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("invalid blob backend '%v', must be one of 'local' or 's3'", cfg.Backend)
	}
}
