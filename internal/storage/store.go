// Package storage abstracts the blob backend holding uploaded files. Open
// returns a seekable reader so the stream handler can serve byte ranges from
// either backend.
package storage

import (
	"context"
	"errors"
	"io"

	"vidscreen/internal/config"
)

var ErrNotExist = errors.New("object does not exist")

type Store interface {
	// Save writes the object under key. size must be the exact byte count.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns a seekable reader positioned at the start of the object.
	Open(ctx context.Context, key string) (io.ReadSeekCloser, error)
	// Stat returns the object size, or ErrNotExist.
	Stat(ctx context.Context, key string) (int64, error)
	// Delete removes the object. Deleting an absent object is not an error.
	Delete(ctx context.Context, key string) error
}

func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "s3":
		return NewMinioStore(cfg)
	default:
		return NewDiskStore(cfg.BaseDir)
	}
}
