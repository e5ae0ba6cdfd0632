package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Key identifies one immutable object in durable storage.
type Key string

// Storage is the durable object storage collaborator of the build
// engine. Objects are immutable once written: Upload always mints a new
// key under the given prefix and never overwrites, which makes uploads
// safe to retry and abandoned uploads harmless orphans for external
// garbage collection.
type Storage interface {
	// Upload streams r into a new object and returns its key and size.
	Upload(ctx context.Context, prefix string, r io.Reader) (Key, int64, error)

	// Download opens the object for reading.
	Download(ctx context.Context, key Key) (io.ReadCloser, error)

	// Delete removes an object. The build engine never calls this; it
	// exists for external garbage collection of orphaned uploads.
	Delete(ctx context.Context, key Key) error
}

// DownloadAll reads the whole object into memory.
func DownloadAll(ctx context.Context, s Storage, key Key) ([]byte, error) {
	rc, err := s.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// UploadBytes uploads an in-memory buffer.
func UploadBytes(ctx context.Context, s Storage, prefix string, data []byte) (Key, int64, error) {
	return s.Upload(ctx, prefix, bytes.NewReader(data))
}
