// Package minio provides a blobstore.Storage implementation for MinIO
// and other S3-compatible object stores.
package minio

import (
	"context"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/segbuild/blobstore"
)

// Store implements blobstore.Storage for MinIO.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO object store.
// rootPrefix is prepended to all keys (e.g. "indexes/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Upload streams r into a new object under prefix.
func (s *Store) Upload(ctx context.Context, prefix string, r io.Reader) (blobstore.Key, int64, error) {
	key := blobstore.Key(path.Join(prefix, uuid.NewString()))

	info, err := s.client.PutObject(ctx, s.bucket, s.key(string(key)), r, -1, minio.PutObjectOptions{})
	if err != nil {
		return "", 0, err
	}

	return key, info.Size, nil
}

// Download opens the object for reading.
func (s *Store) Download(ctx context.Context, key blobstore.Key) (io.ReadCloser, error) {
	name := s.key(string(key))

	// Stat first: GetObject defers errors until the first read.
	if _, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	return s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, key blobstore.Key) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(string(key)), minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil // Already gone
		}
		return err
	}
	return nil
}
