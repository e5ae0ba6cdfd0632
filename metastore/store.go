// Package metastore persists the durable, atomically replaceable
// metadata record of each search index.
package metastore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hupe1980/segbuild/model"
)

var (
	// ErrNotFound is returned when no record exists for an index id.
	ErrNotFound = errors.New("index metadata not found")

	// ErrConflict is returned by CompareAndSwap when the record's
	// version advanced since it was read. The caller must reload and
	// re-run its build cycle.
	ErrConflict = errors.New("index metadata version conflict")
)

// IndexMetadata is the durable record for one search index. Config is
// the kind-specific payload: the developer's index definition plus the
// on-disk state. The record is replaced wholesale by CompareAndSwap;
// that write is the only durable side effect of a successful build
// cycle.
type IndexMetadata struct {
	ID      model.IndexID   `json:"id"`
	Name    string          `json:"name"`
	Kind    model.IndexKind `json:"kind"`
	Enabled bool            `json:"enabled"`
	Config  json.RawMessage `json:"config"`

	// Version is the optimistic-concurrency version of the record. It
	// is assigned by the store, starting at 1.
	Version uint64 `json:"version"`
}

// Store is the transactional metadata store collaborator.
type Store interface {
	// Load returns the current version of the record.
	Load(ctx context.Context, id model.IndexID) (IndexMetadata, error)

	// CompareAndSwap replaces the record if its stored version still
	// equals expectedVersion, bumping the version by one. A record that
	// does not exist yet has version 0. Returns ErrConflict if another
	// writer advanced the record first.
	CompareAndSwap(ctx context.Context, expectedVersion uint64, rec IndexMetadata) error

	// List returns the current version of every record.
	List(ctx context.Context) ([]IndexMetadata, error)
}
