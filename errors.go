package segbuild

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexKindChanged is returned when the persisted index record's
	// fundamental kind no longer matches the worker's. Fatal to the
	// cycle; the caller must reload the index rather than retry.
	ErrIndexKindChanged = errors.New("index kind changed")

	// ErrSchemaViolation is returned when a snapshot data variant is
	// structurally invalid for the index kind, e.g. single-segment data
	// for a fragmented kind. Indicates a corrupted or mis-migrated
	// record.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrWriteConflict is returned when publishing the new index config
	// lost a compare-and-swap race. The caller retries by reloading and
	// re-running the cycle.
	ErrWriteConflict = errors.New("index config write conflict")
)

// ErrInvalidSnapshotData reports the offending variant of a schema
// violation. It unwraps to ErrSchemaViolation.
type ErrInvalidSnapshotData struct {
	Kind   SnapshotDataKind
	Detail string
}

func (e *ErrInvalidSnapshotData) Error() string {
	return fmt.Sprintf("invalid snapshot data (kind %d): %s", e.Kind, e.Detail)
}

func (e *ErrInvalidSnapshotData) Unwrap() error { return ErrSchemaViolation }
