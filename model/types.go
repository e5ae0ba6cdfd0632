package model

import "fmt"

// Timestamp is a monotonic logical commit timestamp assigned by the
// transactional layer. It totally orders the document change log.
type Timestamp uint64

// IndexID identifies one search index.
type IndexID string

// DocumentID is the stable, user-facing identifier of a document.
type DocumentID string

// IndexKind discriminates the fundamental type of a search index.
// The build engine refuses to operate on a record whose kind changed
// underneath it.
type IndexKind string

const (
	KindVector IndexKind = "vector"
	KindText   IndexKind = "text"
)

// Document is a committed document value as consumed by index builds.
type Document struct {
	ID     DocumentID
	Vector []float32
	// Fields carries non-vector payload for other index kinds.
	Fields map[string]string
}

// Revision is one entry of the document change log. A nil Value is a
// delete; a non-nil Value supersedes whatever an older segment may hold
// for the same DocumentID.
type Revision struct {
	ID    DocumentID
	TS    Timestamp
	Value *Document
}

// IsDelete reports whether the revision removes the document.
func (r Revision) IsDelete() bool {
	return r.Value == nil
}

func (r Revision) String() string {
	if r.IsDelete() {
		return fmt.Sprintf("Rev(%s@%d:delete)", r.ID, r.TS)
	}
	return fmt.Sprintf("Rev(%s@%d)", r.ID, r.TS)
}
