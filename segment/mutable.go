package segment

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hupe1980/segbuild/blobstore"
	"github.com/hupe1980/segbuild/model"
)

// MutableMetadata is the cycle-scoped working state of one previously
// uploaded segment: its id tracker plus a live deletion bitmap. It is
// exclusively owned by the in-flight build cycle and discarded after
// upload.
type MutableMetadata struct {
	segment Fragmented
	ids     map[model.DocumentID]uint32
	deleted *DeletionBitmap
	mutated bool
}

// Download materializes the working state for a persisted segment,
// fetching its id tracker and current deletion bitset. The data blob is
// never read.
func Download(ctx context.Context, storage blobstore.Storage, seg Fragmented) (*MutableMetadata, error) {
	trackerData, err := blobstore.DownloadAll(ctx, storage, seg.IDTrackerKey)
	if err != nil {
		return nil, fmt.Errorf("download id tracker for segment %s: %w", seg.ID, err)
	}
	ids, err := DecodeIDTracker(bytes.NewReader(trackerData))
	if err != nil {
		return nil, fmt.Errorf("decode id tracker for segment %s: %w", seg.ID, err)
	}

	bitsetData, err := blobstore.DownloadAll(ctx, storage, seg.DeletedBitsetKey)
	if err != nil {
		return nil, fmt.Errorf("download deleted bitset for segment %s: %w", seg.ID, err)
	}
	deleted, err := DeletionBitmapFromBytes(bitsetData)
	if err != nil {
		return nil, fmt.Errorf("decode deleted bitset for segment %s: %w", seg.ID, err)
	}

	return &MutableMetadata{
		segment: seg,
		ids:     ids,
		deleted: deleted,
	}, nil
}

// NewMutableMetadata wraps an already materialized working state. Used
// by segment construction for freshly built segments.
func NewMutableMetadata(seg Fragmented, ids map[model.DocumentID]uint32, deleted *DeletionBitmap) *MutableMetadata {
	return &MutableMetadata{segment: seg, ids: ids, deleted: deleted}
}

// Segment returns the persisted descriptor this working state wraps.
func (m *MutableMetadata) Segment() Fragmented {
	return m.segment
}

// Contains checks whether the segment holds the document, deleted or
// not.
func (m *MutableMetadata) Contains(id model.DocumentID) bool {
	_, ok := m.ids[id]
	return ok
}

// MaybeDelete marks the document deleted if this segment contains it.
// Re-marking an already deleted document is a no-op. Reports whether
// the document was newly tombstoned.
func (m *MutableMetadata) MaybeDelete(id model.DocumentID) bool {
	ordinal, ok := m.ids[id]
	if !ok {
		return false
	}
	if m.deleted.Contains(ordinal) {
		return false
	}
	m.deleted.Add(ordinal)
	m.mutated = true
	return true
}

// NumDeleted returns the live tombstone count.
func (m *MutableMetadata) NumDeleted() uint64 {
	return m.deleted.Cardinality()
}

// UploadDeletedBitset persists a mutated bitmap under a fresh key and
// returns the updated descriptor. An unmutated segment is returned
// unchanged, key and all.
func (m *MutableMetadata) UploadDeletedBitset(ctx context.Context, storage blobstore.Storage) (Fragmented, error) {
	if !m.mutated {
		return m.segment, nil
	}

	data, err := m.deleted.Bytes()
	if err != nil {
		return Fragmented{}, fmt.Errorf("serialize deleted bitset for segment %s: %w", m.segment.ID, err)
	}

	key, _, err := blobstore.UploadBytes(ctx, storage, "bitsets", data)
	if err != nil {
		return Fragmented{}, fmt.Errorf("upload deleted bitset for segment %s: %w", m.segment.ID, err)
	}

	updated := m.segment
	updated.DeletedBitsetKey = key
	updated.NumDeleted = m.deleted.Cardinality()
	return updated, nil
}

// PreviousSegments is the working set for one build cycle: one entry
// per previously uploaded segment.
type PreviousSegments struct {
	Segments []*MutableMetadata
}

// MaybeDeleteDocument tombstones the document in whichever segment
// holds it. Unknown documents are ignored: the revision may be an
// insert, or the document may live in the segment under construction.
func (p *PreviousSegments) MaybeDeleteDocument(id model.DocumentID) error {
	for _, seg := range p.Segments {
		if seg.MaybeDelete(id) {
			return nil
		}
	}
	return nil
}
