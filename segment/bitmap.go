package segment

import (
	"bytes"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
)

// DeletionBitmap records which ordinals of a segment are logically
// deleted, without rewriting segment data. It wraps a 32-bit roaring
// bitmap; ordinals are dense, segment-local positions.
type DeletionBitmap struct {
	rb *roaring.Bitmap
}

// NewDeletionBitmap creates an empty bitmap.
func NewDeletionBitmap() *DeletionBitmap {
	return &DeletionBitmap{rb: roaring.New()}
}

// Add marks an ordinal deleted. Re-marking is a no-op.
func (b *DeletionBitmap) Add(ordinal uint32) {
	b.rb.Add(ordinal)
}

// Contains checks whether an ordinal is deleted.
func (b *DeletionBitmap) Contains(ordinal uint32) bool {
	return b.rb.Contains(ordinal)
}

// Cardinality returns the number of deleted ordinals.
func (b *DeletionBitmap) Cardinality() uint64 {
	return b.rb.GetCardinality()
}

// IsEmpty returns true if nothing is deleted.
func (b *DeletionBitmap) IsEmpty() bool {
	return b.rb.IsEmpty()
}

// Clone returns a deep copy of the bitmap.
func (b *DeletionBitmap) Clone() *DeletionBitmap {
	return &DeletionBitmap{rb: b.rb.Clone()}
}

// WriteTo serializes the bitmap.
func (b *DeletionBitmap) WriteTo(w io.Writer) (int64, error) {
	return b.rb.WriteTo(w)
}

// ReadFrom deserializes the bitmap.
func (b *DeletionBitmap) ReadFrom(r io.Reader) (int64, error) {
	return b.rb.ReadFrom(r)
}

// Bytes serializes the bitmap into a fresh buffer.
func (b *DeletionBitmap) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.rb.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeletionBitmapFromBytes deserializes a bitmap from a blob.
func DeletionBitmapFromBytes(data []byte) (*DeletionBitmap, error) {
	rb := roaring.New()
	if _, err := rb.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return &DeletionBitmap{rb: rb}, nil
}
