// Package vector implements the vector index kind for the segbuild
// engine: a versioned schema over dense float32 vectors, a flat
// block-compressed disk layout for small segments, an HNSW graph layout
// above the full-scan threshold, and the persisted JSON form of the
// index's on-disk state.
package vector
