// Package blobstore abstracts the durable object storage that holds
// segment data, id trackers and deletion bitsets.
//
// Implementations are append-only from the engine's perspective: a key
// returned by Upload is never written to again.
package blobstore
