// Package segbuild is a segment-based build engine for the on-disk
// search indexes of a transactional database. Whenever committed
// documents change, a Worker brings an index's durable representation
// up to date: it reconciles the document change log against immutable
// segments plus tombstone overlays, delegates new-segment layout to a
// kind-specific schema, and publishes a new consistent snapshot through
// a compare-and-swap on the index's metadata record.
//
// The engine is generic over index kinds via the SearchIndex contract;
// package vector supplies the vector specialization.
package segbuild
