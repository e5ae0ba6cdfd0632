// Package resource bounds the concurrency and IO throughput of
// background index builds.
package resource
