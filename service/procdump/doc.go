// Package procdump renders process listings and keeps them as snapshots
// on any afs-backed storage (local files, mem://, cloud buckets).
package procdump
