// Package pebble implements the "pebble" backend on github.com/cockroachdb/pebble.
//
// Writes are appended to the WAL without fsync (pebble.NoSync). Flush writes the
// memtable to an sstable, Close flushes before closing the database. RemoveRange
// collects the range with a bounded iterator and deletes it with point deletes
// in one batch.
package pebble
