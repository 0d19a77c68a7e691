// Package leveldb implements the "leveldb" backend on github.com/syndtr/goleveldb.
//
// Every write is synced to disk, which makes Flush a no-op. RemoveRange collects
// the range with an iterator and deletes it in one leveldb.Batch while holding the
// store lock, so either all entries of the range are removed or none are.
package leveldb
