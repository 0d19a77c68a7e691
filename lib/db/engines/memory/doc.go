// Package memory implements the "memory" backend: an ordered, non-persistent store
// kept in a github.com/google/btree B-tree ordered by bytes.Compare on the key.
//
// Ranges map directly onto btree.AscendRange, which is already half-open
// (greater-or-equal start, less-than end). RemoveRange collects the affected entries
// first and deletes them afterwards, since the tree may not be mutated during iteration.
//
// The DB type is also the working set of the snapshot backends (json, yaml, csv, cbor),
// which is why it exposes Len and Pairs in addition to store.IStore.
//
// Thread Safety:
//
//	All methods are thread-safe (sync.RWMutex). Stored keys and values are copies,
//	returned values are copies as well.
package memory
