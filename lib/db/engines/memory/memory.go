package memory

import (
	"bytes"
	"sync"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/google/btree"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultDegree = 32 // B-tree degree, see btree.NewG
)

// --------------------------------------------------------------------------
// Core memory database structure
// --------------------------------------------------------------------------

// DB is an ordered in-memory store backed by a B-tree.
// It is used directly as the "memory" backend and as the working set of the snapshot backends.
type DB struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[store.Pair]
	closed bool
}

// less orders pairs by unsigned byte order of their keys
func less(a, b store.Pair) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// Open creates a new empty memory store. The location is ignored.
func Open(_ string) (store.IStore, error) {
	return New(), nil
}

// New creates a new empty memory store.
func New() *DB {
	return &DB{
		tree: btree.NewG[store.Pair](defaultDegree, less),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (m *DB) Add(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return store.ErrClosed()
	}

	m.tree.ReplaceOrInsert(store.Pair{Key: store.Clone(key), Value: store.Clone(value)})
	return nil
}

func (m *DB) Select(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, store.ErrClosed()
	}

	pair, ok := m.tree.Get(store.Pair{Key: key})
	if !ok {
		return nil, false, nil
	}
	return store.Clone(pair.Value), true, nil
}

func (m *DB) Remove(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return store.ErrClosed()
	}

	m.tree.Delete(store.Pair{Key: key})
	return nil
}

func (m *DB) SelectRange(start, end []byte) ([]store.Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, store.ErrClosed()
	}

	return m.collect(start, end, true), nil
}

func (m *DB) RemoveRange(start, end []byte) ([]store.Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, store.ErrClosed()
	}

	// the tree must not be modified while iterating, so collect first
	removed := m.collect(start, end, false)
	for _, pair := range removed {
		m.tree.Delete(pair)
	}
	return removed, nil
}

func (m *DB) Flush() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return store.ErrClosed()
	}
	return nil
}

func (m *DB) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return store.ErrClosed()
	}
	m.closed = true
	m.tree.Clear(false)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods (used by the snapshot engines)
// --------------------------------------------------------------------------

// Len returns the number of entries.
func (m *DB) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Pairs returns a copy of all entries in ascending key order.
func (m *DB) Pairs() []store.Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pairs := make([]store.Pair, 0, m.tree.Len())
	m.tree.Ascend(func(p store.Pair) bool {
		pairs = append(pairs, store.Pair{Key: store.Clone(p.Key), Value: store.Clone(p.Value)})
		return true
	})
	return pairs
}

// collect returns all pairs in [start, end). If copyValues is false the stored
// slices are returned as is, which is only safe if they are removed from the tree afterwards.
//
// Thread-safety: the caller must hold the lock.
func (m *DB) collect(start, end []byte, copyValues bool) []store.Pair {
	pairs := make([]store.Pair, 0)
	if store.EmptyRange(start, end) {
		return pairs
	}

	m.tree.AscendRange(store.Pair{Key: start}, store.Pair{Key: end}, func(p store.Pair) bool {
		if copyValues {
			p = store.Pair{Key: store.Clone(p.Key), Value: store.Clone(p.Value)}
		}
		pairs = append(pairs, p)
		return true
	})
	return pairs
}
