package pebble

import (
	"errors"
	"sync"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// DB is a store.IStore on top of a Pebble directory.
// Writes go to the WAL without fsync, Flush persists the memtable.
type DB struct {
	mu     sync.RWMutex
	db     *pebble.DB
	closed bool
}

// Open opens (or creates) the Pebble database in the directory path.
func Open(path string) (store.IStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, store.Wrap(err, "failed to open pebble")
	}

	Logger.Infof("opened pebble at %s", path)
	return &DB{db: db}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (p *DB) Add(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return store.ErrClosed()
	}
	return store.Wrap(p.db.Set(key, value, pebble.NoSync), "pebble set")
}

func (p *DB) Select(key []byte) ([]byte, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, false, store.ErrClosed()
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, store.Wrap(err, "pebble get")
	}
	defer closer.Close()

	// the value is only valid until the closer is closed
	return store.Clone(value), true, nil
}

func (p *DB) Remove(key []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return store.ErrClosed()
	}
	return store.Wrap(p.db.Delete(key, pebble.NoSync), "pebble delete")
}

func (p *DB) SelectRange(start, end []byte) ([]store.Pair, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, store.ErrClosed()
	}
	return p.scan(start, end)
}

func (p *DB) RemoveRange(start, end []byte) ([]store.Pair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, store.ErrClosed()
	}

	pairs, err := p.scan(start, end)
	if err != nil || len(pairs) == 0 {
		return pairs, err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	for _, pair := range pairs {
		if err := batch.Delete(pair.Key, nil); err != nil {
			return nil, store.Wrap(err, "pebble remove range")
		}
	}
	if err := batch.Commit(pebble.NoSync); err != nil {
		return nil, store.Wrap(err, "pebble remove range")
	}
	return pairs, nil
}

func (p *DB) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return store.ErrClosed()
	}
	return store.Wrap(p.db.Flush(), "pebble flush")
}

func (p *DB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return store.ErrClosed()
	}
	p.closed = true

	flushErr := p.db.Flush()
	if err := p.db.Close(); err != nil {
		return store.Wrap(err, "pebble close")
	}
	return store.Wrap(flushErr, "pebble flush on close")
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// scan collects [start, end). Pebble's iterator bounds are already half-open:
// LowerBound is inclusive, UpperBound exclusive.
//
// Thread-safety: the caller must hold the lock.
func (p *DB) scan(start, end []byte) ([]store.Pair, error) {
	pairs := make([]store.Pair, 0)
	if store.EmptyRange(start, end) {
		return pairs, nil
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, store.Wrap(err, "pebble iterate")
	}

	for iter.First(); iter.Valid(); iter.Next() {
		pairs = append(pairs, store.Pair{
			Key:   store.Clone(iter.Key()),
			Value: store.Clone(iter.Value()),
		})
	}

	if err := iter.Close(); err != nil {
		return nil, store.Wrap(err, "pebble iterate")
	}
	return pairs, nil
}
