package leveldb

import (
	"sync"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var Logger = logger.GetLogger("store")

// every write is synced, so Flush has nothing to do
var syncWrites = &opt.WriteOptions{Sync: true}

// DB is a store.IStore on top of a LevelDB directory.
type DB struct {
	mu     sync.RWMutex
	db     *leveldb.DB
	closed bool
}

// Open opens (or creates) the LevelDB database in the directory path.
// A corrupted database is recovered.
func Open(path string) (store.IStore, error) {
	db, err := initLevelDb(path)
	if err != nil {
		return nil, store.Wrap(err, "failed to open leveldb")
	}
	return &DB{db: db}, nil
}

func initLevelDb(path string) (*leveldb.DB, error) {
	opts := &opt.Options{
		Compression: opt.NoCompression,
	}

	// Open or create the new DB
	db, err := leveldb.OpenFile(path, opts)
	if errors.IsCorrupted(err) {
		Logger.Warningf("leveldb at %s is corrupted, trying to recover: %v", path, err)
		db, err = leveldb.RecoverFile(path, nil)
	}

	if err != nil {
		return nil, err
	}

	Logger.Infof("opened leveldb at %s", path)

	return db, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (l *DB) Add(key, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return store.ErrClosed()
	}
	return store.Wrap(l.db.Put(key, value, syncWrites), "leveldb put")
}

func (l *DB) Select(key []byte) ([]byte, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, false, store.ErrClosed()
	}

	value, err := l.db.Get(key, nil)
	if err == errors.ErrNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, store.Wrap(err, "leveldb get")
	}
	return store.Clone(value), true, nil
}

func (l *DB) Remove(key []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return store.ErrClosed()
	}
	return store.Wrap(l.db.Delete(key, syncWrites), "leveldb delete")
}

func (l *DB) SelectRange(start, end []byte) ([]store.Pair, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, store.ErrClosed()
	}
	return l.scan(start, end)
}

func (l *DB) RemoveRange(start, end []byte) ([]store.Pair, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, store.ErrClosed()
	}

	pairs, err := l.scan(start, end)
	if err != nil || len(pairs) == 0 {
		return pairs, err
	}

	// Create a batch for atomic removal
	batch := new(leveldb.Batch)
	for _, p := range pairs {
		batch.Delete(p.Key)
	}

	if err := l.db.Write(batch, syncWrites); err != nil {
		return nil, store.Wrap(err, "leveldb remove range")
	}
	return pairs, nil
}

func (l *DB) Flush() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return store.ErrClosed()
	}
	return nil
}

func (l *DB) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return store.ErrClosed()
	}
	l.closed = true
	return store.Wrap(l.db.Close(), "leveldb close")
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// scan collects [start, end) with a copy of every key and value.
// util.Range is already half-open (Limit is exclusive), but a nil Limit means
// "no upper bound", so empty ranges are handled before.
//
// Thread-safety: the caller must hold the lock.
func (l *DB) scan(start, end []byte) ([]store.Pair, error) {
	pairs := make([]store.Pair, 0)
	if store.EmptyRange(start, end) {
		return pairs, nil
	}

	iter := l.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	defer iter.Release()

	for iter.Next() {
		pairs = append(pairs, store.Pair{
			Key:   store.Clone(iter.Key()),
			Value: store.Clone(iter.Value()),
		})
	}

	if err := iter.Error(); err != nil {
		return nil, store.Wrap(err, "leveldb iterate")
	}
	return pairs, nil
}
