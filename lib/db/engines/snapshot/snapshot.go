package snapshot

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/versedb/lib/db/engines/memory"
	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// DB keeps all entries in a memory.DB and writes the complete state to a
// single snapshot file on Flush and Close.
type DB struct {
	mem    *memory.DB
	path   string
	format Format

	fileMu sync.Mutex // serializes snapshot writes and Close
	dirty  atomic.Bool
	closed bool
}

// Factory returns a store.Factory opening snapshot stores of the given format.
func Factory(format Format) store.Factory {
	return func(location string) (store.IStore, error) {
		return Open(location, format)
	}
}

// Open loads the snapshot file at path (if it exists) and returns the store.
// A missing or empty file is an empty store.
func Open(path string, format Format) (*DB, error) {
	db := &DB{
		mem:    memory.New(),
		path:   path,
		format: format,
	}

	if err := db.load(); err != nil {
		return nil, store.Wrap(err, fmt.Sprintf("failed to load %s snapshot %s", format.Name(), path))
	}
	return db, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (db *DB) Add(key, value []byte) error {
	if err := db.mem.Add(key, value); err != nil {
		return err
	}
	db.dirty.Store(true)
	return nil
}

func (db *DB) Select(key []byte) ([]byte, bool, error) {
	return db.mem.Select(key)
}

func (db *DB) Remove(key []byte) error {
	if err := db.mem.Remove(key); err != nil {
		return err
	}
	db.dirty.Store(true)
	return nil
}

func (db *DB) SelectRange(start, end []byte) ([]store.Pair, error) {
	return db.mem.SelectRange(start, end)
}

func (db *DB) RemoveRange(start, end []byte) ([]store.Pair, error) {
	removed, err := db.mem.RemoveRange(start, end)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		db.dirty.Store(true)
	}
	return removed, nil
}

func (db *DB) Flush() error {
	db.fileMu.Lock()
	defer db.fileMu.Unlock()

	if db.closed {
		return store.ErrClosed()
	}
	return db.persist()
}

func (db *DB) Close() error {
	db.fileMu.Lock()
	defer db.fileMu.Unlock()

	if db.closed {
		return store.ErrClosed()
	}

	// the store stays open if the state could not be written, so Flush or Close can be retried
	if err := db.persist(); err != nil {
		return err
	}
	db.closed = true
	return db.mem.Close()
}

// --------------------------------------------------------------------------
// Snapshot File Handling
// --------------------------------------------------------------------------

// load reads the snapshot file into the memory store
func (db *DB) load() error {
	f, err := os.Open(db.path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	pairs, err := db.format.Decode(bufio.NewReader(f))
	if err != nil {
		return err
	}

	for _, p := range pairs {
		if err := db.mem.Add(p.Key, p.Value); err != nil {
			return err
		}
	}

	Logger.Infof("loaded %d entries from %s snapshot %s", len(pairs), db.format.Name(), db.path)
	return nil
}

// persist writes the snapshot if anything changed since the last write.
// The file is replaced atomically, a crash leaves either the old or the new snapshot.
//
// Thread-safety: the caller must hold fileMu.
func (db *DB) persist() error {
	if !db.dirty.Swap(false) {
		return nil
	}

	if err := db.writeFile(db.mem.Pairs()); err != nil {
		db.dirty.Store(true)
		return store.Wrap(err, fmt.Sprintf("failed to write %s snapshot %s", db.format.Name(), db.path))
	}
	return nil
}

func (db *DB) writeFile(pairs []store.Pair) (err error) {
	dir := filepath.Dir(db.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(db.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = db.format.Encode(w, pairs); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), db.path)
}
