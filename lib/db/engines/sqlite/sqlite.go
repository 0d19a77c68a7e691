package sqlite

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	_ "modernc.org/sqlite"
)

var Logger = logger.GetLogger("store")

const (
	createTableStmt = `CREATE TABLE IF NOT EXISTS kv (
		key   BLOB PRIMARY KEY,
		value BLOB NOT NULL
	) WITHOUT ROWID`

	addStmt         = `INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)`
	selectStmt      = `SELECT value FROM kv WHERE key = ?`
	removeStmt      = `DELETE FROM kv WHERE key = ?`
	selectRangeStmt = `SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key ASC`
	removeRangeStmt = `DELETE FROM kv WHERE key >= ? AND key < ?`
)

// DB is a store.IStore on top of a SQLite file with a single kv table.
// BLOB keys are compared with memcmp, which is the bytes.Compare order.
type DB struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open opens (or creates) the SQLite database file at path.
func Open(path string) (store.IStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, store.Wrap(err, "failed to open sqlite")
	}

	// a single connection, concurrent writers would only run into SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableStmt); err != nil {
		_ = db.Close()
		return nil, store.Wrap(err, "failed to create sqlite table")
	}

	Logger.Infof("opened sqlite at %s", path)
	return &DB{db: db}, nil
}

// blob makes sure a byte slice is never bound as NULL
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *DB) Add(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed()
	}

	_, err := s.db.Exec(addStmt, blob(key), blob(value))
	return store.Wrap(err, "sqlite insert")
}

func (s *DB) Select(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, store.ErrClosed()
	}

	var value []byte
	err := s.db.QueryRow(selectStmt, blob(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, store.Wrap(err, "sqlite select")
	}
	return blob(value), true, nil
}

func (s *DB) Remove(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed()
	}

	_, err := s.db.Exec(removeStmt, blob(key))
	return store.Wrap(err, "sqlite delete")
}

func (s *DB) SelectRange(start, end []byte) ([]store.Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed()
	}
	if store.EmptyRange(start, end) {
		return make([]store.Pair, 0), nil
	}

	pairs, err := queryRange(s.db, start, end)
	return pairs, store.Wrap(err, "sqlite select range")
}

func (s *DB) RemoveRange(start, end []byte) ([]store.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, store.ErrClosed()
	}
	if store.EmptyRange(start, end) {
		return make([]store.Pair, 0), nil
	}

	pairs, err := s.removeRange(start, end)
	if err != nil {
		return nil, store.Wrap(err, "sqlite remove range")
	}
	return pairs, nil
}

// Flush is a no-op, every statement is committed (and synced by SQLite) on its own.
func (s *DB) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed()
	}
	return nil
}

func (s *DB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed()
	}
	s.closed = true
	return store.Wrap(s.db.Close(), "sqlite close")
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// querier is implemented by *sql.DB and *sql.Tx
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func queryRange(q querier, start, end []byte) ([]store.Pair, error) {
	rows, err := q.Query(selectRangeStmt, blob(start), blob(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make([]store.Pair, 0)
	for rows.Next() {
		var p store.Pair
		if err := rows.Scan(&p.Key, &p.Value); err != nil {
			return nil, err
		}
		p.Key, p.Value = blob(p.Key), blob(p.Value)
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// removeRange selects and deletes the range in one transaction
func (s *DB) removeRange(start, end []byte) (pairs []store.Pair, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if pairs, err = queryRange(tx, start, end); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return pairs, tx.Commit()
	}
	if _, err = tx.Exec(removeRangeStmt, blob(start), blob(end)); err != nil {
		return nil, err
	}
	return pairs, tx.Commit()
}
