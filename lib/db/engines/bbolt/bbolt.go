package bbolt

import (
	"bytes"
	"sync"
	"time"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	bolt "go.etcd.io/bbolt"
)

var Logger = logger.GetLogger("store")

var bucketName = []byte("versedb")

// keyPrefix is put in front of every stored key. bbolt rejects empty keys,
// the prefix makes the empty key storable and keeps the byte order intact.
const keyPrefix byte = 'k'

// DB is a store.IStore on top of a single bbolt bucket.
type DB struct {
	mu     sync.RWMutex // guards closed, bbolt handles its own transactions
	db     *bolt.DB
	closed bool
}

// Open opens (or creates) the bbolt file at path.
func Open(path string) (store.IStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, store.Wrap(err, "failed to open bbolt")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, store.Wrap(err, "failed to create bbolt bucket")
	}

	Logger.Infof("opened bbolt at %s", path)
	return &DB{db: db}, nil
}

func encodeKey(key []byte) []byte {
	k := make([]byte, len(key)+1)
	k[0] = keyPrefix
	copy(k[1:], key)
	return k
}

func decodeKey(k []byte) []byte {
	return store.Clone(k[1:])
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *DB) Add(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(encodeKey(key), store.Clone(value))
	})
	return store.Wrap(err, "bbolt put")
}

func (s *DB) Select(key []byte) (value []byte, loaded bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false, store.ErrClosed()
	}

	// a cursor is used instead of Bucket.Get to tell an empty value from a missing key
	k := encodeKey(key)
	err = s.db.View(func(tx *bolt.Tx) error {
		found, v := tx.Bucket(bucketName).Cursor().Seek(k)
		if found != nil && bytes.Equal(found, k) {
			value, loaded = store.Clone(v), true
		}
		return nil
	})
	if err != nil {
		return nil, false, store.Wrap(err, "bbolt get")
	}
	return value, loaded, nil
}

func (s *DB) Remove(key []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed()
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(encodeKey(key))
	})
	return store.Wrap(err, "bbolt delete")
}

func (s *DB) SelectRange(start, end []byte) (pairs []store.Pair, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed()
	}

	err = s.db.View(func(tx *bolt.Tx) error {
		pairs = scan(tx.Bucket(bucketName), start, end)
		return nil
	})
	if err != nil {
		return nil, store.Wrap(err, "bbolt select range")
	}
	return pairs, nil
}

func (s *DB) RemoveRange(start, end []byte) (pairs []store.Pair, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed()
	}

	// collect and delete in one read-write transaction, deleting through the
	// cursor while iterating would skip entries
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		pairs = scan(b, start, end)
		for _, p := range pairs {
			if err := b.Delete(encodeKey(p.Key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, store.Wrap(err, "bbolt remove range")
	}
	return pairs, nil
}

// Flush is a no-op, every committed bbolt transaction is already synced.
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
	return store.Wrap(s.db.Close(), "bbolt close")
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// scan collects [start, end) from the bucket. The cursor seeks to the encoded
// start key and stops at the first key that is not below the encoded end key.
func scan(b *bolt.Bucket, start, end []byte) []store.Pair {
	pairs := make([]store.Pair, 0)
	if store.EmptyRange(start, end) {
		return pairs
	}

	limit := encodeKey(end)
	c := b.Cursor()
	for k, v := c.Seek(encodeKey(start)); k != nil && bytes.Compare(k, limit) < 0; k, v = c.Next() {
		pairs = append(pairs, store.Pair{Key: decodeKey(k), Value: store.Clone(v)})
	}
	return pairs
}
