package lstore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// Stats holds the operation counters of a local store.
// The value sizes are estimates over all successfully added values.
type Stats struct {
	Reads  uint64 `json:"reads"`
	Writes uint64 `json:"writes"`
	Failed uint64 `json:"failed"`

	ValueSizeMean int `json:"value_size_mean"`
	ValueSizeP50  int `json:"value_size_p50"`
	ValueSizeP99  int `json:"value_size_p99"`
}

// String returns a short summary of the counters
func (s Stats) String() string {
	return fmt.Sprintf("reads=%d writes=%d failed=%d value-size(mean=%dB p50~%dB p99~%dB)",
		s.Reads, s.Writes, s.Failed, s.ValueSizeMean, s.ValueSizeP50, s.ValueSizeP99)
}

type storeImpl struct {
	mu     sync.Mutex
	db     store.IStore
	closed bool

	reads  atomic.Uint64
	writes atomic.Uint64
	failed atomic.Uint64
	sizes  *valueSizes

	checkRemoval RemovalCheck
}

// RemovalCheck decides whether the entries a RemoveRange would remove can be handed
// to the caller. A non-nil error aborts the RemoveRange before anything is removed.
type RemovalCheck func(pairs []store.Pair) error

// Option configures a local store
type Option func(*storeImpl)

// WithRemovalCheck runs check under the guard before every non-empty RemoveRange.
// The backend is only modified if check accepts the entries in the range.
func WithRemovalCheck(check RemovalCheck) Option {
	return func(s *storeImpl) {
		s.checkRemoval = check
	}
}

// NewLocalStore wraps a backend into the process wide shared store instance.
// Every operation of the returned store runs under one exclusive guard for its
// whole duration, so concurrent callers are serialized per operation.
func NewLocalStore(backend store.IStore, opts ...Option) store.IStore {
	s := &storeImpl{
		db:    backend,
		sizes: newValueSizes(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatsOf returns the counters of a store created by NewLocalStore.
// The boolean is false for any other store.
func StatsOf(s store.IStore) (Stats, bool) {
	impl, ok := s.(*storeImpl)
	if !ok {
		return Stats{}, false
	}
	return Stats{
		Reads:  impl.reads.Load(),
		Writes: impl.writes.Load(),
		Failed: impl.failed.Load(),

		ValueSizeMean: impl.sizes.mean(),
		ValueSizeP50:  impl.sizes.percentile(50),
		ValueSizeP99:  impl.sizes.percentile(99),
	}, true
}

// guarded runs fn while holding the exclusive guard.
// A panic inside the backend is converted into an internal error, the guard is released in any case.
//
// Thread-safety: This method is thread-safe, it is the only place where the backend is accessed.
func (s *storeImpl) guarded(op string, write bool, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("backend panicked during %s: %v", op, r)
			err = store.NewError(store.RetCInternalError, fmt.Sprintf("%s: backend panic: %v", op, r))
		}
		if err != nil {
			s.failed.Add(1)
		}
	}()

	if s.closed {
		return store.ErrClosed()
	}

	if write {
		s.writes.Add(1)
	} else {
		s.reads.Add(1)
	}

	return fn()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Add(key, value []byte) error {
	return s.guarded("add", true, func() error {
		if err := s.db.Add(key, value); err != nil {
			return err
		}
		s.sizes.add(len(value))
		return nil
	})
}

func (s *storeImpl) Select(key []byte) (value []byte, loaded bool, err error) {
	err = s.guarded("select", false, func() error {
		var innerErr error
		value, loaded, innerErr = s.db.Select(key)
		return innerErr
	})
	if err != nil {
		return nil, false, err
	}
	return value, loaded, nil
}

func (s *storeImpl) Remove(key []byte) error {
	return s.guarded("remove", true, func() error {
		return s.db.Remove(key)
	})
}

func (s *storeImpl) SelectRange(start, end []byte) (pairs []store.Pair, err error) {
	err = s.guarded("select range", false, func() error {
		if store.EmptyRange(start, end) {
			return nil
		}
		var innerErr error
		pairs, innerErr = s.db.SelectRange(start, end)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *storeImpl) RemoveRange(start, end []byte) (pairs []store.Pair, err error) {
	err = s.guarded("remove range", true, func() error {
		if store.EmptyRange(start, end) {
			return nil
		}
		if s.checkRemoval != nil {
			// the range can not change in between, the guard is held
			preview, innerErr := s.db.SelectRange(start, end)
			if innerErr != nil {
				return innerErr
			}
			if innerErr = s.checkRemoval(preview); innerErr != nil {
				return innerErr
			}
		}
		var innerErr error
		pairs, innerErr = s.db.RemoveRange(start, end)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func (s *storeImpl) Flush() error {
	return s.guarded("flush", true, func() error {
		return s.db.Flush()
	})
}

func (s *storeImpl) Close() error {
	return s.guarded("close", true, func() error {
		s.closed = true
		return s.db.Close()
	})
}
