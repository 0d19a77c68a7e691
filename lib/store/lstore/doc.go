// Package lstore implements the local, process wide store instance that is shared
// by every session of a server. It wraps any store.IStore backend and serializes
// access to it with a single exclusive guard.
//
// Key Features:
//   - One sync.Mutex around the entire backend, held for the whole duration of every
//     operation (reads included), so SelectRange and RemoveRange always observe a
//     consistent snapshot and no read-modify-write is interleaved
//   - Deterministic release of the guard, even if a backend panics (the panic is
//     turned into an error with store.RetCInternalError)
//   - Operations on a closed store fail with store.RetCStoreClosed
//   - An optional RemovalCheck (WithRemovalCheck) can veto a RemoveRange under the
//     guard, before the backend removes anything
//   - Atomic read/write/failure counters and an estimate of the value size
//     distribution, see StatsOf
//
// Usage Example:
//
//	backend, err := db.Open(db.ImplLevelDB, "data/leveldb")
//	if err != nil {
//		return err
//	}
//	shared := lstore.NewLocalStore(backend)
//
//	// safe from any number of goroutines
//	err = shared.Add([]byte("a"), []byte("1"))
//	pairs, err := shared.SelectRange([]byte("a"), []byte("c"))
//
// Thread Safety:
//
//	All operations are thread-safe. Operations of different goroutines are applied
//	one after another in the order in which they acquire the guard.
package lstore
