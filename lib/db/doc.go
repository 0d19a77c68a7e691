// Package db is the backend catalogue. It maps implementation names to the
// store.IStore backends in the engines sub packages and opens them.
//
// The package focuses on:
//   - A single selection boundary for backends, used by the serve command
//   - Metadata about each backend (persistence, buffering, meaning of the location)
//
// Key Components:
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for all backends: "memory", "json", "yaml", "csv", "cbor", "leveldb", "bbolt",
//     "pebble" and "sqlite".
//
//   - Open / FactoryOf: Resolve an implementation name to a store.Factory and open it.
//     The backend is fixed for the lifetime of the opened store.
//
//   - Database Information: DatabaseInfo reports whether a backend is persistent and
//     whether its writes are buffered until Flush.
//
// Related Packages:
//
// The engines packages (github.com/ValentinKolb/versedb/lib/db/engines/...) contain the
// backends. Each one adapts the native range primitive of its storage library to the
// half-open [start, end) semantics of store.IStore.
//
// The testing package (github.com/ValentinKolb/versedb/lib/db/testing) provides
// standardized tests and benchmarks for every store.IStore implementation.
//   - RunStoreTests: Runs the conformance suite
//   - RunStoreBenchmarks: Provides performance benchmarks for comparing implementations
package db
