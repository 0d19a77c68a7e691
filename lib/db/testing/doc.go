// Package testing provides standardised tests and benchmarks for
// implementations of the store.IStore interface.
//
// The package contains:
//   - testing: A conformance suite for the ordered key-value contract (byte order,
//     half-open ranges, RemoveRange returning exactly the removed entries, empty keys,
//     concurrent callers on disjoint keys, use after close) and a persistence suite
//     for backends that survive a restart
//   - benchmark: Performance tests for measuring throughput of common operations
//
// The same suite runs against the raw backends, the guarded local store and the rpc
// client over every transport, so local and remote stores are held to identical rules.
//
// Example usage:
//
//	// Running the standard test suite, the location is a fresh temporary path
//	dbtesting.RunStoreTests(t, "MyStore", func(location string) (store.IStore, error) {
//		return OpenMyStore(location)
//	})
//
//	// Persistent backends additionally run
//	dbtesting.RunPersistenceTests(t, "MyStore", OpenMyStore)
//
//	// Running performance benchmarks
//	dbtesting.RunStoreBenchmarks(b, "MyStore", OpenMyStore)
package testing
