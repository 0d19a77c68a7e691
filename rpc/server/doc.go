// Package server implements the RPC server of versedb. One server process owns one
// store instance and serves it to any number of concurrent client sessions.
//
// The package focuses on:
//   - Server-side RPC request handling for store operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Exclusive access to the shared store for the whole duration of every operation
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating an adapter for key-value
//     store operations, translating every request into exactly one store.IStore call.
//     Echo requests are answered with a greeting without touching the store, unknown
//     message types are answered with RetCInvalidOperation.
//
//   - NewRPCServer: Factory function creating a server for a store with the specified
//     transport and serializer mechanisms. The store is wrapped by lstore, so every
//     call runs under one exclusive guard.
//
//   - ServeMetrics: Serves the VictoriaMetrics metrics of the process (request
//     counters, error counters and latency histograms per message type, session
//     gauges of the transport) in the Prometheus text format.
//
// Usage Example:
//
//	// Open the backend
//	backend, err := db.Open(db.ImplPebble, "/var/lib/versedb")
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer backend.Close()
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  common.ServerConfig{Transport: common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"}},
//	  backend,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Serve until ctx is cancelled
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Error Handling:
//
//	A failed store operation becomes a response carrying the error message and its
//	store.RetCode, the session stays open. A request that cannot be decoded is
//	answered with an error response of type Error. Broken frames are handled by the
//	transport and end only the session they belong to.
//
// Thread Safety:
//
//	The server is thread-safe and handles requests of many connections concurrently.
//	Requests of one connection are processed in the order they were sent.
package server
