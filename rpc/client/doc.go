// Package client implements the RPC client of versedb. It provides an implementation
// of the store.IStore interface that forwards every call as one message to a server.
//
// The package focuses on:
//   - Transparent RPC access to a remote store
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing IRemoteStore,
//     which is a store.IStore plus Echo. Failed operations are returned as *store.Error
//     with the code reported by the server, transport failures as wrapped errors and
//     a response of the wrong type as ErrUnexpectedResponse.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:  []string{"localhost:8080"},
//	    RetryCount: 3,
//	  },
//	}
//
//	// Create store client
//	s, _ := client.NewRPCStore(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	defer s.Close()
//
//	// Use the store
//	s.Add([]byte("mykey"), []byte("myvalue"))
//	value, exists, _ := s.Select([]byte("mykey"))
//	pairs, _ := s.SelectRange([]byte("a"), []byte("n"))
//
// Ordering:
//
//	Requests sent over one connection are applied by the server in the order they
//	were sent. With ConnectionsPerEndpoint > 1, concurrent requests of one client may
//	be applied in any order relative to each other.
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from multiple goroutines
//	without additional synchronization.
package client
