// Package transport defines the interfaces and abstractions for RPC communication
// between versedb clients and a versedb server. It provides a common contract that all
// transport implementations must fulfill, enabling protocol-agnostic communication.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Correlating every response with the request it answers
//   - Enabling multiple transport implementations (HTTP, TCP, Unix sockets)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     accepts connections, keeps one session per connection and hands every
//     received request to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
package transport
