// Package common provides core data structures and utilities shared by the
// server, the client and the transports of versedb. It defines the wire message,
// the configuration structures and the logger setup.
//
// The package focuses on:
//   - Message protocol definition for the communication between client and server
//   - Configuration structures for client and server components
//   - Custom logging implementation on top of dragonboats logger package
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, with a flexible
//     structure that adapts to the different operation types. Includes factory
//     methods for every request and response. Failed operations carry the message
//     and the store.RetCode of the error, so the client can rebuild a *store.Error.
//
//   - MessageType: Enumeration of all supported operations (Add, Select, Remove,
//     SelectRange, RemoveRange, Flush, Echo) plus the Error type used for requests
//     that could not be decoded.
//
//   - ServerConfig: Configuration of a server process, including the backend,
//     the transport, socket options and the metrics endpoint.
//
//   - ClientConfig: Configuration for client components, controlling endpoints,
//     connections, timeouts and retry behavior.
//
//   - Logger: Custom logging implementation for dragonboats logger.ILogger that
//     provides consistent formatting across the application.
package common
