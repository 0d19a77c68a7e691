// Package rpc exposes a store.IStore to remote clients. One server process owns one
// store instance and multiplexes any number of client connections onto it.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB, CBOR)
//     for converting between Message objects and byte arrays.
//
//   - client: The client stub, a store.IStore that forwards every call to a server.
//
//   - server: The RPC server, which decodes requests, runs exactly one store
//     operation per request under an exclusive guard and encodes the result.
package rpc
