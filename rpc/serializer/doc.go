// Package serializer provides message serialization capabilities for the versedb
// RPC system. It defines a common interface and multiple implementations
// for serializing and deserializing messages between client and server components.
//
// The package focuses on:
//   - Providing a consistent interface for different serialization formats
//   - Offering multiple implementations with different performance characteristics
//   - Supporting efficient encoding of the system's message structure
//   - Minimizing memory allocations and processing overhead
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format implementation optimized for speed
//     and space efficiency. Uses a flag-based approach to encode only present fields,
//     keys, values and texts are 4 byte length prefixed blobs, range results are a
//     pair count followed by the key and value of every pair. It is the only format
//     that keeps the difference between an absent and an empty byte field.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding, offering
//     good compatibility with Go's type system but with larger serialized sizes.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for debugging
//     or interoperability with other systems, but with lower performance. Byte
//     fields are base64 encoded.
//
//   - cborSerializerImpl: Implementation using CBOR, a compact binary format with
//     native byte strings that other languages can decode without a custom codec.
//
// Choosing a format:
//
//   - binary is the default and produces the smallest payloads (see BenchmarkSize).
//   - json is readable on the wire, e.g. when debugging the http transport with curl.
//   - gob exists for completeness. It re-sends type information with every message,
//     which makes it the slowest and largest format here.
//   - cbor suits clients written in other languages.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Serializers are typically created once and reused throughout the application:
//
//	  serializer, err := serializer.New("binary")
//	  data, err := serializer.Serialize(message)
//	  // ... send data ...
//	  var receivedMsg common.Message
//	  err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
