// Package unix implements a transport layer for the versedb RPC system using Unix
// domain sockets. It provides optimized communication for processes running on the
// same machine.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting sessions, request correlation and error handling from the base
// package. A stale socket file at the endpoint path is removed before listening.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
//
// Performance Characteristics:
//
//   - Default buffer size: 64 KB, optimized for local communication patterns
//   - Reduced overhead: Eliminates TCP/IP stack processing for better performance
package unix
