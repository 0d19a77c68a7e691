// Package tcp implements a TCP socket based transport for the versedb RPC system.
// It provides concrete implementations of the base package's connector interfaces
// for TCP connections.
//
// This package builds on the base package's transport functionality, inheriting its
// session handling, framing and request correlation. See the base package
// documentation for detailed information on the underlying transport mechanisms.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Both sides apply the configured TCPConf (no delay, keep-alive, linger) and
// SocketConf (buffer sizes). The default session read buffer is 512 KB.
package tcp
