// Package base provides the stream based foundation of the versedb transports,
// implementing sessions, framing and request correlation independent of the specific
// network protocol (TCP, Unix sockets). Protocol specific packages only supply a
// connector.
//
// Frame format (both directions):
//
//	8 bytes  request ID (uint64, big endian), echoed in the response
//	4 bytes  payload length (uint32, big endian)
//	N bytes  payload
//
// Frames larger than the configured maximum frame size are framing errors. A framing
// error or an I/O error ends the session of that connection only.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - serverTransport: Accepts connections in a loop and starts one session per
//     connection without ever waiting for existing sessions. A session has a reader
//     that decodes frames into a bounded queue (the pipeline depth) and a single
//     worker that processes the queue in order, so the requests of one session are
//     applied strictly in the order they were sent. Requests that were received
//     before the peer disconnected still run to completion, their responses are
//     discarded. Temporary accept errors are retried with a backoff from 5ms to 1s.
//     Cancelling the context closes the listener and every live session.
//
//   - clientTransport: Manages one or more connections per endpoint with round-robin
//     selection. Requests are correlated with responses by request ID. A request is
//     only retried if its frame could not be written; once written it is never sent
//     again. A lost connection fails all requests waiting on it and is re-established
//     by the next request.
//
// Metrics:
//
//	versedb_sessions_active, versedb_sessions_total and versedb_framing_errors_total
//	are registered with the VictoriaMetrics default set.
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes to a connection are serialized by a
//	mutex, the pending requests of a connection live in a concurrent map.
package base
