// Package http implements an HTTP-based transport layer for the versedb RPC system.
// It provides concrete implementations of the transport interfaces defined in the
// parent package, enabling communication between clients and servers over HTTP.
//
// Every request is a POST to /rpc with the serialized message as body, the response
// body is the serialized response. Each HTTP exchange carries exactly one request.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. It selects server
//     endpoints round robin and retries requests that could not be delivered
//     because no connection could be established.
//
//   - httpServerTransport: Implements IRPCServerTransport. It hands the body of
//     every request to the registered handler and logs requests at debug level.
//     Bodies larger than the configured frame size are rejected.
package http
