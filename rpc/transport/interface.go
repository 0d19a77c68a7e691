package transport

import (
	"context"
	"net"

	"github.com/ValentinKolb/versedb/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a serialized request and returns the serialized response
type ServerHandleFunc func(req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
// It must accept a ServerConfig as a parameter
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called once for every received request
	RegisterHandler(handler ServerHandleFunc)
	// Listen creates a listener for config.Transport.Endpoint and serves it until ctx is done
	Listen(ctx context.Context, config common.ServerConfig) error
	// Serve accepts connections on an existing listener until ctx is done.
	// A cancelled context closes the listener and all sessions and returns nil.
	Serve(ctx context.Context, listener net.Listener, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
