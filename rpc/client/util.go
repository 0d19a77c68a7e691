package client

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/serializer"
	"github.com/ValentinKolb/versedb/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// ErrUnexpectedResponse is returned if the server answered with a message of another type
var ErrUnexpectedResponse = errors.New("unexpected response type")

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs.
// Failed operations are returned as *store.Error with the code reported by the server,
// a response of another type than the request is an ErrUnexpectedResponse.
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s request: %w", req.MsgType, err)
	}

	// Send the request
	respBytes, err := transport.Send(reqBytes)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", req.MsgType, err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s response: %w", req.MsgType, err)
	}

	// Check if the response is an error response
	if err := resp.Error(); err != nil {
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("%w: %s, expected %s", ErrUnexpectedResponse, resp.MsgType, req.MsgType)
	}

	// Return the response
	return resp, nil
}
