package client

import (
	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/serializer"
	"github.com/ValentinKolb/versedb/rpc/transport"
)

// IRemoteStore is a store served by a versedb server
type IRemoteStore interface {
	store.IStore

	// Echo returns the greeting of the server for text. It does not touch the store
	// and can be used to check that the server is alive.
	Echo(text string) (string, error)
}

// NewRPCStore creates a new RPC store
// The function takes a config, a transport and a serializer as parameters.
// The serializer has to match the one of the server.
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (IRemoteStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Add(key, value []byte) error {
	_, err := invokeRPCRequest(common.NewAddRequest(key, value), i.transport, i.serializer)
	return err
}

func (i *rpcStore) Select(key []byte) (value []byte, loaded bool, err error) {
	resp, err := invokeRPCRequest(common.NewSelectRequest(key), i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	if resp.Value == nil {
		return []byte{}, true, nil
	}
	return resp.Value, true, nil
}

func (i *rpcStore) Remove(key []byte) error {
	_, err := invokeRPCRequest(common.NewRemoveRequest(key), i.transport, i.serializer)
	return err
}

func (i *rpcStore) SelectRange(start, end []byte) ([]store.Pair, error) {
	resp, err := invokeRPCRequest(common.NewSelectRangeRequest(start, end), i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return pairsOf(resp), nil
}

func (i *rpcStore) RemoveRange(start, end []byte) ([]store.Pair, error) {
	resp, err := invokeRPCRequest(common.NewRemoveRangeRequest(start, end), i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return pairsOf(resp), nil
}

func (i *rpcStore) Flush() error {
	_, err := invokeRPCRequest(common.NewFlushRequest(), i.transport, i.serializer)
	return err
}

// Close closes the connection to the server, the remote store stays open
func (i *rpcStore) Close() error {
	return i.transport.Close()
}

func (i *rpcStore) Echo(text string) (string, error) {
	resp, err := invokeRPCRequest(common.NewEchoRequest(text), i.transport, i.serializer)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// pairsOf returns the pairs of a range response, never nil
func pairsOf(resp *common.Message) []store.Pair {
	if resp.Pairs == nil {
		return []store.Pair{}
	}
	return resp.Pairs
}
