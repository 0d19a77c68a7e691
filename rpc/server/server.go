package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/ValentinKolb/versedb/lib/store/lstore"
	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/serializer"
	"github.com/ValentinKolb/versedb/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// RPCServer serves one store to any number of clients.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      store.IStore
	adapter    IRPCServerAdapter
}

// NewRPCServer creates a new RPC server for the store s
// It takes a config, the store, a transport and a serializer as parameters.
// The store is wrapped into an exclusive guard, so all sessions share one instance
// and every request runs alone against it. Opening, flushing and closing the
// backend is up to the caller.
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		backend,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	s store.IStore,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	srv := &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewIStoreServerAdapter(),
	}
	srv.store = lstore.NewLocalStore(s, lstore.WithRemovalCheck(srv.checkRemoval))

	// Configure the transport layer
	transport.RegisterHandler(srv.handle)

	Logger.Debugf("Created RPC Server%s", config.String())

	return srv
}

// Store returns the guarded store shared by all sessions
func (s *RPCServer) Store() store.IStore {
	return s.store
}

// Serve listens on the configured endpoint and serves until ctx is done.
func (s *RPCServer) Serve(ctx context.Context) error {
	defer s.logStats()
	return s.transport.Listen(ctx, s.config)
}

// ServeListener serves connections of an existing listener until ctx is done.
func (s *RPCServer) ServeListener(ctx context.Context, listener net.Listener) error {
	defer s.logStats()
	return s.transport.Serve(ctx, listener, s.config)
}

// logStats logs the counters of the shared store
func (s *RPCServer) logStats() {
	if stats, ok := lstore.StatsOf(s.store); ok {
		Logger.Infof("store stats: %s", stats)
	}
}

// handle decodes one request, runs it against the store and encodes the response.
// A request that cannot be decoded is answered with an error response.
func (s *RPCServer) handle(req []byte) []byte {
	start := time.Now()

	var msg common.Message
	var resp *common.Message
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		msg.MsgType = common.MsgTError
		resp = common.NewErrorResponse(
			store.RetCInvalidOperation,
			fmt.Sprintf("failed to deserialize request: %v", err),
		)
	} else {
		resp = s.adapter.Handle(&msg, s.store)
	}

	observe(msg.MsgType, resp.Err != "" || resp.MsgType == common.MsgTError, start)

	// Return result
	val, err := s.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("Failed to serialize %s response: %v", resp.MsgType, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(
			store.RetCInternalError,
			fmt.Sprintf("failed to serialize response: %v", err),
		))
	} else if limit := s.config.Transport.FrameLimit(); len(val) > limit {
		// the client would drop the connection on a frame above the limit
		Logger.Warningf("%s response of %d bytes exceeds the frame limit of %d bytes", resp.MsgType, len(val), limit)
		val, _ = s.serializer.Serialize(common.Message{
			MsgType: resp.MsgType,
			Err:     fmt.Sprintf("response of %d bytes exceeds the frame limit of %d bytes", len(val), limit),
			Code:    store.RetCInternalError,
		})
	}
	return val
}

// checkRemoval rejects a RemoveRange whose response would exceed the frame limit.
// It runs under the store guard before anything is removed.
func (s *RPCServer) checkRemoval(pairs []store.Pair) error {
	val, err := s.serializer.Serialize(*common.NewRemoveRangeResponse(pairs, nil))
	if err != nil {
		return store.Wrap(err, "failed to serialize remove range response")
	}
	if limit := s.config.Transport.FrameLimit(); len(val) > limit {
		return store.NewError(store.RetCInternalError, fmt.Sprintf(
			"removing %d pairs would produce a response of %d bytes, exceeding the frame limit of %d bytes",
			len(pairs), len(val), limit,
		))
	}
	return nil
}
