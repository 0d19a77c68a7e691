package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	dbtesting "github.com/ValentinKolb/versedb/lib/db/testing"
	"github.com/ValentinKolb/versedb/lib/db/engines/memory"
	"github.com/ValentinKolb/versedb/lib/store"
	"github.com/ValentinKolb/versedb/rpc/client"
	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/serializer"
	"github.com/ValentinKolb/versedb/rpc/transport"
	"github.com/ValentinKolb/versedb/rpc/transport/http"
	"github.com/ValentinKolb/versedb/rpc/transport/tcp"
	"github.com/ValentinKolb/versedb/rpc/transport/unix"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test setup
// --------------------------------------------------------------------------

type transportCase struct {
	name   string
	server func() transport.IRPCServerTransport
	client func() transport.IRPCClientTransport
	// listen returns a listener, the endpoint for clients and a cleanup function
	listen func() (net.Listener, string, func(), error)
}

func listenTCP() (net.Listener, string, func(), error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", nil, err
	}
	return l, l.Addr().String(), func() {}, nil
}

func listenUnix() (net.Listener, string, func(), error) {
	// t.TempDir paths can exceed the socket path limit
	dir, err := os.MkdirTemp("", "versedb")
	if err != nil {
		return nil, "", nil, err
	}
	path := filepath.Join(dir, "rpc.sock")
	l, err := net.Listen("unix", path)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, "", nil, err
	}
	return l, path, func() { _ = os.RemoveAll(dir) }, nil
}

var transports = []transportCase{
	{"TCP", tcp.NewTCPServerTransport, tcp.NewTCPClientTransport, listenTCP},
	{"Unix", unix.NewUnixServerTransport, unix.NewUnixClientTransport, listenUnix},
	{"HTTP", http.NewHttpServerTransport, http.NewHttpClientTransport, listenTCP},
}

var serializers = map[string]func() serializer.IRPCSerializer{
	"Binary": serializer.NewBinarySerializer,
	"JSON":   serializer.NewJSONSerializer,
	"GOB":    serializer.NewGOBSerializer,
	"CBOR":   serializer.NewCBORSerializer,
}

// runningServer is a server on a local listener together with everything needed to stop it
type runningServer struct {
	server   *RPCServer
	endpoint string
	stopOnce sync.Once
	stop     func()
}

// startServer serves backend until the returned server is stopped
func startServer(backend store.IStore, tc transportCase, newSerializer func() serializer.IRPCSerializer, config common.ServerConfig) (*runningServer, error) {
	listener, endpoint, cleanup, err := tc.listen()
	if err != nil {
		return nil, err
	}

	srv := NewRPCServer(config, backend, tc.server(), newSerializer())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, listener) }()

	return &runningServer{
		server:   srv,
		endpoint: endpoint,
		stop: func() {
			cancel()
			<-done
			_ = backend.Close()
			cleanup()
		},
	}, nil
}

func (r *runningServer) Stop() {
	r.stopOnce.Do(r.stop)
}

// connect creates a client for a running server
func connect(r *runningServer, tc transportCase, newSerializer func() serializer.IRPCSerializer) (client.IRemoteStore, error) {
	return client.NewRPCStore(common.ClientConfig{
		TimeoutSecond: 10,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{r.endpoint},
			RetryCount: 3,
		},
	}, tc.client(), newSerializer())
}

// servedStore is a remote store that stops its server when it is closed
type servedStore struct {
	client.IRemoteStore
	server *runningServer
}

func (s *servedStore) Close() error {
	err := s.IRemoteStore.Close()
	s.server.Stop()
	return err
}

// remoteFactory serves a fresh memory store for every opened store
func remoteFactory(tc transportCase, newSerializer func() serializer.IRPCSerializer) store.Factory {
	return func(string) (store.IStore, error) {
		srv, err := startServer(memory.New(), tc, newSerializer, common.ServerConfig{})
		if err != nil {
			return nil, err
		}
		remote, err := connect(srv, tc, newSerializer)
		if err != nil {
			srv.Stop()
			return nil, err
		}
		return &servedStore{IRemoteStore: remote, server: srv}, nil
	}
}

// setup starts a server for backend and returns a connected client, both are stopped with the test
func setup(t *testing.T, backend store.IStore, tc transportCase, newSerializer func() serializer.IRPCSerializer) (*runningServer, client.IRemoteStore) {
	t.Helper()
	srv, err := startServer(backend, tc, newSerializer, common.ServerConfig{})
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	remote, err := connect(srv, tc, newSerializer)
	require.NoError(t, err)
	t.Cleanup(func() { _ = remote.Close() })
	return srv, remote
}

// --------------------------------------------------------------------------
// Raw frame helpers
// --------------------------------------------------------------------------

func writeRawFrame(w io.Writer, requestID uint64, payload []byte) error {
	header := make([]byte, 12)
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint32(header[8:], uint32(len(payload)))
	_, err := w.Write(append(header, payload...))
	return err
}

func readRawFrame(r io.Reader) (uint64, []byte, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	payload := make([]byte, binary.BigEndian.Uint32(header[8:]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return binary.BigEndian.Uint64(header[:8]), payload, nil
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// TestRemoteStore runs the store conformance suite through every transport and serializer
func TestRemoteStore(t *testing.T) {
	for _, tc := range transports {
		for name, newSerializer := range serializers {
			dbtesting.RunStoreTests(t, tc.name+"_"+name, remoteFactory(tc, newSerializer))
		}
	}
}

func TestEcho(t *testing.T) {
	for _, tc := range transports {
		t.Run(tc.name, func(t *testing.T) {
			_, remote := setup(t, memory.New(), tc, serializer.NewBinarySerializer)

			greeting, err := remote.Echo("world")
			require.NoError(t, err)
			require.Equal(t, "Hello, world!", greeting)

			greeting, err = remote.Echo("")
			require.NoError(t, err)
			require.Equal(t, "Hello, !", greeting)
		})
	}
}

func TestEchoDoesNotTouchTheStore(t *testing.T) {
	backend := memory.New()
	srv, remote := setup(t, backend, transports[0], serializer.NewBinarySerializer)

	// Echo works even if the store is closed
	require.NoError(t, srv.server.Store().Close())
	greeting, err := remote.Echo("closed")
	require.NoError(t, err)
	require.Equal(t, "Hello, closed!", greeting)

	err = remote.Add([]byte("k"), []byte("v"))
	require.True(t, store.IsCode(err, store.RetCStoreClosed), "got %v", err)
}

// failingStore fails or panics on selected operations
type failingStore struct {
	store.IStore
	failRemove error
	failAdd    error
	panicOnAdd bool
}

func (f *failingStore) Remove(key []byte) error {
	if f.failRemove != nil {
		return f.failRemove
	}
	return f.IStore.Remove(key)
}

func (f *failingStore) Add(key, value []byte) error {
	if f.panicOnAdd {
		panic("write failed")
	}
	if f.failAdd != nil {
		return f.failAdd
	}
	return f.IStore.Add(key, value)
}

func TestBackendErrorKeepsSessionOpen(t *testing.T) {
	for name, newSerializer := range serializers {
		t.Run(name, func(t *testing.T) {
			backend := &failingStore{IStore: memory.New(), failRemove: errors.New("disk full")}
			_, remote := setup(t, backend, transports[0], newSerializer)

			require.NoError(t, remote.Add([]byte("k"), []byte("v")))

			err := remote.Remove([]byte("k"))
			require.Error(t, err)
			var storeErr *store.Error
			require.ErrorAs(t, err, &storeErr)
			require.Equal(t, store.RetCInternalError, storeErr.Code)
			require.Contains(t, storeErr.Msg, "disk full")

			// The failed remove did not change anything and the session still works
			value, loaded, err := remote.Select([]byte("k"))
			require.NoError(t, err)
			require.True(t, loaded)
			require.Equal(t, []byte("v"), value)
		})
	}
}

func TestBackendPanicBecomesInternalError(t *testing.T) {
	backend := &failingStore{IStore: memory.New(), panicOnAdd: true}
	_, remote := setup(t, backend, transports[0], serializer.NewBinarySerializer)

	err := remote.Add([]byte("k"), []byte("v"))
	require.True(t, store.IsCode(err, store.RetCInternalError), "got %v", err)

	// The guard was released
	_, loaded, err := remote.Select([]byte("k"))
	require.NoError(t, err)
	require.False(t, loaded)
}

func TestUndecodableRequest(t *testing.T) {
	srv, _ := setup(t, memory.New(), transports[0], serializer.NewBinarySerializer)
	ser := serializer.NewBinarySerializer()

	conn, err := net.Dial("tcp", srv.endpoint)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	// An intact frame with a payload the serializer cannot decode
	require.NoError(t, writeRawFrame(conn, 7, []byte{0x01}))
	id, payload, err := readRawFrame(conn)
	require.NoError(t, err)
	require.Equal(t, uint64(7), id)

	var resp common.Message
	require.NoError(t, ser.Deserialize(payload, &resp))
	require.Equal(t, common.MsgTError, resp.MsgType)
	require.Equal(t, store.RetCInvalidOperation, resp.Code)
	require.True(t, store.IsCode(resp.Error(), store.RetCInvalidOperation))

	// The session continues
	req, err := ser.Serialize(*common.NewEchoRequest("again"))
	require.NoError(t, err)
	require.NoError(t, writeRawFrame(conn, 8, req))
	id, payload, err = readRawFrame(conn)
	require.NoError(t, err)
	require.Equal(t, uint64(8), id)
	require.NoError(t, ser.Deserialize(payload, &resp))
	require.Equal(t, "Hello, again!", resp.Text)
}

func TestFramingErrorIsolation(t *testing.T) {
	for _, tc := range transports[:2] {
		t.Run(tc.name, func(t *testing.T) {
			srv, err := startServer(memory.New(), tc, serializer.NewBinarySerializer, common.ServerConfig{
				Transport: common.ServerTransportConfig{MaxFrameSize: 1 << 20},
			})
			require.NoError(t, err)
			defer srv.Stop()

			healthy, err := connect(srv, tc, serializer.NewBinarySerializer)
			require.NoError(t, err)
			defer healthy.Close()
			require.NoError(t, healthy.Add([]byte("a"), []byte("1")))

			network := "tcp"
			if tc.name == "Unix" {
				network = "unix"
			}
			bad, err := net.Dial(network, srv.endpoint)
			require.NoError(t, err)
			defer bad.Close()

			// Announce a frame above the limit
			header := make([]byte, 12)
			binary.BigEndian.PutUint64(header[:8], 1)
			binary.BigEndian.PutUint32(header[8:], 1<<30)
			_, err = bad.Write(header)
			require.NoError(t, err)

			// The server closes the broken session
			require.NoError(t, bad.SetReadDeadline(time.Now().Add(10*time.Second)))
			_, err = bad.Read(make([]byte, 1))
			require.Error(t, err)
			var ne net.Error
			require.False(t, errors.As(err, &ne) && ne.Timeout(), "broken session was not closed")

			// Other sessions and the store are unaffected
			require.NoError(t, healthy.Add([]byte("b"), []byte("2")))
			pairs, err := healthy.SelectRange(nil, []byte{0xff})
			require.NoError(t, err)
			require.Equal(t, []store.Pair{
				{Key: []byte("a"), Value: []byte("1")},
				{Key: []byte("b"), Value: []byte("2")},
			}, pairs)
		})
	}
}

func TestConcurrentSessions(t *testing.T) {
	for _, tc := range transports {
		t.Run(tc.name, func(t *testing.T) {
			srv, err := startServer(memory.New(), tc, serializer.NewBinarySerializer, common.ServerConfig{})
			require.NoError(t, err)
			defer srv.Stop()

			const sessions, keysPerSession = 8, 100
			var wg sync.WaitGroup
			errs := make(chan error, sessions)

			for s := 0; s < sessions; s++ {
				wg.Add(1)
				go func(s int) {
					defer wg.Done()
					remote, err := connect(srv, tc, serializer.NewBinarySerializer)
					if err != nil {
						errs <- err
						return
					}
					defer remote.Close()

					for i := 0; i < keysPerSession; i++ {
						key := []byte(fmt.Sprintf("s%02d-k%03d", s, i))
						// Overwrite, then read back: same session operations are applied in order
						if err := remote.Add(key, []byte("old")); err != nil {
							errs <- err
							return
						}
						if err := remote.Add(key, []byte(fmt.Sprintf("v%d", i))); err != nil {
							errs <- err
							return
						}
						value, loaded, err := remote.Select(key)
						if err != nil {
							errs <- err
							return
						}
						if !loaded || string(value) != fmt.Sprintf("v%d", i) {
							errs <- fmt.Errorf("session %d: read %q (loaded=%v) for %s", s, value, loaded, key)
							return
						}
					}
				}(s)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			// Every write of every session is visible
			pairs, err := srv.server.Store().SelectRange(nil, []byte{0xff})
			require.NoError(t, err)
			require.Len(t, pairs, sessions*keysPerSession)
		})
	}
}

func TestConcurrentRemoveRangeAcrossSessions(t *testing.T) {
	srv, err := startServer(memory.New(), transports[0], serializer.NewBinarySerializer, common.ServerConfig{})
	require.NoError(t, err)
	defer srv.Stop()

	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, srv.server.Store().Add([]byte(fmt.Sprintf("k%04d", i)), []byte("v")))
	}

	// Several sessions remove the same range, every entry is returned exactly once
	const sessions = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		removed = map[string]int{}
		errs    = make(chan error, sessions)
	)
	for s := 0; s < sessions; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remote, err := connect(srv, transports[0], serializer.NewBinarySerializer)
			if err != nil {
				errs <- err
				return
			}
			defer remote.Close()
			for i := 0; i < 10; i++ {
				pairs, err := remote.RemoveRange([]byte("k"), []byte("l"))
				if err != nil {
					errs <- err
					return
				}
				mu.Lock()
				for _, p := range pairs {
					removed[string(p.Key)]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, removed, n)
	for key, count := range removed {
		require.Equal(t, 1, count, "key %s removed more than once", key)
	}
}

func TestShutdown(t *testing.T) {
	srv, err := startServer(memory.New(), transports[0], serializer.NewBinarySerializer, common.ServerConfig{})
	require.NoError(t, err)

	remote, err := connect(srv, transports[0], serializer.NewBinarySerializer)
	require.NoError(t, err)
	defer remote.Close()
	require.NoError(t, remote.Add([]byte("k"), []byte("v")))

	stopped := make(chan struct{})
	go func() {
		srv.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}

	_, _, err = remote.Select([]byte("k"))
	require.Error(t, err)
}

func TestAdapterRejectsUnknownTypes(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	s := memory.New()
	defer s.Close()

	for _, msgType := range []common.MessageType{common.MsgTUnknown, common.MsgTError, common.MessageType(200)} {
		resp := adapter.Handle(&common.Message{MsgType: msgType}, s)
		require.Equal(t, common.MsgTError, resp.MsgType)
		require.True(t, store.IsCode(resp.Error(), store.RetCInvalidOperation), "type %d: %v", msgType, resp.Error())
	}
}

func TestAdapterMapsOperations(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	s := memory.New()
	defer s.Close()

	for _, k := range []string{"a", "b", "c"} {
		resp := adapter.Handle(common.NewAddRequest([]byte(k), []byte("v"+k)), s)
		require.NoError(t, resp.Error())
		require.Equal(t, common.MsgTAdd, resp.MsgType)
	}

	resp := adapter.Handle(common.NewSelectRequest([]byte("b")), s)
	require.True(t, resp.Ok)
	require.Equal(t, []byte("vb"), resp.Value)

	resp = adapter.Handle(common.NewSelectRequest([]byte("x")), s)
	require.NoError(t, resp.Error())
	require.False(t, resp.Ok)

	resp = adapter.Handle(common.NewRemoveRangeRequest([]byte("a"), []byte("c")), s)
	require.NoError(t, resp.Error())
	require.Equal(t, []store.Pair{
		{Key: []byte("a"), Value: []byte("va")},
		{Key: []byte("b"), Value: []byte("vb")},
	}, resp.Pairs)

	resp = adapter.Handle(common.NewSelectRangeRequest(nil, []byte{0xff}), s)
	require.Equal(t, []store.Pair{{Key: []byte("c"), Value: []byte("vc")}}, resp.Pairs)

	resp = adapter.Handle(common.NewRemoveRequest([]byte("c")), s)
	require.NoError(t, resp.Error())
	resp = adapter.Handle(common.NewFlushRequest(), s)
	require.NoError(t, resp.Error())
	require.Equal(t, common.MsgTFlush, resp.MsgType)

	resp = adapter.Handle(common.NewEchoRequest("adapter"), nil)
	require.Equal(t, "Hello, adapter!", resp.Text)
}

func TestErrorsWithoutMessageAreReported(t *testing.T) {
	cases := map[string]struct {
		err  error
		code store.RetCode
	}{
		"PlainError": {errors.New(""), store.RetCInternalError},
		"StoreError": {store.NewError(store.RetCInvalidOperation, ""), store.RetCInvalidOperation},
		"NoCode":     {store.NewError(store.RetCSuccess, ""), store.RetCInternalError},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			backend := &failingStore{IStore: memory.New(), failAdd: tc.err}
			_, remote := setup(t, backend, transports[0], serializer.NewBinarySerializer)

			err := remote.Add([]byte("k"), []byte("v"))
			require.Error(t, err)
			var storeErr *store.Error
			require.ErrorAs(t, err, &storeErr)
			require.Equal(t, tc.code, storeErr.Code)
			require.NotEmpty(t, storeErr.Msg)

			_, loaded, err := remote.Select([]byte("k"))
			require.NoError(t, err)
			require.False(t, loaded)
		})
	}
}

func TestResponsesRespectTheFrameLimit(t *testing.T) {
	const limit = 4096
	value := make([]byte, 1024)

	for _, tc := range transports {
		t.Run(tc.name, func(t *testing.T) {
			config := common.ServerConfig{Transport: common.ServerTransportConfig{MaxFrameSize: limit}}
			srv, err := startServer(memory.New(), tc, serializer.NewBinarySerializer, config)
			require.NoError(t, err)
			t.Cleanup(srv.Stop)

			remote, err := connect(srv, tc, serializer.NewBinarySerializer)
			require.NoError(t, err)
			t.Cleanup(func() { _ = remote.Close() })

			keys := [][]byte{[]byte("k0"), []byte("k1"), []byte("k2"), []byte("k3"), []byte("k4")}
			for _, k := range keys {
				require.NoError(t, remote.Add(k, value))
			}

			// five values do not fit into one response
			_, err = remote.SelectRange([]byte("k"), []byte("l"))
			require.True(t, store.IsCode(err, store.RetCInternalError), "got %v", err)

			// nothing is removed if the removed entries can not be returned
			_, err = remote.RemoveRange([]byte("k"), []byte("l"))
			require.True(t, store.IsCode(err, store.RetCInternalError), "got %v", err)
			for _, k := range keys {
				_, loaded, err := remote.Select(k)
				require.NoError(t, err)
				require.True(t, loaded, "key %s was removed", k)
			}

			// the session is still usable and small ranges work
			pairs, err := remote.RemoveRange([]byte("k0"), []byte("k2"))
			require.NoError(t, err)
			require.Len(t, pairs, 2)
			require.Equal(t, []byte("k0"), pairs[0].Key)
			require.Equal(t, value, pairs[1].Value)

			pairs, err = remote.SelectRange([]byte("k"), []byte("l"))
			require.NoError(t, err)
			require.Len(t, pairs, 3)
		})
	}
}
