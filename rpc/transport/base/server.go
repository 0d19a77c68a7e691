package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

const (
	// minAcceptDelay and maxAcceptDelay bound the backoff after temporary accept errors
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = 1 * time.Second
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// request is a received frame waiting to be processed
type request struct {
	requestID uint64
	data      []byte
}

// session is the server side of one connection
type session struct {
	id     uint64
	conn   net.Conn
	remote string

	writeMu sync.Mutex  // Serializes response writes
	broken  atomic.Bool // Set after the first failed write, later responses are discarded
	once    sync.Once
}

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector     IServerConnector
	handler       transport.ServerHandleFunc
	bufferSize    int
	sessions      *xsync.MapOf[uint64, *session]
	nextSessionID atomic.Uint64
	wg            sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport. bufferSize is the size of
// the read buffer of every session if no ReadBufferSize is configured.
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	return &serverTransport{
		connector:  connector,
		bufferSize: bufferSize,
		sessions:   xsync.NewMapOf[uint64, *session](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	return t.Serve(ctx, listener, config)
}

func (t *serverTransport) Serve(ctx context.Context, listener net.Listener, config common.ServerConfig) error {
	if t.handler == nil {
		_ = listener.Close()
		return errors.New("no handler registered")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the listener unblocks Accept
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	Logger.Infof("Starting %s server on %s (pipeline depth %d, max frame size %d bytes)",
		t.connector.GetName(), listener.Addr(), config.Transport.Depth(), config.Transport.FrameLimit())

	var (
		tempDelay time.Duration
		serveErr  error
	)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = minAcceptDelay
				} else {
					tempDelay *= 2
				}
				if tempDelay > maxAcceptDelay {
					tempDelay = maxAcceptDelay
				}
				Logger.Warningf("Accept error: %v; retrying in %v", err, tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			serveErr = fmt.Errorf("accept failed: %w", err)
			break
		}
		tempDelay = 0

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to apply socket options to %s: %v", conn.RemoteAddr(), err)
		}

		// Every connection gets its own session, accepting never waits for sessions
		s := &session{
			id:     t.nextSessionID.Add(1),
			conn:   conn,
			remote: conn.RemoteAddr().String(),
		}
		t.sessions.Store(s.id, s)
		activeSessions.Add(1)
		sessionsTotal.Inc()

		t.wg.Add(1)
		go t.handleSession(s, config)
	}

	// Shutdown: close every live session and wait for their in-flight requests
	t.sessions.Range(func(_ uint64, s *session) bool {
		s.close()
		return true
	})
	t.wg.Wait()

	if serveErr == nil {
		Logger.Infof("%s server on %s stopped", t.connector.GetName(), listener.Addr())
	}
	return serveErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleSession reads requests of one connection and processes them strictly in order
func (t *serverTransport) handleSession(s *session, config common.ServerConfig) {
	defer t.wg.Done()
	defer func() {
		s.close()
		t.sessions.Delete(s.id)
		activeSessions.Add(-1)
	}()

	Logger.Debugf("Session %d opened by %s", s.id, s.remote)

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	maxFrameSize := config.Transport.FrameLimit()

	bufferSize := t.bufferSize
	if config.Transport.ReadBufferSize > 0 {
		bufferSize = config.Transport.ReadBufferSize
	}
	reader := bufio.NewReaderSize(s.conn, bufferSize)

	// The worker drains the queue in order, so requests of one session never overlap
	queue := make(chan request, config.Transport.Depth())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for req := range queue {
			start := time.Now()
			resp := t.handler(req.data)
			Logger.Debugf("Session %d processed request %d in %s", s.id, req.requestID, time.Since(start))
			s.writeResponse(req.requestID, resp, timeout)
		}
	}()

	// Read frames until the peer disconnects or the stream breaks
	for {
		requestID, data, err := readFrame(reader, maxFrameSize)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				Logger.Debugf("Session %d closed by %s", s.id, s.remote)
			case errors.Is(err, net.ErrClosed):
				Logger.Debugf("Session %d closed", s.id)
			default:
				framingErrorsTotal.Inc()
				Logger.Warningf("Session %d (%s) terminated: %v", s.id, s.remote, err)
			}
			break
		}
		queue <- request{requestID: requestID, data: data}
	}

	// Requests already received still run against the store
	close(queue)
	<-workerDone

	Logger.Debugf("Session %d ended", s.id)
}

// writeResponse writes a response frame, after the first failure responses are discarded
func (s *session) writeResponse(requestID uint64, resp []byte, timeout time.Duration) {
	if s.broken.Load() {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			s.broken.Store(true)
			return
		}
	}

	if err := writeFrame(s.conn, requestID, resp); err != nil {
		Logger.Debugf("Session %d: failed to write response %d: %v", s.id, requestID, err)
		s.broken.Store(true)
		// the client can not recover the stream, so it has to see the session end
		s.close()
	}
}

// close closes the connection of the session exactly once
func (s *session) close() {
	s.once.Do(func() {
		_ = s.conn.Close()
	})
}
