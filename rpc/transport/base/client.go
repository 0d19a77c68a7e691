package base

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

var (
	// ErrTransportClosed is returned by Send after Close was called
	ErrTransportClosed = errors.New("transport closed")
	// ErrRequestTimeout is returned by Send if no response arrived in time
	ErrRequestTimeout = errors.New("request timed out")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint, a zero timeout means no timeout
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// link is one established net connection together with the requests waiting on it
type link struct {
	conn    net.Conn
	pending *xsync.MapOf[uint64, chan responseResult]
}

// clientConnection represents a single, reconnecting connection to an endpoint
type clientConnection struct {
	endpoint string
	connMu   sync.Mutex // Protects link and all writes to it
	link     *link      // nil while disconnected
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64 // Counter for Round Robin
	nextRequestID atomic.Uint64 // Counter for unique request IDs
	stopping      atomic.Bool   // Signals shutdown
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	// Store the config
	t.config = config
	t.stopping.Store(false)

	connectionsPerEP := config.Transport.ConnectionsPerEP()
	connections := make([]*clientConnection, 0, len(config.Transport.Endpoints)*connectionsPerEP)

	// Initialize client connections
	for _, endpoint := range config.Transport.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			clientConn := &clientConnection{
				endpoint: endpoint,
				parent:   t,
			}

			// Establish the initial connection
			clientConn.connMu.Lock()
			_, err := clientConn.connect()
			clientConn.connMu.Unlock()
			if err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}

			connections = append(connections, clientConn)
			Logger.Debugf("Connected to %s (connection %d/%d)", endpoint, i+1, connectionsPerEP)
		}
	}

	// Check if we have at least one connection
	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected to %d out of %d connections to %d endpoints using %s transport",
		len(connections), len(config.Transport.Endpoints)*connectionsPerEP, len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	if t.stopping.Load() {
		return nil, ErrTransportClosed
	}

	if limit := t.config.Transport.FrameLimit(); len(req) > limit {
		return nil, fmt.Errorf("%w: request has %d bytes (limit %d)", ErrFrameTooLarge, len(req), limit)
	}

	// Generate a unique request ID
	requestID := t.nextRequestID.Add(1)
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	maxRetries := t.config.Transport.Retries()

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		// Only requests that were not written are retried. Once the server may have
		// received a request, resending it could apply it twice.
		respCh, l, err := conn.write(requestID, req, timeout)
		if err == nil {
			return conn.wait(l, requestID, respCh, timeout)
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if t.stopping.Load() {
			return nil, ErrTransportClosed
		}

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}

	// optimize for single connection
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	index := t.nextConnIndex.Add(1) % uint64(len(t.connections))
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		c.connMu.Lock()
		if c.link != nil {
			// the reader goroutine fails the pending requests
			_ = c.link.conn.Close()
			c.link = nil
		}
		c.connMu.Unlock()
	}
}

// connect establishes a new link to the endpoint and starts its reader, connMu must be held
func (c *clientConnection) connect() (*link, error) {
	timeout := time.Duration(c.parent.config.TimeoutSecond) * time.Second

	// Connect to the endpoint
	conn, err := c.parent.connector.Connect(c.endpoint, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := c.parent.connector.UpgradeConnection(conn, c.parent.config); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}

	l := &link{
		conn:    conn,
		pending: xsync.NewMapOf[uint64, chan responseResult](),
	}
	c.link = l
	go c.readResponses(l)
	return l, nil
}

// write registers the request and writes its frame, reconnecting first if necessary.
// An error means the request was not (completely) written.
func (c *clientConnection) write(requestID uint64, req []byte, timeout time.Duration) (chan responseResult, *link, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.parent.stopping.Load() {
		return nil, nil, ErrTransportClosed
	}

	// Restore the connection if it was lost
	l := c.link
	if l == nil {
		var err error
		if l, err = c.connect(); err != nil {
			return nil, nil, err
		}
		Logger.Infof("Reconnected to %s", c.endpoint)
	}

	// Register the request before writing, the response may arrive immediately
	respCh := make(chan responseResult, 1)
	l.pending.Store(requestID, respCh)

	if timeout > 0 {
		if err := l.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			l.pending.Delete(requestID)
			c.drop(l)
			return nil, nil, err
		}
	}

	if err := writeFrame(l.conn, requestID, req); err != nil {
		// A partially written frame leaves the stream unusable
		l.pending.Delete(requestID)
		c.drop(l)
		return nil, nil, err
	}

	return respCh, l, nil
}

// wait waits for the response of a written request
func (c *clientConnection) wait(l *link, requestID uint64, respCh chan responseResult, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		result := <-respCh
		return result.data, result.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timer.C:
		l.pending.Delete(requestID)
		return nil, fmt.Errorf("%w after %s (request %d to %s)", ErrRequestTimeout, timeout, requestID, c.endpoint)
	}
}

// drop closes a link and detaches it from the connection, connMu must be held
func (c *clientConnection) drop(l *link) {
	_ = l.conn.Close()
	if c.link == l {
		c.link = nil
	}
}

// readResponses reads responses in a loop and distributes them to waiting requests.
// On a read error all requests still waiting on the link fail.
func (c *clientConnection) readResponses(l *link) {
	reader := bufio.NewReader(l.conn)
	maxFrameSize := c.parent.config.Transport.FrameLimit()

	var readErr error
	for {
		requestID, data, err := readFrame(reader, maxFrameSize)
		if err != nil {
			readErr = err
			break
		}

		// Find the corresponding request channel
		if respCh, found := l.pending.LoadAndDelete(requestID); found {
			respCh <- responseResult{data: data}
		} else {
			Logger.Warningf("Received response for unknown request ID %d from %s", requestID, c.endpoint)
		}
	}

	// Detach the link, no new request can be registered on it afterwards
	c.connMu.Lock()
	c.drop(l)
	c.connMu.Unlock()

	if !c.parent.stopping.Load() && !errors.Is(readErr, net.ErrClosed) {
		Logger.Warningf("Connection to %s lost: %v", c.endpoint, readErr)
	}

	// Fail every request that is still waiting
	failure := fmt.Errorf("connection to %s lost before response: %w", c.endpoint, readErr)
	l.pending.Range(func(requestID uint64, _ chan responseResult) bool {
		if respCh, found := l.pending.LoadAndDelete(requestID); found {
			respCh <- responseResult{err: failure}
		}
		return true
	})
}
