package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultMaxFrameSize is the largest frame accepted if no limit is configured
	DefaultMaxFrameSize = 64 * 1024 * 1024 // 64 MB
	// DefaultPipelineDepth is the number of received but unprocessed requests per session
	DefaultPipelineDepth = 64
	// DefaultRetryCount is the number of attempts to send a request if none is configured
	DefaultRetryCount = 3
)

// --------------------------------------------------------------------------
// Shared transport configuration
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings, zero keeps the OS defaults.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific settings. A negative TCPLingerSec keeps the OS default.
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// frameLimit returns size, or DefaultMaxFrameSize if size is not positive.
// The limit never exceeds what the 4 byte length field of a frame can express.
func frameLimit(size int) int {
	if size <= 0 {
		return DefaultMaxFrameSize
	}
	return int(min(uint64(size), math.MaxUint32))
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the listening side of the transport.
type ServerTransportConfig struct {
	// Endpoint is host:port for tcp and http, a socket path for unix
	Endpoint string
	// MaxFrameSize is the largest accepted request frame, larger frames end the session
	MaxFrameSize int
	// PipelineDepth bounds the number of requests a session reads ahead of processing
	PipelineDepth int

	SocketConf
	TCPConf
}

// FrameLimit returns the effective maximum frame size.
func (c ServerTransportConfig) FrameLimit() int {
	return frameLimit(c.MaxFrameSize)
}

// Depth returns the effective pipeline depth.
func (c ServerTransportConfig) Depth() int {
	if c.PipelineDepth <= 0 {
		return DefaultPipelineDepth
	}
	return c.PipelineDepth
}

// ServerConfig holds all configuration parameters of a versedb server process.
type ServerConfig struct {
	// Backend is the name of the store implementation (see db.Implementation)
	Backend string
	// Location is the backend specific location (file or directory)
	Location string

	// TimeoutSecond bounds writing a response, 0 disables the deadline
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// MetricsEndpoint serves /metrics if set
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Store
	addSection("Store")
	addField("Backend", c.Backend)
	addField("Location", c.Location)

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.FrameLimit()))
	addField("Pipeline Depth", strconv.Itoa(c.Transport.Depth()))

	// Socket settings
	addSection("Socket")
	addField("Write Buffer Size", strconv.Itoa(c.Transport.WriteBufferSize))
	addField("Read Buffer Size", strconv.Itoa(c.Transport.ReadBufferSize))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	// Metrics
	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the connecting side of the transport.
type ClientTransportConfig struct {
	// Endpoints to connect to, requests are distributed round robin
	Endpoints []string
	// RetryCount is the number of attempts for a request that could not be sent
	RetryCount int
	// ConnectionsPerEndpoint is the number of connections (sessions) per endpoint
	ConnectionsPerEndpoint int
	// MaxFrameSize is the largest accepted response frame
	MaxFrameSize int

	SocketConf
	TCPConf
}

// FrameLimit returns the effective maximum frame size.
func (c ClientTransportConfig) FrameLimit() int {
	return frameLimit(c.MaxFrameSize)
}

// Retries returns the effective number of attempts.
func (c ClientTransportConfig) Retries() int {
	if c.RetryCount < 1 {
		return DefaultRetryCount
	}
	return c.RetryCount
}

// ConnectionsPerEP returns the effective number of connections per endpoint.
func (c ClientTransportConfig) ConnectionsPerEP() int {
	if c.ConnectionsPerEndpoint < 1 {
		return 1
	}
	return c.ConnectionsPerEndpoint
}

// ClientConfig holds the configuration of an rpc client.
type ClientConfig struct {
	// TimeoutSecond bounds sending a request and waiting for its response, 0 disables it
	TimeoutSecond int

	// Transport settings
	Transport ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.Retries()))
	addField("Connections Per Endpoint", strconv.Itoa(c.Transport.ConnectionsPerEP()))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.FrameLimit()))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
