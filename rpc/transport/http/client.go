package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/ValentinKolb/versedb/rpc/transport"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURLs   []string
	client       *http.Client
	counter      atomic.Uint32
	retryCount   int
	maxFrameSize int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Parse each server URL, plain host:port endpoints are http
	serverURLs := make([]string, len(config.Transport.Endpoints))
	for i, endpoint := range config.Transport.Endpoints {
		if !strings.Contains(endpoint, "://") {
			endpoint = "http://" + endpoint
		}
		parsedURL, err := url.Parse(endpoint)
		if err != nil {
			return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
		}
		parsedURL.Path = RPCPath
		serverURLs[i] = parsedURL.String()
	}

	// Create client with default transport
	perHost := config.Transport.ConnectionsPerEP()
	t.client = &http.Client{
		Timeout: time.Duration(config.TimeoutSecond) * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: perHost,
			MaxConnsPerHost:     perHost,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Set the client and server URLs
	t.serverURLs = serverURLs
	t.counter.Store(0)
	t.retryCount = config.Transport.Retries()
	t.maxFrameSize = config.Transport.FrameLimit()

	Logger.Infof("Using http transport with %d endpoints", len(serverURLs))

	// No error
	return nil
}

func (t *httpClientTransport) Send(req []byte) ([]byte, error) {
	// Check if the transport is initialized
	if t.client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	var lastErr error
	for i := 0; i < t.retryCount; i++ {
		// Select the next server via round-robin
		idx := t.counter.Add(1) % uint32(len(t.serverURLs))

		resp, err := t.post(t.serverURLs[idx], req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Only requests that never reached a server are retried
		if !isDialError(err) {
			return nil, err
		}
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, t.retryCount, err)
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %w", t.retryCount, lastErr)
}

func (t *httpClientTransport) Close() error {
	// Close the client
	if t.client != nil {
		t.client.CloseIdleConnections()
	}

	// Reset the client and server URLs
	t.client = nil
	t.serverURLs = nil

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// post sends one request to serverURL and returns the response body
func (t *httpClientTransport) post(serverURL string, req []byte) ([]byte, error) {
	httpResponse, err := t.client.Post(serverURL, "application/octet-stream", bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Debugf("Failed to close response body: %v", err)
		}
	}()

	// Check if the response status code is OK
	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %s", httpResponse.Status)
	}

	// Read the response body
	body, err := io.ReadAll(io.LimitReader(httpResponse.Body, int64(t.maxFrameSize)+1))
	if err != nil {
		return nil, err
	}
	if len(body) > t.maxFrameSize {
		return nil, fmt.Errorf("response exceeds %d bytes", t.maxFrameSize)
	}
	return body, nil
}

// isDialError reports whether err happened while establishing the connection
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
