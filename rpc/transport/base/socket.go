package base

import (
	"net"
	"time"

	"github.com/ValentinKolb/versedb/rpc/common"
)

// ApplySocketOptions applies buffer and tcp settings to conn. Settings that do not
// apply to the connection type (e.g. keep-alive on a unix socket) are skipped.
func ApplySocketOptions(conn net.Conn, socket common.SocketConf, tcp *common.TCPConf) error {
	type bufferedConn interface {
		SetWriteBuffer(bytes int) error
		SetReadBuffer(bytes int) error
	}

	// Set socket buffer sizes if configured
	if bc, ok := conn.(bufferedConn); ok {
		if socket.WriteBufferSize > 0 {
			if err := bc.SetWriteBuffer(socket.WriteBufferSize); err != nil {
				return err
			}
		}
		if socket.ReadBufferSize > 0 {
			if err := bc.SetReadBuffer(socket.ReadBufferSize); err != nil {
				return err
			}
		}
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok || tcp == nil {
		return nil
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(tcp.TCPNoDelay); err != nil {
		return err
	}

	// Enable TCP keep-alive if configured
	if tcp.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(tcp.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	// Set TCP linger option if configured
	if tcp.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(tcp.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}
