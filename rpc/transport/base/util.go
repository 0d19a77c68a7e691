package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
)

// headerSize is the size of a frame header: 8 bytes requestID + 4 bytes length
const headerSize = 12

// ErrFrameTooLarge is returned by readFrame if a frame exceeds the configured limit.
// The stream cannot be resynchronized after that, so the connection has to be closed.
var ErrFrameTooLarge = errors.New("frame too large")

// writeFrame writes a frame to w with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(w io.Writer, requestID uint64, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes do not fit the length field", ErrFrameTooLarge, len(data))
	}
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads a frame from r. The returned payload is always a fresh slice,
// so it can be handed to another goroutine. Frames with a payload larger than
// maxSize are rejected with ErrFrameTooLarge before the payload is read.
func readFrame(r io.Reader, maxSize int) (uint64, []byte, error) {
	var header [headerSize]byte

	// Read header
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, err
	}

	// Parse header
	requestID := binary.BigEndian.Uint64(header[:8])
	contentLength := binary.BigEndian.Uint32(header[8:12])

	if maxSize > 0 && uint64(contentLength) > uint64(maxSize) {
		return requestID, nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, contentLength, maxSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return requestID, []byte{}, nil
	}

	// Read data
	data := make([]byte, contentLength)
	if _, err := io.ReadFull(r, data); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return requestID, nil, err
	}

	return requestID, data, nil
}
