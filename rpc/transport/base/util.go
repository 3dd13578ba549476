package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
)

const (
	// headerSize is the size of a frame header:
	// 8 bytes requestID, 2 bytes database name length, 4 bytes payload length
	headerSize = 14

	// MaxNameBytes is the longest database name a frame can carry
	MaxNameBytes = math.MaxUint16

	// MaxFrameBytes bounds the payload of a single frame
	MaxFrameBytes = 32 << 20
)

// frame is one request or response on a framed connection
type frame struct {
	requestID uint64
	database  string
	data      []byte
}

// writeFrame writes a frame to w with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 2 bytes: database name length (uint16, big endian)
// - 4 bytes: data length (uint32, big endian)
// - M bytes: database name
// - N bytes: data payload
func writeFrame(w io.Writer, requestID uint64, database string, data []byte) error {
	if len(database) > MaxNameBytes {
		return fmt.Errorf("database name too long (%d > %d bytes)", len(database), MaxNameBytes)
	}
	if len(data) > MaxFrameBytes {
		return fmt.Errorf("frame too large (%d > %d bytes)", len(data), MaxFrameBytes)
	}

	header := make([]byte, headerSize, headerSize+len(database))
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint16(header[8:10], uint16(len(database)))
	binary.BigEndian.PutUint32(header[10:14], uint32(len(data)))
	header = append(header, database...)

	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads a frame from r. The payload is read into buf if it is large
// enough, otherwise a new buffer is allocated. The name is always copied.
func readFrame(r io.Reader, buf []byte) (frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return frame{}, err
	}

	f := frame{requestID: binary.BigEndian.Uint64(header[:8])}
	nameLength := int(binary.BigEndian.Uint16(header[8:10]))
	contentLength := binary.BigEndian.Uint32(header[10:14])

	if contentLength > MaxFrameBytes {
		return frame{}, fmt.Errorf("frame too large (%d > %d bytes)", contentLength, MaxFrameBytes)
	}

	if nameLength > 0 {
		name := make([]byte, nameLength)
		if _, err := io.ReadFull(r, name); err != nil {
			return frame{}, unexpected(err)
		}
		f.database = string(name)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		f.data = []byte{}
		return f, nil
	}

	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}
	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return frame{}, unexpected(err)
	}
	f.data = buf[:contentLength]
	return f, nil
}

// unexpected turns EOF inside a frame into ErrUnexpectedEOF, only a clean
// EOF between two frames means the peer closed the connection
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
