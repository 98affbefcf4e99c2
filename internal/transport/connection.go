// Package transport wraps one TCP connection with the length-prefixed
// framing of internal/protocol, replacing the teacher's newline-delimited
// bufio.Scanner read loop (internal/server/client.go) with the
// accumulate-then-decode loop spec.md §4.2 requires.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/guildchat/server/internal/protocol"
)

// ErrConnectionClosed is returned by Read when the peer closes the
// connection before a complete frame arrives.
var ErrConnectionClosed = errors.New("transport: connection closed before a complete frame was read")

// readChunkSize is how much is read from the socket per Read(2) syscall
// while accumulating a frame.
const readChunkSize = 4096

// Connection wraps one bidirectional net.Conn with framed read/write.
type Connection struct {
	conn net.Conn
	buf  []byte // bytes read so far that have not yet formed a complete frame
}

// New wraps conn.
func New(conn net.Conn) *Connection {
	return &Connection{conn: conn}
}

// Write encodes value as one frame and writes it in full, looping until
// every byte is flushed.
func (c *Connection) Write(value any) error {
	frame, err := protocol.Encode(value)
	if err != nil {
		return err
	}

	for len(frame) > 0 {
		n, err := c.conn.Write(frame)
		if err != nil {
			return fmt.Errorf("transport: write: %w", err)
		}
		frame = frame[n:]
	}
	return nil
}

// Read accumulates bytes from the connection and decodes exactly one frame
// into out. Bytes received past the frame boundary are retained internally
// but spec.md §4.2 assumes one request per connection, so callers only ever
// call Read once per Connection.
func (c *Connection) Read(out any) error {
	for {
		consumed, ok, err := protocol.Decode(c.buf, out)
		if err != nil {
			return fmt.Errorf("transport: decode: %w", err)
		}
		if ok {
			c.buf = c.buf[consumed:]
			return nil
		}

		chunk := make([]byte, readChunkSize)
		n, err := c.conn.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
			// New bytes arrived even though the read also reported an
			// error (e.g. EOF delivered with the final chunk) — give
			// decode another chance before treating this as fatal.
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrConnectionClosed
			}
			return fmt.Errorf("transport: read: %w", err)
		}
	}
}

// Shutdown half-closes the write side of the connection.
func (c *Connection) Shutdown() error {
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.conn.Close()
}

// Close fully closes the underlying connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}
