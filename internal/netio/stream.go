// Package netio provides a buffered, bidirectional framed stream over a
// net.Conn with a per-call absolute deadline, settable and reconfigurable
// mid-session. It knows nothing about the klip protocol itself.
package netio

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/lmaotrigine/klip/internal/errs"
)

// Stream wraps a net.Conn with buffered reads/writes and deadline helpers.
// It is not safe for concurrent use by multiple goroutines — klip sessions
// are strictly sequential per connection.
type Stream struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// New wraps conn in a Stream.
func New(conn net.Conn) *Stream {
	return &Stream{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

// SetDeadline sets the absolute instant by which the next read/write must
// complete.
func (s *Stream) SetDeadline(d time.Time) error {
	return wrapIOErr(s.conn.SetDeadline(d))
}

// SetTimeout is shorthand for SetDeadline(time.Now().Add(d)).
func (s *Stream) SetTimeout(d time.Duration) error {
	return s.SetDeadline(time.Now().Add(d))
}

// ReadExact reads exactly len(buf) bytes, or returns an error — typically
// KindTimeout (deadline exceeded) or KindIO (any other transport failure).
func (s *Stream) ReadExact(buf []byte) error {
	_, err := io.ReadFull(s.r, buf)
	return wrapIOErr(err)
}

// WriteAll buffers buf for writing; call Flush to push it to the wire.
func (s *Stream) WriteAll(buf []byte) error {
	_, err := s.w.Write(buf)
	return wrapIOErr(err)
}

// Flush pushes any buffered writes to the underlying connection.
func (s *Stream) Flush() error {
	return wrapIOErr(s.w.Flush())
}

// RemoteAddr returns the peer address of the underlying connection.
func (s *Stream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}

func wrapIOErr(err error) error {
	if err == nil {
		return nil
	}
	var ne net.Error
	if ok := asNetError(err, &ne); ok && ne.Timeout() {
		return errs.Wrap(errs.KindTimeout, err, "deadline exceeded")
	}
	return errs.Wrap(errs.KindIO, err, "i/o error")
}

func asNetError(err error, target *net.Error) bool {
	for err != nil {
		if ne, ok := err.(net.Error); ok {
			*target = ne
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
