package base

import (
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// Receive reads once from conn into buf and returns a copy of the bytes read.
//
// The deadline is set before the read: timeout > 0 expires the read after
// timeout, timeout == 0 clears any previous deadline. A zero-length read is a
// graceful close by the peer and is reported through closed, not as an error.
func Receive(conn net.Conn, buf []byte, timeout time.Duration) (message []byte, closed bool, err error) {
	if err := applyReadDeadline(conn, timeout); err != nil {
		return nil, false, err
	}

	n, err := conn.Read(buf)
	if n > 0 {
		// data wins over a simultaneous error, the next read reports the error again
		return append([]byte(nil), buf[:n]...), false, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return []byte{}, true, nil
	}
	return nil, false, err
}

// Coalesce waits up to window for more data on conn and, if some arrives,
// reads it into buf and returns a copy. It returns nil without error when no
// data arrived in time or the peer closed; the close is observed again by the
// next Receive.
func Coalesce(conn net.Conn, buf []byte, window time.Duration) ([]byte, error) {
	ready, err := pollReadable(conn, window)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, nil
	}

	n, err := conn.Read(buf)
	if n > 0 {
		return append([]byte(nil), buf[:n]...), nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return nil, nil
	}
	return nil, err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func applyReadDeadline(conn net.Conn, timeout time.Duration) error {
	if timeout > 0 {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	}
	return conn.SetReadDeadline(time.Time{})
}

// pollDeadline is the fallback readiness check for handles that do not
// expose a file descriptor: it arms a read deadline of window and lets the
// caller's read fail with a timeout if nothing arrives.
func pollDeadline(conn net.Conn, window time.Duration) (bool, error) {
	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		return false, err
	}
	return true, nil
}
