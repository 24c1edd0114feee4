//go:build !unix

package base

import (
	"net"
	"time"
)

// writeOnce falls back to the handle's Write, which completes short writes internally
func writeOnce(conn net.Conn, p []byte) (int, error) {
	return conn.Write(p)
}

// pollReadable falls back to a read deadline of window
func pollReadable(conn net.Conn, window time.Duration) (bool, error) {
	return pollDeadline(conn, window)
}
