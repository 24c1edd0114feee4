//go:build unix

package base

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// writeOnce issues exactly one write(2) on handles backed by a file
// descriptor, so a short write is visible to the caller instead of being
// completed by the runtime. Other handles fall back to their Write method.
func writeOnce(conn net.Conn, p []byte) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return conn.Write(p)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return conn.Write(p)
	}

	var n int
	var werr error
	err = raw.Write(func(fd uintptr) bool {
		for {
			n, werr = unix.Write(int(fd), p)
			if werr != unix.EINTR {
				break
			}
		}
		// EAGAIN: the send buffer is full, wait until the socket is writable
		return werr != unix.EAGAIN
	})
	if err != nil {
		return 0, err
	}
	if werr != nil {
		return 0, werr
	}
	return n, nil
}

// pollReadable waits up to window for conn to become readable using poll(2).
// Handles without a file descriptor use a read deadline instead.
func pollReadable(conn net.Conn, window time.Duration) (bool, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return pollDeadline(conn, window)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return pollDeadline(conn, window)
	}

	var n int
	var perr error
	err = raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, perr = unix.Poll(fds, int(window/time.Millisecond))
			if perr != unix.EINTR {
				break
			}
		}
	})
	if err != nil {
		return false, err
	}
	if perr != nil {
		return false, perr
	}
	return n > 0, nil
}
