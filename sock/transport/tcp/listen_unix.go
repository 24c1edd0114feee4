//go:build unix

package tcp

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenBacklog creates a TCP listener with an explicit accept backlog. The
// net package always uses the system maximum, so the socket is created,
// bound and put into listening state by hand and then handed to the runtime.
func listenBacklog(addr *net.TCPAddr, backlog int) (net.Listener, error) {
	family, sa, err := toSockaddr(addr)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("ERROR opening socket: %w", err)
	}
	unix.CloseOnExec(fd)

	// from here on every failure must release the descriptor
	fail := func(step string, err error) (net.Listener, error) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("ERROR %s: %w", step, err)
	}

	// the port can be reused right after a previous listener closed
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail("setting port to reusable", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail("binding host socket to local port", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fail("listening for incoming connections", err)
	}

	// FileListener duplicates the descriptor, the file is closed afterwards
	f := os.NewFile(uintptr(fd), fmt.Sprintf("tcp-listener:%s", addr))
	listener, err := net.FileListener(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("ERROR creating listener: %w", err)
	}
	return listener, nil
}

// toSockaddr converts addr into the address family and sockaddr used by bind(2)
func toSockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 := addr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa, nil
	}

	ip6 := addr.IP.To16()
	if ip6 == nil {
		return 0, nil, fmt.Errorf("invalid IP address %s", addr.IP)
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip6)
	if addr.Zone != "" {
		iface, err := net.InterfaceByName(addr.Zone)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid zone %s: %w", addr.Zone, err)
		}
		sa.ZoneId = uint32(iface.Index)
	}
	return unix.AF_INET6, sa, nil
}
