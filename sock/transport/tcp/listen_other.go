//go:build !unix

package tcp

import (
	"context"
	"net"
)

// listenBacklog falls back to the net package, which uses the system default
// backlog on this platform
func listenBacklog(addr *net.TCPAddr, backlog int) (net.Listener, error) {
	Logger.Warningf("Listen backlog %d is not supported on this platform, using the system default", backlog)
	var lc net.ListenConfig
	return lc.Listen(context.Background(), "tcp", addr.String())
}
