package transport

import (
	"net"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
)

// --------------------------------------------------------------------------
// Server Connector
// --------------------------------------------------------------------------

// IServerConnector opens the listening socket of a server endpoint and
// prepares accepted connections
type IServerConnector interface {
	// Listen binds addr and listens with the given backlog. Implementations
	// must not return a half initialized listener: on error nothing stays open.
	Listen(addr *net.TCPAddr, backlog int) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.TCPConf) error

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Client Connector
// --------------------------------------------------------------------------

// IClientConnector opens the single connection of a client endpoint
type IClientConnector interface {
	// Connect establishes a connection to addr. A timeout of 0 uses the system default.
	Connect(addr *net.TCPAddr, timeout time.Duration) (net.Conn, error)

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.TCPConf) error

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Optional listener capabilities
// --------------------------------------------------------------------------

// DeadlineListener is implemented by listeners that support accept timeouts
// (*net.TCPListener does)
type DeadlineListener interface {
	net.Listener
	SetDeadline(t time.Time) error
}
