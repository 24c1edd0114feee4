package tcp

import (
	"net"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/ValentinKolb/dSock/sock/transport"
)

var Logger = common.GetLogger("sock/transport")

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Factory Methods
// --------------------------------------------------------------------------

// NewServerConnector creates the TCP server connector
func NewServerConnector() transport.IServerConnector {
	return &serverConnector{}
}

// NewClientConnector creates the TCP client connector
func NewClientConnector() transport.IClientConnector {
	return &clientConnector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(addr *net.TCPAddr, backlog int) (net.Listener, error) {
	listener, err := listenBacklog(addr, backlog)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("Listening on %s (backlog %d)", listener.Addr(), backlog)
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.TCPConf) error {
	return upgradeConnection(conn, config)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(addr *net.TCPAddr, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	return dialer.Dial("tcp", addr.String())
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.TCPConf) error {
	return upgradeConnection(conn, config)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// upgradeConnection applies the TCPConf socket options to a TCP connection
func upgradeConnection(conn net.Conn, config common.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(config.TCPNoDelay); err != nil {
		return err
	}

	if config.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.WriteBufferSize); err != nil {
			return err
		}
	}

	if config.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.ReadBufferSize); err != nil {
			return err
		}
	}

	if config.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(config.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	if config.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(config.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}
