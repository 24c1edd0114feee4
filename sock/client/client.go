package client

import (
	"net"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/ValentinKolb/dSock/sock/resolver"
	"github.com/ValentinKolb/dSock/sock/table"
	"github.com/ValentinKolb/dSock/sock/transport"
	"github.com/ValentinKolb/dSock/sock/transport/base"
	"github.com/ValentinKolb/dSock/sock/transport/tcp"
)

var Logger = common.GetLogger("sock/client")

// the client holds its single connection in slot 0 of a table of capacity 1
const slot = 0

// ClientEndpoint connects to one server and exchanges raw byte messages with it.
//
// All methods block the calling goroutine and none of them lock; callers that
// share an endpoint between goroutines must serialize the calls.
type ClientEndpoint struct {
	connector transport.IClientConnector
	resolver  resolver.IAddressResolver

	config common.ClientConfig
	table  *table.Table
	stats  *common.Stats
	set    bool
}

// --------------------------------------------------------------------------
// Factory Methods
// --------------------------------------------------------------------------

// NewClientEndpoint creates an unconnected client endpoint using the given connector and resolver
func NewClientEndpoint(connector transport.IClientConnector, res resolver.IAddressResolver) *ClientEndpoint {
	return &ClientEndpoint{
		connector: connector,
		resolver:  res,
		stats:     common.NewStats("client"),
	}
}

// NewTCPClientEndpoint creates an unconnected client endpoint using TCP and the system resolver
func NewTCPClientEndpoint() *ClientEndpoint {
	return NewClientEndpoint(tcp.NewClientConnector(), resolver.NewResolver())
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

// Connect connects to host:port with default settings
func (c *ClientEndpoint) Connect(host string, port int) error {
	return c.ConnectConfig(common.DefaultClientConfig(host, port))
}

// ConnectConfig resolves the remote address and connects to it. A failure is
// returned immediately, there is no retry.
func (c *ClientEndpoint) ConnectConfig(config common.ClientConfig) error {
	if c.set {
		return common.NewContractError(common.ErrAlreadyBound, "connect")
	}
	if err := config.Validate(); err != nil {
		return common.NewOperationalError(common.ErrSetup, err, "invalid configuration")
	}

	addr, err := c.resolver.Resolve(config.Host, config.Port)
	if err != nil {
		return err
	}

	dialTimeout := time.Duration(config.DialTimeoutSecond) * time.Second
	conn, err := c.connector.Connect(addr, dialTimeout)
	if err != nil {
		return common.NewOperationalError(common.ErrSetup, err, "ERROR connecting to %s", addr)
	}

	if err := c.connector.UpgradeConnection(conn, config.TCP); err != nil {
		Logger.Warningf("Failed to upgrade connection to %s: %v", addr, err)
	}

	tbl := table.New(1)
	entry, err := tbl.Activate(slot, conn)
	if err != nil {
		_ = conn.Close()
		return err
	}
	if config.TimeoutSecond > 0 {
		entry.ReadTimeout = time.Duration(config.TimeoutSecond) * time.Second
	}

	c.config = config
	c.table = tbl
	c.set = true
	c.stats.IncAccepted()

	Logger.Infof("Connected to %s using %s transport (session %s)", addr, c.connector.GetName(), entry.ID)
	return nil
}

// Close closes the connection and returns the endpoint to the unbound state,
// after which Connect may be called again
func (c *ClientEndpoint) Close() error {
	if !c.set {
		return common.NewContractError(common.ErrNotBound, "close")
	}
	return c.release()
}

// --------------------------------------------------------------------------
// I/O
// --------------------------------------------------------------------------

// Send writes message to the server with a single underlying write. Partial
// completion follows the same rules as ServerEndpoint.Send: without
// ensureFullSent the unsent suffix is returned, with it the rest is written
// until everything is sent.
func (c *ClientEndpoint) Send(message []byte, ensureFullSent bool) ([]byte, error) {
	if !c.set {
		return nil, common.NewContractError(common.ErrNotBound, "send")
	}
	if len(message) == 0 {
		return nil, common.NewContractError(common.ErrEmptyMessage, "send")
	}
	conn, err := c.table.Lookup(slot)
	if err != nil {
		return nil, err
	}

	res, err := base.Transmit(conn.Handle, message, ensureFullSent)
	for i := 0; i < res.Partial; i++ {
		c.stats.IncPartialWrite()
	}
	if err != nil {
		return res.Unsent, common.NewOperationalError(common.ErrIO, err,
			"ERROR sending message (%d of %d bytes sent)", res.Sent, len(message))
	}
	c.stats.AddSent(res.Sent)

	if len(res.Unsent) == 0 {
		return nil, nil
	}
	return res.Unsent, nil
}

// SendString is Send for string messages
func (c *ClientEndpoint) SendString(message string, ensureFullSent bool) (string, error) {
	unsent, err := c.Send([]byte(message), ensureFullSent)
	return string(unsent), err
}

// Receive blocks until the server sends data, closes, or the timeout elapses,
// and returns at most common.BufferSize bytes.
//
// A zero-length read means the server closed its side: closed is true, the
// message is empty and the connection is closed by this call, leaving the
// endpoint unbound.
func (c *ClientEndpoint) Receive() (message []byte, closed bool, err error) {
	if !c.set {
		return nil, false, common.NewContractError(common.ErrNotBound, "receive")
	}
	conn, err := c.table.Lookup(slot)
	if err != nil {
		return nil, false, err
	}

	message, closed, err = base.Receive(conn.Handle, conn.Buffer(), conn.ReadTimeout)
	if err != nil {
		return nil, false, common.NewOperationalError(common.ErrIO, err, "ERROR reading from socket")
	}

	if closed {
		Logger.Infof("Connection closed by server (session %s)", conn.ID)
		if err := c.release(); err != nil {
			Logger.Warningf("Error closing socket after server close: %v", err)
		}
		return message, true, nil
	}

	c.stats.AddReceived(len(message))
	return message, false, nil
}

// ReceiveString is Receive for string messages
func (c *ClientEndpoint) ReceiveString() (string, bool, error) {
	message, closed, err := c.Receive()
	return string(message), closed, err
}

// ReceiveCoalesced behaves like Receive, then waits up to the configured
// coalesce window for more data and appends what arrived. This joins messages
// the server wrote with several back to back writes. The follow-up is best
// effort: if it fails, the data of the first read is still returned and the
// failure is only logged.
func (c *ClientEndpoint) ReceiveCoalesced() (message []byte, closed bool, err error) {
	message, closed, err = c.Receive()
	if err != nil || closed {
		return message, closed, err
	}

	conn, err := c.table.Lookup(slot)
	if err != nil {
		return message, false, nil
	}

	extra, err := base.Coalesce(conn.Handle, conn.Buffer(), c.config.CoalesceWindow)
	if err != nil {
		Logger.Debugf("Coalescing follow-up read failed: %v", err)
		return message, false, nil
	}
	if len(extra) > 0 {
		c.stats.AddReceived(len(extra))
		message = append(message, extra...)
	}
	return message, false, nil
}

// --------------------------------------------------------------------------
// Timeouts
// --------------------------------------------------------------------------

// SetTimeout sets the receive timeout. Zero seconds and zero milliseconds
// clear it.
func (c *ClientEndpoint) SetTimeout(seconds, milliseconds uint) error {
	if !c.set {
		return common.NewContractError(common.ErrNotBound, "set timeout")
	}
	conn, err := c.table.Lookup(slot)
	if err != nil {
		return err
	}
	conn.ReadTimeout = common.TimeoutDuration(seconds, milliseconds)
	return nil
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// IsSet reports whether the endpoint is connected
func (c *ClientEndpoint) IsSet() bool {
	return c.set
}

// RemoteAddr returns the address of the server, or nil while unbound
func (c *ClientEndpoint) RemoteAddr() net.Addr {
	if !c.set {
		return nil
	}
	conn, err := c.table.Lookup(slot)
	if err != nil {
		return nil
	}
	return conn.PeerAddress
}

// LocalAddr returns the local address of the connection, or nil while unbound
func (c *ClientEndpoint) LocalAddr() net.Addr {
	if !c.set {
		return nil
	}
	conn, err := c.table.Lookup(slot)
	if err != nil {
		return nil
	}
	return conn.Handle.LocalAddr()
}

// Stats returns the traffic counters of the endpoint
func (c *ClientEndpoint) Stats() common.StatsSnapshot {
	return c.stats.Snapshot()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// release closes the connection and returns the endpoint to unbound
func (c *ClientEndpoint) release() error {
	err := c.table.Release(slot)
	c.table = nil
	c.set = false
	c.stats.IncClosed()
	if err != nil {
		return common.NewOperationalError(common.ErrIO, err, "ERROR closing socket")
	}
	return nil
}
