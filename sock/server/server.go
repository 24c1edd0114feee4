package server

import (
	"bytes"
	"net"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/ValentinKolb/dSock/sock/resolver"
	"github.com/ValentinKolb/dSock/sock/table"
	"github.com/ValentinKolb/dSock/sock/transport"
	"github.com/ValentinKolb/dSock/sock/transport/base"
	"github.com/ValentinKolb/dSock/sock/transport/tcp"
	"github.com/hashicorp/go-multierror"
)

var Logger = common.GetLogger("sock/server")

// ServerEndpoint listens on a local port and exchanges raw byte messages with
// a bounded number of peers, each held in a slot of a connection table.
//
// All methods block the calling goroutine and none of them lock; callers that
// share an endpoint between goroutines must serialize the calls.
type ServerEndpoint struct {
	connector transport.IServerConnector
	resolver  resolver.IAddressResolver

	config      common.ServerConfig
	listener    net.Listener
	table       *table.Table
	hostTimeout time.Duration
	stats       *common.Stats
	set         bool
}

// --------------------------------------------------------------------------
// Factory Methods
// --------------------------------------------------------------------------

// NewServerEndpoint creates an unbound server endpoint using the given connector and resolver
func NewServerEndpoint(connector transport.IServerConnector, res resolver.IAddressResolver) *ServerEndpoint {
	return &ServerEndpoint{
		connector: connector,
		resolver:  res,
		stats:     common.NewStats("server"),
	}
}

// NewTCPServerEndpoint creates an unbound server endpoint using TCP and the system resolver
func NewTCPServerEndpoint() *ServerEndpoint {
	return NewServerEndpoint(tcp.NewServerConnector(), resolver.NewResolver())
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

// Bind listens on port with maxConnections slots and default settings
func (s *ServerEndpoint) Bind(port int, maxConnections int) error {
	return s.BindConfig(common.DefaultServerConfig(port, maxConnections))
}

// BindConfig resolves the passive local address, opens the listening socket
// (SO_REUSEADDR, backlog common.ListenBacklog) and creates the slots. Setup is
// all or nothing: on failure no socket stays open and the endpoint is unbound.
func (s *ServerEndpoint) BindConfig(config common.ServerConfig) error {
	if s.set {
		return common.NewContractError(common.ErrAlreadyBound, "bind")
	}
	if err := config.Validate(); err != nil {
		return common.NewOperationalError(common.ErrSetup, err, "invalid configuration")
	}

	addr, err := s.resolver.Resolve("", config.Port)
	if err != nil {
		return err
	}

	listener, err := s.connector.Listen(addr, common.ListenBacklog)
	if err != nil {
		return common.NewOperationalError(common.ErrSetup, err, "failed to listen on %s", addr)
	}

	s.config = config
	s.listener = listener
	s.table = table.New(config.MaxConnections)
	s.hostTimeout = 0
	s.set = true

	if config.HostTimeoutSecond > 0 {
		if err := s.SetHostTimeout(uint(config.HostTimeoutSecond), 0); err != nil {
			_ = s.Shutdown()
			return err
		}
	}

	Logger.Infof("Listening on %s with %d slots using %s transport",
		listener.Addr(), config.MaxConnections, s.connector.GetName())
	return nil
}

// AcceptConnection blocks until a peer connects and stores it in the lowest
// available slot, whose index is returned. It fails before blocking if every
// slot is active. The wait is bounded by the host timeout, if one is set.
func (s *ServerEndpoint) AcceptConnection() (int, error) {
	if !s.set {
		return -1, common.NewContractError(common.ErrNotBound, "accept")
	}

	index, ok := s.table.NextAvailable()
	if !ok {
		return -1, common.NewOperationalError(common.ErrCapacityExceeded, nil,
			"max number of sockets: %d", s.table.Capacity())
	}

	if err := s.applyHostDeadline(); err != nil {
		return -1, common.NewOperationalError(common.ErrIO, err, "failed to set accept timeout")
	}

	conn, err := s.listener.Accept()
	if err != nil {
		return -1, common.NewOperationalError(common.ErrIO, err, "ERROR accepting client")
	}

	if err := s.connector.UpgradeConnection(conn, s.config.TCP); err != nil {
		Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
	}

	c, err := s.table.Activate(index, conn)
	if err != nil {
		_ = conn.Close()
		return -1, err
	}
	if s.config.TimeoutSecond > 0 {
		c.ReadTimeout = time.Duration(s.config.TimeoutSecond) * time.Second
	}

	s.stats.IncAccepted()
	Logger.Infof("Accepted %s into slot %d (session %s)", c.PeerAddress, index, c.ID)
	return index, nil
}

// CloseConnection closes the connection in slot index; the slot is reusable immediately
func (s *ServerEndpoint) CloseConnection(index int) error {
	if !s.set {
		return common.NewContractError(common.ErrNotBound, "close connection")
	}
	return s.release(index)
}

// --------------------------------------------------------------------------
// I/O
// --------------------------------------------------------------------------

// Send writes message to the peer in slot index with a single underlying write.
//
// If the write accepts only part of the message, the unsent suffix is
// returned when ensureFullSent is false. When it is true the rest is written
// until everything is sent, and the returned remainder is empty.
func (s *ServerEndpoint) Send(message []byte, index int, ensureFullSent bool) ([]byte, error) {
	if !s.set {
		return nil, common.NewContractError(common.ErrNotBound, "send")
	}
	if len(message) == 0 {
		return nil, common.NewContractError(common.ErrEmptyMessage, "send to slot %d", index)
	}
	conn, err := s.table.Lookup(index)
	if err != nil {
		return nil, err
	}

	res, err := base.Transmit(conn.Handle, message, ensureFullSent)
	for i := 0; i < res.Partial; i++ {
		s.stats.IncPartialWrite()
	}
	if err != nil {
		return res.Unsent, common.NewOperationalError(common.ErrIO, err,
			"ERROR sending message to slot %d (%d of %d bytes sent)", index, res.Sent, len(message))
	}
	s.stats.AddSent(res.Sent)

	if len(res.Unsent) == 0 {
		return nil, nil
	}
	return res.Unsent, nil
}

// SendString is Send for string messages
func (s *ServerEndpoint) SendString(message string, index int, ensureFullSent bool) (string, error) {
	unsent, err := s.Send([]byte(message), index, ensureFullSent)
	return string(unsent), err
}

// Broadcast sends message to every active slot in index order. The first
// failing send stops the broadcast and is returned; use Send per slot to
// tolerate partial failure.
func (s *ServerEndpoint) Broadcast(message []byte, ensureFullSent bool) error {
	if !s.set {
		return common.NewContractError(common.ErrNotBound, "broadcast")
	}
	for _, index := range s.table.Active() {
		if _, err := s.Send(message, index, ensureFullSent); err != nil {
			return err
		}
	}
	return nil
}

// Receive blocks until the peer in slot index sends data, closes, or the
// slot's timeout elapses, and returns at most common.BufferSize bytes.
//
// A zero-length read means the peer closed its side: closed is true, the
// message is empty and the slot is closed by this call, so its index is
// available again.
func (s *ServerEndpoint) Receive(index int) (message []byte, closed bool, err error) {
	if !s.set {
		return nil, false, common.NewContractError(common.ErrNotBound, "receive")
	}
	conn, err := s.table.Lookup(index)
	if err != nil {
		return nil, false, err
	}

	message, closed, err = base.Receive(conn.Handle, conn.Buffer(), conn.ReadTimeout)
	if err != nil {
		return nil, false, common.NewOperationalError(common.ErrIO, err,
			"ERROR reading from slot %d", index)
	}

	if closed {
		Logger.Infof("Connection in slot %d closed by peer (session %s)", index, conn.ID)
		if err := s.release(index); err != nil {
			Logger.Warningf("Error closing slot %d after peer close: %v", index, err)
		}
		return message, true, nil
	}

	s.stats.AddReceived(len(message))
	return message, false, nil
}

// ReceiveString is Receive for string messages
func (s *ServerEndpoint) ReceiveString(index int) (string, bool, error) {
	message, closed, err := s.Receive(index)
	return string(message), closed, err
}

// ReceivedFromAll receives once from every active slot in index order and
// reports whether each of them sent exactly expected. It stops at the first
// slot that sent something else; later slots are not read. Slots whose peer
// closed are closed by Receive.
func (s *ServerEndpoint) ReceivedFromAll(expected []byte) (bool, error) {
	if !s.set {
		return false, common.NewContractError(common.ErrNotBound, "received from all")
	}
	for index := 0; index < s.table.Capacity(); index++ {
		if !s.table.IsActive(index) {
			continue
		}
		message, _, err := s.Receive(index)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(message, expected) {
			return false, nil
		}
	}
	return true, nil
}

// --------------------------------------------------------------------------
// Timeouts
// --------------------------------------------------------------------------

// SetTimeout sets the receive timeout of every currently active slot. Slots
// accepted later keep the configured default. Zero seconds and zero
// milliseconds clear the timeout.
func (s *ServerEndpoint) SetTimeout(seconds, milliseconds uint) error {
	if !s.set {
		return common.NewContractError(common.ErrNotBound, "set timeout")
	}
	timeout := common.TimeoutDuration(seconds, milliseconds)
	for _, index := range s.table.Active() {
		conn, _ := s.table.Lookup(index)
		conn.ReadTimeout = timeout
	}
	Logger.Debugf("Receive timeout of %d active slots set to %v", s.table.Count(), timeout)
	return nil
}

// SetHostTimeout sets the timeout of AcceptConnection. Zero seconds and zero
// milliseconds clear the timeout.
func (s *ServerEndpoint) SetHostTimeout(seconds, milliseconds uint) error {
	if !s.set {
		return common.NewContractError(common.ErrNotBound, "set host timeout")
	}
	timeout := common.TimeoutDuration(seconds, milliseconds)
	if _, ok := s.listener.(transport.DeadlineListener); !ok && timeout > 0 {
		return common.NewOperationalError(common.ErrSetup, nil,
			"listener %T does not support accept timeouts", s.listener)
	}
	s.hostTimeout = timeout
	return nil
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// NumberOfClients returns the number of active slots
func (s *ServerEndpoint) NumberOfClients() int {
	if !s.set {
		return 0
	}
	return s.table.Count()
}

// ActiveSlots returns the indices of the active slots in ascending order
func (s *ServerEndpoint) ActiveSlots() []int {
	if !s.set {
		return nil
	}
	return s.table.Active()
}

// Capacity returns the number of slots (0 while unbound)
func (s *ServerEndpoint) Capacity() int {
	if !s.set {
		return 0
	}
	return s.table.Capacity()
}

// IsSet reports whether the endpoint is bound
func (s *ServerEndpoint) IsSet() bool {
	return s.set
}

// Addr returns the bound local address, or nil while unbound
func (s *ServerEndpoint) Addr() net.Addr {
	if !s.set {
		return nil
	}
	return s.listener.Addr()
}

// PeerAddr returns the remote address of the peer in slot index
func (s *ServerEndpoint) PeerAddr(index int) (net.Addr, error) {
	if !s.set {
		return nil, common.NewContractError(common.ErrNotBound, "peer address")
	}
	conn, err := s.table.Lookup(index)
	if err != nil {
		return nil, err
	}
	return conn.PeerAddress, nil
}

// Stats returns the traffic counters of the endpoint
func (s *ServerEndpoint) Stats() common.StatsSnapshot {
	return s.stats.Snapshot()
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// Shutdown closes every active slot and then the listener. A failure to close
// one handle is logged and does not prevent closing the others; all failures
// are returned combined. Afterwards the endpoint is unbound.
func (s *ServerEndpoint) Shutdown() error {
	if !s.set {
		return common.NewContractError(common.ErrNotBound, "shutdown")
	}

	var result *multierror.Error
	released, err := s.table.ReleaseAll()
	for i := 0; i < released; i++ {
		s.stats.IncClosed()
	}
	if err != nil {
		Logger.Errorf("Error closing client sockets: %v", err)
		result = multierror.Append(result, err)
	}
	if err := s.listener.Close(); err != nil {
		Logger.Errorf("Error closing host server socket: %v", err)
		result = multierror.Append(result,
			common.NewOperationalError(common.ErrIO, err, "ERROR closing host server socket"))
	}

	s.listener = nil
	s.table = nil
	s.set = false
	Logger.Infof("Server endpoint shut down")
	return result.ErrorOrNil()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// release closes the slot at index and counts it
func (s *ServerEndpoint) release(index int) error {
	if !s.table.IsActive(index) {
		return common.NewContractError(common.ErrIndexOutOfRange,
			"slot %d (capacity %d)", index, s.table.Capacity())
	}
	err := s.table.Release(index)
	s.stats.IncClosed()
	if err != nil {
		return common.NewOperationalError(common.ErrIO, err, "ERROR closing slot %d", index)
	}
	return nil
}

// applyHostDeadline arms or clears the accept deadline of the listener
func (s *ServerEndpoint) applyHostDeadline() error {
	dl, ok := s.listener.(transport.DeadlineListener)
	if !ok {
		return nil
	}
	if s.hostTimeout > 0 {
		return dl.SetDeadline(time.Now().Add(s.hostTimeout))
	}
	return dl.SetDeadline(time.Time{})
}
