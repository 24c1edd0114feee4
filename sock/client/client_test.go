package client

import (
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

// peer is a plain TCP listener standing in for a server
type peer struct {
	listener net.Listener
	conns    chan net.Conn
}

func newPeer(t *testing.T) *peer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	p := &peer{listener: l, conns: make(chan net.Conn, 4)}
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			p.conns <- c
		}
	}()
	t.Cleanup(func() { _ = l.Close() })
	return p
}

func (p *peer) port() int {
	return p.listener.Addr().(*net.TCPAddr).Port
}

// next returns the server side of the next accepted connection
func (p *peer) next(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-p.conns:
		t.Cleanup(func() { _ = c.Close() })
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("peer did not accept a connection")
		return nil
	}
}

func connect(t *testing.T, p *peer) *ClientEndpoint {
	t.Helper()
	c := NewTCPClientEndpoint()
	if err := c.Connect("127.0.0.1", p.port()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() {
		if c.IsSet() {
			_ = c.Close()
		}
	})
	if err := c.SetTimeout(5, 0); err != nil {
		t.Fatalf("SetTimeout failed: %v", err)
	}
	return c
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// TestSendReceive tests a message round trip with a plain TCP peer
func TestSendReceive(t *testing.T) {
	p := newPeer(t)
	c := connect(t, p)
	remote := p.next(t)

	if unsent, err := c.SendString("Hello server!", false); err != nil || unsent != "" {
		t.Fatalf("Send failed: %v (unsent %q)", err, unsent)
	}
	buf := make([]byte, 64)
	_ = remote.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := remote.Read(buf)
	if err != nil || string(buf[:n]) != "Hello server!" {
		t.Fatalf("peer read %q, %v", buf[:n], err)
	}

	if _, err := remote.Write([]byte("Hello client!")); err != nil {
		t.Fatalf("peer write failed: %v", err)
	}
	msg, closed, err := c.ReceiveString()
	if err != nil || closed {
		t.Fatalf("Receive failed: %v (closed=%v)", err, closed)
	}
	if msg != "Hello client!" {
		t.Errorf("expected %q, got %q", "Hello client!", msg)
	}

	if c.RemoteAddr().String() != p.listener.Addr().String() {
		t.Errorf("unexpected remote address %v", c.RemoteAddr())
	}
	if c.LocalAddr() == nil {
		t.Error("expected a local address")
	}

	stats := c.Stats()
	if stats.MessagesSent != 1 || stats.MessagesReceived != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

// TestCloseAndReconnect tests that a closed client can connect again
func TestCloseAndReconnect(t *testing.T) {
	p := newPeer(t)
	c := connect(t, p)
	remote := p.next(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.IsSet() || c.RemoteAddr() != nil {
		t.Fatal("client should be unbound after close")
	}

	// the peer observes the close
	_ = remote.SetReadDeadline(time.Now().Add(5 * time.Second))
	if n, err := remote.Read(make([]byte, 8)); n != 0 || err == nil {
		t.Errorf("expected EOF at the peer, got %d bytes, %v", n, err)
	}

	if err := c.Connect("127.0.0.1", p.port()); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	p.next(t)
	if !c.IsSet() {
		t.Error("client should be connected again")
	}
}

// TestStateGuards tests the contract violations of the client endpoint
func TestStateGuards(t *testing.T) {
	c := NewTCPClientEndpoint()

	checks := map[string]error{
		"Close":      c.Close(),
		"SetTimeout": c.SetTimeout(1, 0),
	}
	_, checks["Send"] = c.Send([]byte("x"), false)
	_, _, checks["Receive"] = c.Receive()
	_, _, checks["ReceiveCoalesced"] = c.ReceiveCoalesced()

	for op, err := range checks {
		if !errors.Is(err, common.ErrNotBound) || !common.IsContractViolation(err) {
			t.Errorf("%s: expected ErrNotBound, got %v", op, err)
		}
	}

	p := newPeer(t)
	c = connect(t, p)
	if err := c.Connect("127.0.0.1", p.port()); !errors.Is(err, common.ErrAlreadyBound) {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}
	if _, err := c.Send(nil, true); !errors.Is(err, common.ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

// TestConnectFailures tests that failed connects leave the endpoint unbound
func TestConnectFailures(t *testing.T) {
	c := NewTCPClientEndpoint()

	if err := c.Connect("127.0.0.1", 0); !errors.Is(err, common.ErrSetup) {
		t.Errorf("expected ErrSetup for port 0, got %v", err)
	}

	// a port that was just released has no listener
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()

	err = c.Connect("127.0.0.1", port)
	if !errors.Is(err, common.ErrSetup) || !common.IsOperational(err) {
		t.Errorf("expected operational ErrSetup, got %v", err)
	}
	if c.IsSet() {
		t.Error("failed connect must leave the endpoint unbound")
	}
}

// TestServerClose tests that a server close is reported and unbinds the client
func TestServerClose(t *testing.T) {
	p := newPeer(t)
	c := connect(t, p)
	remote := p.next(t)
	_ = remote.Close()

	msg, closed, err := c.Receive()
	if err != nil {
		t.Fatalf("graceful close must not be an error: %v", err)
	}
	if !closed || len(msg) != 0 {
		t.Errorf("expected empty message and closed, got %q closed=%v", msg, closed)
	}
	if c.IsSet() {
		t.Error("client should be unbound after the server closed")
	}
	if c.Stats().Closed != 1 {
		t.Errorf("expected one closed connection, got %d", c.Stats().Closed)
	}
}

// TestReceiveTimeout tests that a receive times out without closing the connection
func TestReceiveTimeout(t *testing.T) {
	p := newPeer(t)
	c := connect(t, p)
	remote := p.next(t)

	if err := c.SetTimeout(0, 100); err != nil {
		t.Fatalf("SetTimeout failed: %v", err)
	}
	start := time.Now()
	_, _, err := c.Receive()
	if !common.IsTimeout(err) || !errors.Is(err, common.ErrIO) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("receive returned after %v, before the timeout", elapsed)
	}
	if !c.IsSet() {
		t.Fatal("a timeout must not close the connection")
	}

	_, _ = remote.Write([]byte("after timeout"))
	msg, _, err := c.ReceiveString()
	if err != nil || msg != "after timeout" {
		t.Errorf("expected message after timeout, got %q %v", msg, err)
	}
}

// TestReceiveCoalesced tests that pieces written back to back are joined
func TestReceiveCoalesced(t *testing.T) {
	p := newPeer(t)
	c := NewTCPClientEndpoint()
	config := common.DefaultClientConfig("127.0.0.1", p.port())
	config.CoalesceWindow = 500 * time.Millisecond
	config.TimeoutSecond = 5
	if err := c.ConnectConfig(config); err != nil {
		t.Fatalf("ConnectConfig failed: %v", err)
	}
	defer c.Close()
	remote := p.next(t)

	go func() {
		_, _ = remote.Write([]byte("Hello "))
		time.Sleep(50 * time.Millisecond)
		_, _ = remote.Write([]byte("client!"))
	}()

	msg, closed, err := c.ReceiveCoalesced()
	if err != nil || closed {
		t.Fatalf("ReceiveCoalesced failed: %v (closed=%v)", err, closed)
	}
	if string(msg) != "Hello client!" {
		t.Errorf("expected joined message, got %q", msg)
	}
}

// TestReceiveCoalescedIdle tests that an idle follow-up window returns the first read unchanged
func TestReceiveCoalescedIdle(t *testing.T) {
	p := newPeer(t)
	c := connect(t, p)
	remote := p.next(t)

	_, _ = remote.Write([]byte("alone"))
	msg, closed, err := c.ReceiveCoalesced()
	if err != nil || closed || string(msg) != "alone" {
		t.Fatalf("expected %q, got %q closed=%v err=%v", "alone", msg, closed, err)
	}

	// a close during the window is seen by the next receive
	_, _ = remote.Write([]byte("last"))
	_ = remote.Close()
	msg, _, err = c.ReceiveCoalesced()
	if err != nil || string(msg) != "last" {
		t.Fatalf("expected %q, got %q %v", "last", msg, err)
	}
	_, closed, err = c.Receive()
	if err != nil || !closed {
		t.Errorf("expected close after the coalesced read, got closed=%v err=%v", closed, err)
	}
}
