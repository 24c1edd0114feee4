package tcp

import (
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/ValentinKolb/dSock/sock/transport"
)

// TestListenAndConnect tests that the hand made listener accepts dialled connections
func TestListenAndConnect(t *testing.T) {
	server := NewServerConnector()
	client := NewClientConnector()

	if server.GetName() != "tcp" || client.GetName() != "tcp" {
		t.Errorf("unexpected connector names %q %q", server.GetName(), client.GetName())
	}

	l, err := server.Listen(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}, common.ListenBacklog)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	if _, ok := l.(transport.DeadlineListener); !ok {
		t.Errorf("listener %T should support accept deadlines", l)
	}

	addr := l.Addr().(*net.TCPAddr)
	if addr.Port == 0 {
		t.Fatal("expected the system to assign a port")
	}

	conn, err := client.Connect(addr, time.Second)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer conn.Close()

	accepted, err := l.Accept()
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	defer accepted.Close()

	conf := common.DefaultTCPConf()
	conf.TCPKeepAliveSec = 30
	conf.TCPLingerSec = 0
	conf.ReadBufferSize = 64 * 1024
	conf.WriteBufferSize = 64 * 1024
	if err := server.UpgradeConnection(accepted, conf); err != nil {
		t.Errorf("UpgradeConnection (server) failed: %v", err)
	}
	if err := client.UpgradeConnection(conn, conf); err != nil {
		t.Errorf("UpgradeConnection (client) failed: %v", err)
	}

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	buf := make([]byte, 8)
	_ = accepted.SetReadDeadline(time.Now().Add(time.Second))
	n, err := accepted.Read(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Errorf("expected ping, got %q %v", buf[:n], err)
	}
}

// TestListenReuseAddress tests that a port can be bound again right after closing
func TestListenReuseAddress(t *testing.T) {
	server := NewServerConnector()

	l, err := server.Listen(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}, common.ListenBacklog)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := l.Addr().(*net.TCPAddr)

	// leave a connection in TIME_WAIT on the listening port
	conn, err := net.Dial("tcp", addr.String())
	if err == nil {
		if accepted, err := l.Accept(); err == nil {
			_ = accepted.Close()
		}
		_ = conn.Close()
	}
	_ = l.Close()

	l2, err := server.Listen(addr, common.ListenBacklog)
	if err != nil {
		t.Fatalf("rebinding %s failed: %v", addr, err)
	}
	_ = l2.Close()
}

// TestListenPortInUse tests that binding an occupied port fails without leaking a listener
func TestListenPortInUse(t *testing.T) {
	server := NewServerConnector()

	l, err := server.Listen(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}, common.ListenBacklog)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	if _, err := server.Listen(l.Addr().(*net.TCPAddr), common.ListenBacklog); err == nil {
		t.Fatal("expected bind to fail on a port with an active listener")
	}
}

// TestUpgradeNonTCP tests that non TCP connections are left alone
func TestUpgradeNonTCP(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	if err := upgradeConnection(a, common.DefaultTCPConf()); err != nil {
		t.Errorf("expected no error for pipe, got %v", err)
	}
}
