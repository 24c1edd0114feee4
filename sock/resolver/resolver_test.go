package resolver

import (
	"net"
	"testing"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/cockroachdb/errors"
)

// TestResolvePassive tests that an empty host yields the any-interface address
func TestResolvePassive(t *testing.T) {
	r := NewResolver()

	addr, err := r.Resolve("", 3000)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !addr.IP.Equal(net.IPv4zero) || addr.Port != 3000 {
		t.Errorf("expected 0.0.0.0:3000, got %s", addr)
	}

	candidates, err := r.Candidates("", 3000)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 passive candidates, got %d", len(candidates))
	}
	if !candidates[1].IP.Equal(net.IPv6unspecified) {
		t.Errorf("expected :: as second candidate, got %s", candidates[1])
	}
}

// TestResolveLiteral tests resolution of IP literals without DNS
func TestResolveLiteral(t *testing.T) {
	r := NewResolver()

	for _, host := range []string{"127.0.0.1", "::1"} {
		addr, err := r.Resolve(host, 8080)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", host, err)
		}
		if !addr.IP.Equal(net.ParseIP(host)) || addr.Port != 8080 {
			t.Errorf("Resolve(%q) = %s", host, addr)
		}
	}
}

// TestResolveInvalidPort tests that an invalid port is a resolution error
func TestResolveInvalidPort(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve("127.0.0.1", 70000)
	if !errors.Is(err, common.ErrAddressResolution) {
		t.Fatalf("expected ErrAddressResolution, got %v", err)
	}
	if !common.IsOperational(err) {
		t.Errorf("resolution failure should be operational")
	}
}

// TestHostName tests that the local host name can be read
func TestHostName(t *testing.T) {
	name, err := HostName()
	if err != nil {
		t.Fatalf("HostName failed: %v", err)
	}
	if name == "" {
		t.Error("expected a non-empty host name")
	}
}
