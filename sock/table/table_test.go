package table

import (
	"errors"
	"net"
	"testing"

	"github.com/ValentinKolb/dSock/sock/common"
	cerrors "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// failingConn is a net.Conn whose Close always fails
type failingConn struct {
	net.Conn
}

func (c *failingConn) Close() error {
	_ = c.Conn.Close()
	return errors.New("close failed")
}

// pipe returns one end of an in-memory connection and closes both ends on cleanup
func pipe(t *testing.T) net.Conn {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a
}

// TestNewTable tests that a new table has only available slots
func TestNewTable(t *testing.T) {
	tbl := New(3)

	if tbl.Capacity() != 3 {
		t.Errorf("expected capacity 3, got %d", tbl.Capacity())
	}
	if tbl.Count() != 0 {
		t.Errorf("new table should have no active slots, has %d", tbl.Count())
	}
	if idx, ok := tbl.NextAvailable(); !ok || idx != 0 {
		t.Errorf("expected slot 0 to be available, got %d %v", idx, ok)
	}
}

// TestLowestIndexReuse tests that released slots are reused lowest index first
func TestLowestIndexReuse(t *testing.T) {
	tbl := New(3)

	for want := 0; want < 3; want++ {
		idx, ok := tbl.NextAvailable()
		if !ok || idx != want {
			t.Fatalf("expected next index %d, got %d %v", want, idx, ok)
		}
		if _, err := tbl.Activate(idx, pipe(t)); err != nil {
			t.Fatalf("Activate(%d) failed: %v", idx, err)
		}
	}

	if _, ok := tbl.NextAvailable(); ok {
		t.Fatal("full table should have no available slot")
	}

	// free 2 then 0, the next allocation must pick 0
	if err := tbl.Release(2); err != nil {
		t.Fatalf("Release(2) failed: %v", err)
	}
	if err := tbl.Release(0); err != nil {
		t.Fatalf("Release(0) failed: %v", err)
	}
	if idx, _ := tbl.NextAvailable(); idx != 0 {
		t.Errorf("expected slot 0 to be reused, got %d", idx)
	}
	if got := tbl.Active(); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected only slot 1 active, got %v", got)
	}
}

// TestActivateAndLookup tests the fields of an active connection
func TestActivateAndLookup(t *testing.T) {
	tbl := New(1)
	handle := pipe(t)

	conn, err := tbl.Activate(0, handle)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if !conn.Active || conn.Handle != handle || conn.ID == uuid.Nil {
		t.Errorf("connection not populated: %+v", conn)
	}
	if conn.Generation != 1 {
		t.Errorf("expected generation 1, got %d", conn.Generation)
	}
	if len(conn.Buffer()) != common.BufferSize {
		t.Errorf("expected buffer of %d bytes, got %d", common.BufferSize, len(conn.Buffer()))
	}

	looked, err := tbl.Lookup(0)
	if err != nil || looked != conn {
		t.Errorf("Lookup returned %p %v, want %p", looked, err, conn)
	}

	if _, err := tbl.Activate(0, pipe(t)); !cerrors.Is(err, common.ErrIndexOutOfRange) {
		t.Errorf("activating an active slot should fail, got %v", err)
	}
}

// TestReleaseResetsSlot tests that a released slot is cleared and its generation kept
func TestReleaseResetsSlot(t *testing.T) {
	tbl := New(1)
	conn, _ := tbl.Activate(0, pipe(t))
	firstID := conn.ID
	conn.ReadTimeout = 5

	if err := tbl.Release(0); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if conn.Active || conn.Handle != nil || conn.PeerAddress != nil || conn.ID != uuid.Nil {
		t.Errorf("slot not reset: %+v", conn)
	}
	if conn.ReadTimeout != 0 {
		t.Errorf("timeout and address should be cleared: %+v", conn)
	}

	conn, _ = tbl.Activate(0, pipe(t))
	if conn.Generation != 2 {
		t.Errorf("expected generation 2, got %d", conn.Generation)
	}
	if conn.ID == firstID {
		t.Error("new session should get a new id")
	}
}

// TestIndexErrors tests lookups of invalid and inactive indices
func TestIndexErrors(t *testing.T) {
	tbl := New(2)

	for _, idx := range []int{-1, 0, 2, 100} {
		if _, err := tbl.Lookup(idx); !cerrors.Is(err, common.ErrIndexOutOfRange) {
			t.Errorf("Lookup(%d) should fail with ErrIndexOutOfRange, got %v", idx, err)
		}
		if err := tbl.Release(idx); !common.IsContractViolation(err) {
			t.Errorf("Release(%d) should be a contract violation, got %v", idx, err)
		}
	}
}

// TestReleaseAll tests that a failing close does not stop the remaining releases
func TestReleaseAll(t *testing.T) {
	tbl := New(3)
	_, _ = tbl.Activate(0, &failingConn{pipe(t)})
	_, _ = tbl.Activate(1, pipe(t))
	_, _ = tbl.Activate(2, &failingConn{pipe(t)})

	released, err := tbl.ReleaseAll()
	if released != 3 {
		t.Errorf("expected 3 released slots, got %d", released)
	}
	var merr *multierror.Error
	if !cerrors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("expected two combined close errors, got %v", err)
	}
	if !cerrors.Is(merr.Errors[0], common.ErrIO) || !common.IsOperational(merr.Errors[1]) {
		t.Errorf("close errors should be operational ErrIO: %v", err)
	}
	if tbl.Count() != 0 {
		t.Errorf("all slots should be released, %d still active", tbl.Count())
	}
}
