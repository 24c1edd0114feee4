package table

import (
	"net"
	"time"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/google/uuid"
)

// Connection is one slot of a Table. While Active is false the handle is nil
// and the slot must not be read from or written to.
type Connection struct {
	// ID identifies the session currently held by the slot (zero when inactive)
	ID uuid.UUID
	// Handle is the transport handle of the peer
	Handle net.Conn
	// PeerAddress is the remote address reported by accept or connect
	PeerAddress net.Addr
	// Active is true while the slot holds a live connection
	Active bool
	// Generation counts how many sessions the slot has held
	Generation uint64
	// ReadTimeout is applied before every receive on this slot (0 = none)
	ReadTimeout time.Duration

	// buffer is the transfer buffer, owned by the slot and reused across sessions
	buffer []byte
}

// Buffer returns the transfer buffer of the slot
func (c *Connection) Buffer() []byte {
	if c.buffer == nil {
		c.buffer = make([]byte, common.BufferSize)
	}
	return c.buffer
}

// activate fills the slot with a new session
func (c *Connection) activate(handle net.Conn) {
	c.ID = uuid.New()
	c.Handle = handle
	c.PeerAddress = handle.RemoteAddr()
	c.Active = true
	c.Generation++
	c.ReadTimeout = 0
}

// reset clears every session field, keeping generation and buffer
func (c *Connection) reset() {
	c.ID = uuid.Nil
	c.Handle = nil
	c.PeerAddress = nil
	c.Active = false
	c.ReadTimeout = 0
}
