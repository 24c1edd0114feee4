package table

import (
	"net"

	"github.com/ValentinKolb/dSock/sock/common"
	"github.com/hashicorp/go-multierror"
)

var Logger = common.GetLogger("sock/table")

// Table is a fixed capacity arena of connection slots addressed by index.
// Allocation always picks the lowest inactive index. A Table carries no
// locking; callers serialize access.
type Table struct {
	slots []Connection
}

// New creates a table with capacity inactive slots
func New(capacity int) *Table {
	return &Table{
		slots: make([]Connection, capacity),
	}
}

// Capacity returns the number of slots
func (t *Table) Capacity() int {
	return len(t.slots)
}

// NextAvailable returns the lowest inactive index, or false if all slots are active
func (t *Table) NextAvailable() (int, bool) {
	for i := range t.slots {
		if !t.slots[i].Active {
			return i, true
		}
	}
	return -1, false
}

// Activate stores handle in the inactive slot at index and marks it active
func (t *Table) Activate(index int, handle net.Conn) (*Connection, error) {
	if index < 0 || index >= len(t.slots) {
		return nil, common.NewContractError(common.ErrIndexOutOfRange,
			"slot %d (capacity %d)", index, len(t.slots))
	}
	conn := &t.slots[index]
	if conn.Active {
		return nil, common.NewContractError(common.ErrIndexOutOfRange,
			"slot %d is already active", index)
	}
	conn.activate(handle)
	Logger.Debugf("Slot %d active (session %s, peer %s, generation %d)",
		index, conn.ID, conn.PeerAddress, conn.Generation)
	return conn, nil
}

// Lookup returns the active connection at index
func (t *Table) Lookup(index int) (*Connection, error) {
	if index < 0 || index >= len(t.slots) || !t.slots[index].Active {
		return nil, common.NewContractError(common.ErrIndexOutOfRange,
			"slot %d (capacity %d)", index, len(t.slots))
	}
	return &t.slots[index], nil
}

// Release closes the handle of the active slot at index and makes the slot
// available again. The slot is released even if closing the handle fails;
// the close error is returned.
func (t *Table) Release(index int) error {
	conn, err := t.Lookup(index)
	if err != nil {
		return err
	}

	closeErr := conn.Handle.Close()
	Logger.Debugf("Slot %d released (session %s)", index, conn.ID)
	conn.reset()
	return closeErr
}

// Count returns the number of active slots
func (t *Table) Count() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].Active {
			n++
		}
	}
	return n
}

// IsActive reports whether the slot at index holds a live connection
func (t *Table) IsActive(index int) bool {
	return index >= 0 && index < len(t.slots) && t.slots[index].Active
}

// Active returns the indices of all active slots in ascending order
func (t *Table) Active() []int {
	indices := make([]int, 0, len(t.slots))
	for i := range t.slots {
		if t.slots[i].Active {
			indices = append(indices, i)
		}
	}
	return indices
}

// ReleaseAll releases every active slot and returns how many were released.
// A failing close never prevents the remaining slots from being released;
// all failures are combined, each marked with common.ErrIO.
func (t *Table) ReleaseAll() (int, error) {
	var result *multierror.Error
	active := t.Active()
	for _, i := range active {
		if err := t.Release(i); err != nil {
			Logger.Warningf("Error closing slot %d: %v", i, err)
			result = multierror.Append(result,
				common.NewOperationalError(common.ErrIO, err, "ERROR closing slot %d", i))
		}
	}
	return len(active), result.ErrorOrNil()
}
