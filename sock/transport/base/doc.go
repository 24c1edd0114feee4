// Package base implements the I/O primitives both endpoints use on their
// transport handles, independent of how the handle was opened.
//
// Key Components:
//
//   - Transmit: sends a message with one underlying write and makes a short
//     write visible to the caller. With ensureFullSent the remaining suffix is
//     written in a loop (not recursively) until everything is sent. On unix
//     systems the write goes straight to write(2) through syscall.RawConn, so
//     a partial completion is observed exactly as the kernel reports it.
//
//   - Receive: one read into a caller owned buffer, with a per call read
//     deadline. A zero-length read is reported as a graceful close.
//
//   - Coalesce: a bounded poll(2) after a completed read that appends data the
//     peer already sent. It is a best effort heuristic; a short window cannot
//     guarantee that every write of the peer has arrived.
//
// Thread Safety:
//
//	None of the helpers lock. A buffer must not be shared by two in-flight reads.
package base
