// Package table implements the connection table shared by both endpoints.
//
// A Table is an arena of Connection slots addressed by a stable index. The
// server creates one with its configured capacity, the client uses a table of
// capacity one. Slots move Available -> Active -> Available; NextAvailable
// always returns the lowest available index so allocation order is
// deterministic. Every slot keeps a generation counter and a session id so
// log lines of different sessions on the same index can be told apart.
//
// Each slot owns its transfer buffer (common.BufferSize bytes), which is
// allocated on first use and reused by later sessions of the same slot.
package table
