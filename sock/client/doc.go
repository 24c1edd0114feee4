// Package client implements the client endpoint, the single connection
// counterpart of the server endpoint. Send and Receive follow the same
// partial completion and close detection rules as the server's per slot
// operations. Unlike the server, a client can be closed and connected again.
//
// ReceiveCoalesced additionally polls for a short window after the first read
// (common.DefaultCoalesceWindow unless configured) and appends data that is
// already available, which joins messages the peer wrote in several pieces.
package client
