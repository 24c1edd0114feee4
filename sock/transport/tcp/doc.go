// Package tcp implements the TCP connectors of the transport package.
//
// The server connector opens its listening socket by hand (socket, SO_REUSEADDR,
// bind, listen) so the accept backlog can be set explicitly; the endpoints use
// a backlog of one pending connection. The resulting descriptor is handed to
// the runtime with net.FileListener, so accepted connections are ordinary
// *net.TCPConn values. On platforms without the unix socket API the net
// package listener with the system default backlog is used instead.
//
// Both connectors apply common.TCPConf (no-delay, keep-alive, linger and
// socket buffer sizes) to their connections in UpgradeConnection.
package tcp
