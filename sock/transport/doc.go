// Package transport defines the connector abstractions the endpoints use to
// obtain transport handles. The endpoints never open sockets themselves; they
// ask an IServerConnector for a listener or an IClientConnector for a
// connection, which keeps the endpoints testable with in-memory connectors.
//
// Key Components:
//
//   - IServerConnector: opens a listening socket with an explicit backlog and
//     tunes accepted connections.
//
//   - IClientConnector: dials a remote address and tunes the connection.
//
// Implementations live in sub packages (see tcp). The I/O helpers operating
// on the handles live in base.
package transport
