// Package server implements the server endpoint: a listening TCP socket with
// a fixed number of connection slots.
//
// The endpoint moves Unbound -> Listening on Bind and back to Unbound only on
// Shutdown. While listening, slots churn Available -> Active -> Available
// through AcceptConnection, CloseConnection and peer closes observed by
// Receive. Two separate limits apply: the listen backlog is always one
// pending connection (common.ListenBacklog) while the number of concurrently
// active peers is the configured MaxConnections.
//
// Messages are raw bytes. There is no framing: a message is whatever one
// underlying read or write transferred.
//
// Usage Example:
//
//	s := server.NewTCPServerEndpoint()
//	if err := s.Bind(3000, 1); err != nil {
//		return err
//	}
//	defer s.Shutdown()
//
//	index, err := s.AcceptConnection()
//	if err != nil {
//		return err
//	}
//	if _, err := s.SendString("Hello client!", index, true); err != nil {
//		return err
//	}
//	msg, closed, err := s.ReceiveString(index)
//
// Errors are classified with common.IsContractViolation (the call was invalid
// for the endpoint's state, e.g. ErrNotBound) and common.IsOperational (the
// network failed, e.g. ErrIO or ErrCapacityExceeded).
package server
