// Package common provides the types shared by the server and client endpoints:
// configuration, the error taxonomy, logging and traffic statistics.
//
// The package focuses on:
//   - Configuration structures for server and client endpoints
//   - A two category error model (contract violations vs operational failures)
//   - Custom logging implementation integrated with Dragonboat's logger package
//   - Lock free traffic counters mirrored into a prometheus metrics set
//
// Key Components:
//
//   - ServerConfig / ClientConfig: endpoint configuration with String() printers
//     used by the CLI. TCPConf holds the socket options applied to every connection.
//
//   - Errors: sentinel errors (ErrNotBound, ErrIO, ...) built with
//     github.com/cockroachdb/errors. Every returned error is marked either with
//     ErrContractViolation (the call itself was invalid) or ErrOperational (the
//     network or OS failed). Use errors.Is for the sentinel and
//     IsContractViolation / IsOperational / IsTimeout to classify.
//
//   - Logger: custom logging implementation that plugs into Dragonboat's
//     logger factory, see InitLoggers.
//
//   - Stats: per endpoint counters backed by xsync.Counter.
package common
