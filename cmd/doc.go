// Package cmd implements the command-line interface of dSock. It provides
// commands for running a server endpoint and connecting to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a server endpoint (hello demo, echo and broadcast modes, metrics endpoint)
//   - connect: Connects a client endpoint, sends messages and runs the round trip benchmark
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dsock -help for a list of all commands.
package cmd
