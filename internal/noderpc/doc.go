// Package noderpc speaks the node's RPC interface: JSON-RPC over TCP with a
// login handshake. Client is the connector the harness probes and connects
// with; Server is the stub implementation served by cmd/stubnode and by
// tests that need a node without a real binary.
package noderpc
