package noderpc

import (
	"context"

	"github.com/giantswarm/smoketest/internal/sentinel"
)

// Service is the name the node's RPC methods are registered under.
const Service = "Node"

// Method names served by Server.
const (
	MethodLogin = Service + ".Login"
	MethodInfo  = Service + ".Info"
	MethodPing  = Service + ".Ping"
)

const (
	// ErrAuthenticationFailed is returned by Start when the node rejects the
	// credentials.
	ErrAuthenticationFailed = sentinel.Error("authentication failed")

	// ErrNotAuthenticated is returned for calls made before a successful login.
	ErrNotAuthenticated = sentinel.Error("not authenticated")

	// ErrConnectionClosed is returned by Call after Close.
	ErrConnectionClosed = sentinel.Error("connection closed")
)

// Connector opens authenticated connections to one node.
type Connector interface {
	// Start dials the node and logs in. The returned Connection is owned by
	// the caller, who must Close it.
	Start(ctx context.Context, username, password string) (Connection, error)
}

// Connection is an authenticated session with a node.
type Connection interface {
	// Call invokes method and decodes the result into reply. If ctx ends
	// first the connection is closed and ctx's error is returned.
	Call(ctx context.Context, method string, args, reply any) error
	// User returns the username the session logged in as.
	User() string
	// Close ends the session. Safe to call more than once.
	Close() error
}

// LoginArgs carries the credentials for Node.Login.
type LoginArgs struct {
	Username string
	Password string
}

// LoginReply is the result of Node.Login.
type LoginReply struct {
	Username    string
	Permissions []string
}

// Empty is the argument of methods that take none.
type Empty struct{}

// NodeInfo is the result of Node.Info.
type NodeInfo struct {
	CommonName    string
	RPCAddress    string
	P2PAddress    string
	WebAddress    string
	DevMode       bool
	ExtraServices []string
}

// PingArgs is the argument of Node.Ping.
type PingArgs struct {
	Payload string
}

// PingReply echoes PingArgs.Payload.
type PingReply struct {
	Payload string
	User    string
}
