package smoketest

import (
	"context"

	"github.com/giantswarm/smoketest/internal/core"
	"github.com/giantswarm/smoketest/internal/nodeconf"
	"github.com/giantswarm/smoketest/internal/noderpc"
)

// NodeConfig describes a node to launch. Ports left at 0 are allocated.
type NodeConfig = nodeconf.NodeConfig

// User is an RPC user of a node. The first user of a NodeConfig is the one
// readiness probes and Node.Connect log in with.
type User = nodeconf.User

// Connection is an authenticated RPC session with a node.
type Connection = noderpc.Connection

// Connector opens connections to one node. See WithConnector.
type Connector = noderpc.Connector

// ConnectorFunc builds the Connector for a node listening on host:port.
type ConnectorFunc = core.ConnectorFunc

// DefaultConnector is the ConnectorFunc a Factory uses unless WithConnector
// replaces it. Wrap it to observe or alter logins.
//
//nolint:ireturn // Connector is the extension point.
func DefaultConnector(host string, port int) Connector {
	return core.DefaultConnector(host, port)
}

// RPC payloads served by the stub node.
type (
	NodeInfo  = noderpc.NodeInfo
	Empty     = noderpc.Empty
	PingArgs  = noderpc.PingArgs
	PingReply = noderpc.PingReply
)

// RPC method names served by the stub node.
const (
	MethodInfo = noderpc.MethodInfo
	MethodPing = noderpc.MethodPing
)

// Factory launches nodes.
//
// Each Create runs:
//
//	validate → allocate ports → lock directory → write node.conf → launch → probe
//
// A Factory is safe for concurrent use. Nodes it creates must be closed by
// the caller; the Factory keeps no list of them.
type Factory interface {
	// Create launches the node described by cfg and returns once a login
	// with the first user succeeds. On failure the process is killed and
	// nothing is left running. The error wraps ErrInvalidNodeConfig,
	// ErrNodeDirInUse, ErrLaunchFailed, ErrNodeDied, ErrReadyTimeout, or
	// ctx's error.
	Create(ctx context.Context, cfg NodeConfig) (Node, error)

	// CreateAll launches nodes concurrently. If any fails, the others are
	// closed and no node is returned.
	CreateAll(ctx context.Context, cfgs ...NodeConfig) ([]Node, error)

	// CloseAll closes nodes concurrently and joins their errors.
	CloseAll(nodes ...Node) error

	// BaseDirectory returns the directory Create uses for cfg.
	BaseDirectory(cfg NodeConfig) string

	// NodesDir returns the root directory nodes are created under.
	NodesDir() string
}

// Node is a running node.
type Node interface {
	// Connect opens a new connection as the node's first user. Each call
	// returns an independent Connection the caller must close. Returns
	// ErrNodeClosed after Close.
	Connect(ctx context.Context) (Connection, error)

	// Close stops the node (SIGTERM, then SIGKILL after the grace period),
	// deletes its state directory, and releases its ports. Safe to call more
	// than once. Returns an error only if the process could not be reaped.
	Close() error

	// Config returns the node's configuration with allocated ports.
	Config() NodeConfig

	// Dir returns the node directory.
	Dir() string

	// RPCAddress returns the host:port the node serves RPC on.
	RPCAddress() string
}
