package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giantswarm/smoketest/internal/fileutil"
	"github.com/giantswarm/smoketest/internal/netutil"
	"github.com/giantswarm/smoketest/internal/nodeconf"
	"github.com/giantswarm/smoketest/internal/noderpc"
	"github.com/giantswarm/smoketest/internal/process"
)

// Node is a running node created by Factory.Create. It owns its process,
// its allocated ports, and the lock on its directory until Close.
//
// Synchronization strategy:
//   - closed is atomic so Connect never waits behind a slow Close.
//   - mu serializes Close; proc and stopResult are only touched under mu
//     once Create has returned.
type Node struct {
	cfg       nodeconf.NodeConfig
	dir       string
	host      string
	state     string
	grace     time.Duration
	connector noderpc.Connector
	log       *slog.Logger

	ports     *netutil.PortRegistry
	allocated []int
	lock      *fileutil.DirLock

	closed atomic.Bool

	mu         sync.Mutex
	proc       process.BaseProcess
	stopResult process.StopResult
}

// Config returns the node's configuration with allocated ports filled in.
func (n *Node) Config() nodeconf.NodeConfig {
	return n.cfg.Clone()
}

// Dir returns the node directory.
func (n *Node) Dir() string {
	return n.dir
}

// RPCAddress returns the host:port the node serves RPC on.
func (n *Node) RPCAddress() string {
	return nodeconf.Address(n.host, n.cfg.RPCPort)
}

// Connect opens a new authenticated connection as the node's first user.
// Each call returns an independent connection the caller must close.
func (n *Node) Connect(ctx context.Context) (noderpc.Connection, error) {
	if n.closed.Load() {
		return nil, fmt.Errorf("connect to %s: %w", n.cfg.CommonName, ErrNodeClosed)
	}
	user := n.cfg.FirstUser()
	conn, err := n.connector.Start(ctx, user.Username, user.Password)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", n.cfg.CommonName, err)
	}
	return conn, nil
}

// Close stops the node process and cleans up after it: SIGTERM, up to the
// grace period for a clean exit, then SIGKILL. The state directory is
// deleted, and the ports and directory lock are released. The node
// directory itself, node.conf, and the log files are kept.
//
// Close is idempotent. It returns an error only when the process could not
// be reaped; a forced kill or a failed state deletion is logged instead.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed.Swap(true) {
		return nil
	}

	res, stopErr := n.proc.Stop(n.grace)
	n.stopResult = res
	n.proc.Close()

	stateDir := filepath.Join(n.dir, n.state)
	if err := fileutil.RemoveDir(stateDir); err != nil {
		n.log.Warn("failed to delete node state directory", "path", stateDir, "error", err)
	}
	n.release()

	n.log.Info("node closed", "stop", res.String())
	if errors.Is(stopErr, process.ErrReapTimeout) {
		return fmt.Errorf("close node %s: %w", n.cfg.CommonName, stopErr)
	}
	return nil
}

// abort tears down a node whose Create failed. The process is killed
// without a graceful tier; the directory is left as is for inspection.
func (n *Node) abort() {
	n.closed.Store(true)
	if err := n.proc.Kill(); err != nil {
		n.log.Warn("failed to kill node after failed start", "error", err)
	}
	n.proc.Close()
	n.release()
}

// release frees the directory lock and the allocated ports.
func (n *Node) release() {
	n.lock.Release(n.log)
	n.lock = nil
	if n.ports != nil {
		n.ports.ReleaseAll(n.allocated)
	}
	n.allocated = nil
}
