package core

import (
	"github.com/giantswarm/smoketest/internal/nodeconf"
	"github.com/giantswarm/smoketest/internal/noderpc"
	"github.com/giantswarm/smoketest/internal/process"
	"github.com/giantswarm/smoketest/internal/sentinel"
)

const (
	// ErrLaunchFailed is returned by Create when the node process could not
	// be started at all.
	ErrLaunchFailed = sentinel.Error("node launch failed")

	// ErrNodeDied is returned by Create when the node process exited before
	// its RPC port accepted a login.
	ErrNodeDied = sentinel.Error("node process died during startup")

	// ErrNodeClosed is returned by Connect after Close.
	ErrNodeClosed = sentinel.Error("node is closed")

	// ErrNodeDirInUse is returned by Create when another node, in this or
	// another process, holds the node directory.
	ErrNodeDirInUse = sentinel.Error("node directory in use")
)

// ErrReadyTimeout is re-exported from process so the public API imports only
// from core.
const ErrReadyTimeout = process.ErrReadyTimeout

// ErrInvalidNodeConfig is re-exported from nodeconf so the public API imports
// only from core.
const ErrInvalidNodeConfig = nodeconf.ErrInvalidConfig

// Connection errors re-exported from noderpc.
const (
	ErrAuthenticationFailed = noderpc.ErrAuthenticationFailed
	ErrNotAuthenticated     = noderpc.ErrNotAuthenticated
)
