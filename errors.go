package smoketest

import "github.com/giantswarm/smoketest/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrLaunchFailed is returned by Create when the node process could not
	// be started.
	ErrLaunchFailed = core.ErrLaunchFailed

	// ErrNodeDied is returned by Create when the node exited before it
	// became reachable.
	ErrNodeDied = core.ErrNodeDied

	// ErrReadyTimeout is returned by Create when the node did not accept a
	// login before the ready timeout.
	ErrReadyTimeout = core.ErrReadyTimeout

	// ErrNodeClosed is returned by Connect after Close.
	ErrNodeClosed = core.ErrNodeClosed

	// ErrInvalidNodeConfig is returned by Create for a NodeConfig that fails
	// validation.
	ErrInvalidNodeConfig = core.ErrInvalidNodeConfig

	// ErrNodeDirInUse is returned by Create when another node holds the
	// node directory.
	ErrNodeDirInUse = core.ErrNodeDirInUse

	// ErrAuthenticationFailed is returned by Connection setup when the node
	// rejects the credentials.
	ErrAuthenticationFailed = core.ErrAuthenticationFailed

	// ErrNotAuthenticated is returned by calls made before a login.
	ErrNotAuthenticated = core.ErrNotAuthenticated
)
