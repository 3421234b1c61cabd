package smoketest

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive(name string, v time.Duration) {
	if v <= 0 {
		panic(fmt.Sprintf("smoketest: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("smoketest: %s must not be empty", name))
	}
}

// FactoryOption configures a Factory during construction via NewFactory.
//
// Several With* functions panic on invalid input. Option values are
// typically constants, so an invalid value is a programmer error and fails
// at construction like regexp.MustCompile.
type FactoryOption func(*factoryConfig)

// WithNodeBinary sets the node executable. A bare name is looked up in PATH
// at launch; a relative path is resolved against the working directory.
//
// Default: "stubnode".
//
// Panics if binPath is empty.
func WithNodeBinary(binPath string) FactoryOption {
	requireNonEmpty("node binary path", binPath)
	return func(c *factoryConfig) {
		c.NodeBinary = binPath
	}
}

// WithNodeArgs sets the arguments passed to every node process.
func WithNodeArgs(args ...string) FactoryOption {
	args = slices.Clone(args)
	return func(c *factoryConfig) {
		c.NodeArgs = args
	}
}

// WithEnv sets an environment variable for every node process, overriding
// the inherited value. Repeat the option for several variables.
//
// Panics if key is empty or contains '='.
func WithEnv(key, value string) FactoryOption {
	requireNonEmpty("environment variable name", key)
	if strings.ContainsRune(key, '=') {
		panic(fmt.Sprintf("smoketest: environment variable name %q must not contain '='", key))
	}
	return func(c *factoryConfig) {
		if c.Env == nil {
			c.Env = make(map[string]string)
		}
		c.Env[key] = value
	}
}

// WithNodesDir sets the root directory node directories are created under.
//
// Default: build/<yyyyMMddHHmmss> relative to the working directory.
//
// Panics if dir is empty.
func WithNodesDir(dir string) FactoryOption {
	requireNonEmpty("nodes directory", dir)
	return func(c *factoryConfig) {
		c.NodesDir = dir
	}
}

// WithHost sets the address nodes bind and the harness dials.
//
// Default: "localhost".
//
// Panics if host is empty.
func WithHost(host string) FactoryOption {
	requireNonEmpty("host", host)
	return func(c *factoryConfig) {
		c.Host = host
	}
}

// WithStateDirName sets the directory inside each node directory that Close
// deletes.
//
// Default: "artemis".
//
// Panics if name is empty or not a single path element.
func WithStateDirName(name string) FactoryOption {
	requireNonEmpty("state directory name", name)
	if name != filepath.Base(name) || name == "." || name == ".." {
		panic(fmt.Sprintf("smoketest: state directory name must be a single path element, got %q", name))
	}
	return func(c *factoryConfig) {
		c.StateDirName = name
	}
}

// WithStartupDelay sets the quiet period between launch and the first
// readiness probe. Zero probes immediately.
//
// Default: 5 seconds.
//
// Panics if d < 0.
func WithStartupDelay(d time.Duration) FactoryOption {
	if d < 0 {
		panic(fmt.Sprintf("smoketest: startup delay must not be negative, got %v", d))
	}
	return func(c *factoryConfig) {
		c.StartupDelay = d
	}
}

// WithPollInterval sets the delay between readiness probes.
//
// Default: 1 second.
//
// Panics if d <= 0.
func WithPollInterval(d time.Duration) FactoryOption {
	requirePositive("poll interval", d)
	return func(c *factoryConfig) {
		c.PollInterval = d
	}
}

// WithReadyTimeout sets the deadline from launch to a successful probe,
// startup delay included.
//
// Default: 2 minutes.
//
// Panics if d <= 0.
func WithReadyTimeout(d time.Duration) FactoryOption {
	requirePositive("ready timeout", d)
	return func(c *factoryConfig) {
		c.ReadyTimeout = d
	}
}

// WithStopGracePeriod sets how long Close waits for a node to exit after
// SIGTERM before killing it.
//
// Default: 1 minute.
//
// Panics if d <= 0.
func WithStopGracePeriod(d time.Duration) FactoryOption {
	requirePositive("stop grace period", d)
	return func(c *factoryConfig) {
		c.StopGracePeriod = d
	}
}

// WithConnector replaces the RPC connector nodes are probed and connected
// with. fn is called once per node with the node's host and RPC port.
//
// Panics if fn is nil.
func WithConnector(fn ConnectorFunc) FactoryOption {
	if fn == nil {
		panic("smoketest: connector must not be nil")
	}
	return func(c *factoryConfig) {
		c.Connector = fn
	}
}
