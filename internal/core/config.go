package core

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/giantswarm/smoketest/internal/noderpc"
)

// ConnectorFunc returns the connector a node is probed and connected with.
type ConnectorFunc func(host string, port int) noderpc.Connector

// DefaultConnector dials host:port with noderpc.Client.
func DefaultConnector(host string, port int) noderpc.Connector {
	return noderpc.NewClient(host, port)
}

// FactoryConfig holds configuration for a Factory.
//
// All fields are immutable after construction via NewFactoryWithConfig;
// node goroutines read them without synchronization.
type FactoryConfig struct {
	// NodeBinary is the node executable. A bare name is looked up in PATH;
	// a path is made absolute before the working directory changes.
	NodeBinary string
	// NodeArgs are passed to every node process.
	NodeArgs []string
	// Env overrides entries of the parent environment for every node.
	Env map[string]string
	// NodesDir is the root under which each node gets <commonName>/.
	NodesDir string
	// Host is the address nodes bind and the harness dials.
	Host string
	// StateDirName is the directory inside a node directory that Close
	// deletes.
	StateDirName string

	// StartupDelay is the quiet period between launch and the first probe.
	StartupDelay time.Duration
	// PollInterval is the delay between the end of one probe and the start
	// of the next.
	PollInterval time.Duration
	// ReadyTimeout bounds launch-to-ready, including StartupDelay.
	ReadyTimeout time.Duration
	// StopGracePeriod is how long Close waits after SIGTERM before SIGKILL.
	StopGracePeriod time.Duration

	// Connector builds the per-node RPC connector. Nil selects
	// DefaultConnector.
	Connector ConnectorFunc
}

// Validate checks all FactoryConfig invariants and returns an error
// describing every violation found.
func (c FactoryConfig) Validate() error {
	var errs []error

	if c.NodeBinary == "" {
		errs = append(errs, errors.New("node binary must not be empty"))
	}
	if c.NodesDir == "" {
		errs = append(errs, errors.New("nodes directory must not be empty"))
	}
	if c.Host == "" {
		errs = append(errs, errors.New("host must not be empty"))
	}
	if c.StateDirName == "" || c.StateDirName != filepath.Base(c.StateDirName) || c.StateDirName == ".." || c.StateDirName == "." {
		errs = append(errs, fmt.Errorf("state directory name must be a single path element, got %q", c.StateDirName))
	}
	if c.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("startup delay must not be negative, got %s", c.StartupDelay))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be greater than 0, got %s", c.PollInterval))
	}
	if c.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ready timeout must be greater than 0, got %s", c.ReadyTimeout))
	}
	if c.StopGracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("stop grace period must be greater than 0, got %s", c.StopGracePeriod))
	}
	for k := range c.Env {
		if k == "" {
			errs = append(errs, errors.New("environment variable name must not be empty"))
			break
		}
	}

	return errors.Join(errs...)
}

// clone returns a copy of c that shares no slices or maps with it.
func (c FactoryConfig) clone() FactoryConfig {
	out := c
	out.NodeArgs = slices.Clone(c.NodeArgs)
	out.Env = maps.Clone(c.Env)
	return out
}
