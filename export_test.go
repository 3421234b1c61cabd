package smoketest

import (
	"maps"
	"slices"
	"time"
)

// ConfigSnapshot holds a copy of factoryConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	NodeBinary      string
	NodeArgs        []string
	Env             map[string]string
	NodesDir        string
	Host            string
	StateDirName    string
	StartupDelay    time.Duration
	PollInterval    time.Duration
	ReadyTimeout    time.Duration
	StopGracePeriod time.Duration
	HasConnector    bool
}

// ApplyOptionsForTesting creates a default factoryConfig for now, applies
// the given options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(now time.Time, opts ...FactoryOption) ConfigSnapshot {
	cfg := defaultFactoryConfig(now)
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		NodeBinary:      cfg.NodeBinary,
		NodeArgs:        slices.Clone(cfg.NodeArgs),
		Env:             maps.Clone(cfg.Env),
		NodesDir:        cfg.NodesDir,
		Host:            cfg.Host,
		StateDirName:    cfg.StateDirName,
		StartupDelay:    cfg.StartupDelay,
		PollInterval:    cfg.PollInterval,
		ReadyTimeout:    cfg.ReadyTimeout,
		StopGracePeriod: cfg.StopGracePeriod,
		HasConnector:    cfg.Connector != nil,
	}
}
