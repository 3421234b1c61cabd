package smoketest

import (
	"path/filepath"
	"time"

	"github.com/giantswarm/smoketest/internal/core"
)

// factoryConfig holds configuration for a Factory. This unexported type
// wraps core.FactoryConfig via embedding, keeping internal/core types out of
// the public API signature.
type factoryConfig struct {
	core.FactoryConfig
}

// toCoreConfig returns the embedded core.FactoryConfig.
func (c factoryConfig) toCoreConfig() core.FactoryConfig {
	return c.FactoryConfig
}

// defaultFactoryConfig returns a factoryConfig populated with all default
// values. now picks the per-run nodes directory.
func defaultFactoryConfig(now time.Time) factoryConfig {
	cacheDir := filepath.Join(DefaultBuildDirName, DefaultCacheDirName)
	if abs, err := filepath.Abs(cacheDir); err == nil {
		cacheDir = abs
	}
	return factoryConfig{core.FactoryConfig{
		NodeBinary:      DefaultNodeBinary,
		Env:             map[string]string{DefaultCacheDirEnv: cacheDir},
		NodesDir:        filepath.Join(DefaultBuildDirName, now.Format(nodesDirTimeFormat)),
		Host:            DefaultHost,
		StateDirName:    DefaultStateDirName,
		StartupDelay:    DefaultStartupDelay,
		PollInterval:    DefaultPollInterval,
		ReadyTimeout:    DefaultReadyTimeout,
		StopGracePeriod: DefaultStopGracePeriod,
	}}
}
