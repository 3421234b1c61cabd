package smoketest

import "time"

// Default configuration values for NewFactory.
const (
	// DefaultNodeBinary is the binary name used to locate the node in PATH.
	DefaultNodeBinary = "stubnode"

	// DefaultHost is the address nodes bind and the harness dials.
	DefaultHost = "localhost"

	// DefaultBuildDirName is the directory, relative to the working
	// directory, that holds node directories and the shared cache.
	DefaultBuildDirName = "build"

	// DefaultCacheDirEnv names the environment variable that points nodes at
	// the shared cache directory.
	DefaultCacheDirEnv = "CAPSULE_CACHE_DIR"

	// DefaultCacheDirName is the cache directory under DefaultBuildDirName.
	DefaultCacheDirName = "capsule"

	// DefaultStateDirName is the internal state directory Close deletes.
	DefaultStateDirName = "artemis"

	// DefaultStartupDelay is the quiet period between launch and the first
	// readiness probe.
	DefaultStartupDelay = 5 * time.Second

	// DefaultPollInterval is the delay between the end of one readiness
	// probe and the start of the next.
	DefaultPollInterval = time.Second

	// DefaultReadyTimeout bounds the time from launch to a successful probe.
	DefaultReadyTimeout = 2 * time.Minute

	// DefaultStopGracePeriod is how long Close waits after SIGTERM before
	// sending SIGKILL.
	DefaultStopGracePeriod = time.Minute
)

// nodesDirTimeFormat names the per-run directory under DefaultBuildDirName.
const nodesDirTimeFormat = "20060102150405"
