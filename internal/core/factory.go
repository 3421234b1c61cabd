package core

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/giantswarm/smoketest/internal/fileutil"
	"github.com/giantswarm/smoketest/internal/netutil"
	"github.com/giantswarm/smoketest/internal/nodeconf"
	"github.com/giantswarm/smoketest/internal/process"
	"golang.org/x/sync/errgroup"
)

// Factory launches nodes. It is safe for concurrent use; every node it
// creates shares its port registry.
type Factory struct {
	cfg   FactoryConfig
	ports *netutil.PortRegistry
}

// NewFactoryWithConfig creates a Factory. This performs no I/O.
//
// Panics if cfg.Validate() reports any errors. Invalid configuration is a
// programmer error that should be caught at construction time.
func NewFactoryWithConfig(cfg FactoryConfig) *Factory {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("smoketest: invalid factory config: %v", err))
	}
	cfg = cfg.clone()
	if cfg.Connector == nil {
		cfg.Connector = DefaultConnector
	}
	return &Factory{
		cfg:   cfg,
		ports: netutil.NewPortRegistry(Logger()),
	}
}

// NodesDir returns the root directory nodes are created under.
func (f *Factory) NodesDir() string {
	return f.cfg.NodesDir
}

// BaseDirectory returns the directory a node with cfg's common name uses.
func (f *Factory) BaseDirectory(cfg nodeconf.NodeConfig) string {
	return filepath.Join(f.cfg.NodesDir, cfg.CommonName)
}

// Create launches the node described by cfg and returns once its RPC port
// accepts a login with the first configured user.
//
// Ports left at 0 are allocated. On any failure the process, if one was
// started, is killed and every resource taken so far is released. The
// returned error wraps ErrInvalidNodeConfig, ErrNodeDirInUse,
// ErrLaunchFailed, ErrNodeDied, ErrReadyTimeout, or ctx's error.
func (f *Factory) Create(ctx context.Context, cfg nodeconf.NodeConfig) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create node %s: %w", cfg.CommonName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	n := &Node{
		log:   Logger().With("node", cfg.CommonName),
		ports: f.ports,
		host:  f.cfg.Host,
		grace: f.cfg.StopGracePeriod,
		state: f.cfg.StateDirName,
	}

	created := false
	defer func() {
		if !created {
			n.abort()
		}
	}()

	if err := f.prepare(n, cfg); err != nil {
		return nil, err
	}
	if err := f.startNode(n); err != nil {
		return nil, err
	}
	if err := f.waitForRPC(ctx, n); err != nil {
		return nil, err
	}
	// The process may have died right after answering the probe.
	if !n.proc.IsAlive() {
		return nil, fmt.Errorf("%w: %s exited right after becoming ready; see %s",
			ErrNodeDied, cfg.CommonName, n.proc.LogFiles().StderrPath())
	}

	created = true
	n.log.Info("node ready", "rpc", n.RPCAddress(), "pid", n.proc.Pid(), "dir", n.dir)
	return n, nil
}

// prepare allocates ports, locks the node directory, and writes node.conf.
func (f *Factory) prepare(n *Node, cfg nodeconf.NodeConfig) error {
	zero := cfg.ZeroPorts()
	ports, err := f.ports.AllocatePorts(len(zero))
	if err != nil {
		return fmt.Errorf("allocate ports for %s: %w", cfg.CommonName, err)
	}
	n.allocated = ports
	for i, p := range zero {
		*p = ports[i]
	}
	n.cfg = cfg
	n.connector = f.cfg.Connector(f.cfg.Host, cfg.RPCPort)

	dir, err := filepath.Abs(f.BaseDirectory(cfg))
	if err != nil {
		return fmt.Errorf("resolve node directory for %s: %w", cfg.CommonName, err)
	}
	if err := fileutil.EnsureDir(dir); err != nil {
		return err
	}
	n.dir = dir

	lock, err := fileutil.LockDir(dir)
	if err != nil {
		if errors.Is(err, fileutil.ErrDirLocked) {
			return fmt.Errorf("%w: %s: %w", ErrNodeDirInUse, dir, err)
		}
		return fmt.Errorf("lock node directory %s: %w", dir, err)
	}
	n.lock = lock

	if _, err := cfg.Write(dir, f.cfg.Host); err != nil {
		return fmt.Errorf("prepare node %s: %w", cfg.CommonName, err)
	}
	return nil
}

// startNode spawns the node binary in the node directory. It returns as soon
// as the process exists.
func (f *Factory) startNode(n *Node) error {
	bin, err := resolveBinary(f.cfg.NodeBinary)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLaunchFailed, n.cfg.CommonName, err)
	}

	cmd := exec.Command(bin, f.cfg.NodeArgs...)
	cmd.Env = buildEnv(os.Environ(), f.cfg.Env)

	n.proc = process.NewBaseProcess(n.cfg.CommonName, n.log, f.cfg.StopGracePeriod)
	if err := n.proc.SetupAndStart(cmd, n.dir); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLaunchFailed, n.cfg.CommonName, err)
	}
	n.log.Debug("node process started", "binary", bin, "pid", n.proc.Pid())
	return nil
}

// waitForRPC polls the node until a login with the first user succeeds.
// A failed attempt is logged and retried; the probe connection is closed
// right away.
func (f *Factory) waitForRPC(ctx context.Context, n *Node) error {
	user := n.cfg.FirstUser()
	err := process.WaitReady(ctx, process.WaitReadyConfig{
		InitialDelay:  f.cfg.StartupDelay,
		Interval:      f.cfg.PollInterval,
		Timeout:       f.cfg.ReadyTimeout,
		Name:          n.cfg.CommonName,
		Port:          n.cfg.RPCPort,
		Logger:        n.log,
		ProcessExited: n.proc.Exited(),
	}, func(probeCtx context.Context, attempt int) (bool, error) {
		conn, err := n.connector.Start(probeCtx, user.Username, user.Password)
		if err != nil {
			n.log.Warn("node not ready yet", "attempt", attempt, "error", err)
			return false, nil
		}
		if err := conn.Close(); err != nil {
			n.log.Debug("close probe connection", "error", err)
		}
		return true, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, process.ErrProcessExited) {
		return fmt.Errorf("%w: %s; see %s: %w",
			ErrNodeDied, n.cfg.CommonName, n.proc.LogFiles().StderrPath(), err)
	}
	return err
}

// CreateAll launches every node concurrently. If any launch fails, the nodes
// already created are closed and the joined error is returned.
func (f *Factory) CreateAll(ctx context.Context, cfgs ...nodeconf.NodeConfig) ([]*Node, error) {
	nodes := make([]*Node, len(cfgs))
	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range cfgs {
		g.Go(func() error {
			n, err := f.Create(gctx, cfg)
			if err != nil {
				return err
			}
			nodes[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		created := slices.DeleteFunc(nodes, func(n *Node) bool { return n == nil })
		if closeErr := f.CloseAll(created...); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, err
	}
	return nodes, nil
}

// CloseAll closes nodes concurrently and joins their errors.
func (f *Factory) CloseAll(nodes ...*Node) error {
	errs := make([]error, len(nodes))
	var g errgroup.Group
	for i, n := range nodes {
		if n == nil {
			continue
		}
		g.Go(func() error {
			errs[i] = n.Close()
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// resolveBinary returns an absolute path for bin. The node runs in its own
// directory, so a relative path must be fixed before the launch.
func resolveBinary(bin string) (string, error) {
	if !strings.ContainsRune(bin, filepath.Separator) && !strings.ContainsRune(bin, '/') {
		path, err := exec.LookPath(bin)
		if err != nil {
			return "", fmt.Errorf("find node binary %q: %w", bin, err)
		}
		bin = path
	}
	abs, err := filepath.Abs(bin)
	if err != nil {
		return "", fmt.Errorf("resolve node binary %q: %w", bin, err)
	}
	return abs, nil
}

// buildEnv returns base with overrides applied. Overridden keys are removed
// from base and the overrides are appended sorted by key, so the result is
// deterministic.
func buildEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := overrides[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

