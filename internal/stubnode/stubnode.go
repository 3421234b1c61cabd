package stubnode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/smoketest/internal/fileutil"
	"github.com/giantswarm/smoketest/internal/nodeconf"
	"github.com/giantswarm/smoketest/internal/noderpc"
)

// StateDirName is the internal state directory a node fills while running.
const StateDirName = "artemis"

// PIDFileName is the file in the node directory holding the node's process id.
const PIDFileName = "process-id"

// journalSize is the size of each preallocated journal file.
const journalSize = 64 << 10

// Options configures Run.
type Options struct {
	// Dir is the node directory holding node.conf. Empty means the current
	// working directory.
	Dir string
	// StartupDelay postpones the RPC listener, simulating a slow boot.
	StartupDelay time.Duration
	// JournalFiles is the number of journal files written into the state
	// directory. Zero selects 2.
	JournalFiles int
	// Logger is optional and defaults to slog.Default().
	Logger *slog.Logger
}

// Run serves the node described by Dir/node.conf until ctx ends. It returns
// nil on a clean shutdown.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	conf, err := nodeconf.Read(filepath.Join(dir, nodeconf.FileName))
	if err != nil {
		return err
	}
	log = log.With("node", conf.CommonName)

	if err := WritePIDFile(dir); err != nil {
		return err
	}

	if err := writeState(filepath.Join(dir, StateDirName), opts.JournalFiles); err != nil {
		return err
	}

	if opts.StartupDelay > 0 {
		log.Info("delaying rpc listener", "delay", opts.StartupDelay)
		t := time.NewTimer(opts.StartupDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil
		}
	}

	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", conf.RPCAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", conf.RPCAddress, err)
	}

	srv := noderpc.NewServer(noderpc.NodeInfo{
		CommonName:    conf.CommonName,
		RPCAddress:    conf.RPCAddress,
		P2PAddress:    conf.P2PAddress,
		WebAddress:    conf.WebAddress,
		DevMode:       conf.DevMode,
		ExtraServices: conf.ExtraServices,
	}, conf.RPCUsers, log)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(l) }()
	log.Info("node started", "rpc", conf.RPCAddress, "users", len(conf.RPCUsers))

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-served:
		srv.Shutdown()
		return fmt.Errorf("serve rpc: %w", err)
	}

	closeErr := l.Close()
	srv.Shutdown()
	if err := <-served; err != nil {
		return fmt.Errorf("serve rpc: %w", err)
	}
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return fmt.Errorf("close listener: %w", closeErr)
	}
	return nil
}

// writeState creates the state directory with a journal and a bindings
// subdirectory, like a broker that has just initialised its storage.
func writeState(stateDir string, journals int) error {
	if journals <= 0 {
		journals = 2
	}
	for _, sub := range []string{"journal", "bindings", "paging"} {
		if err := fileutil.EnsureDir(filepath.Join(stateDir, sub)); err != nil {
			return err
		}
	}

	buf := make([]byte, journalSize)
	for i := range journals {
		_, _ = rand.Read(buf)
		path := filepath.Join(stateDir, "journal", fmt.Sprintf("journal-%d.amq", i+1))
		if err := os.WriteFile(path, buf, 0o600); err != nil {
			return fmt.Errorf("write journal file: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(stateDir, "bindings", "bindings-1.bindings"), []byte("bindings"), 0o600); err != nil {
		return fmt.Errorf("write bindings file: %w", err)
	}
	return nil
}

// WritePIDFile records the current process id in dir/process-id.
func WritePIDFile(dir string) error {
	pid := strconv.Itoa(os.Getpid()) + "\n"
	return fileutil.WriteFileAtomic(filepath.Join(dir, PIDFileName), []byte(pid), 0o600)
}

// ReadPIDFile returns the process id recorded in dir by WritePIDFile.
func ReadPIDFile(dir string) (int, error) {
	b, err := os.ReadFile(filepath.Join(dir, PIDFileName))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", PIDFileName, err)
	}
	return pid, nil
}
