//go:build integration

// Package testutil provides shared helpers for integration test packages.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/giantswarm/smoketest"
	"github.com/giantswarm/smoketest/internal/stubnode"
)

// NodeBinaryEnv names the variable that overrides the node binary looked up
// in PATH.
const NodeBinaryEnv = "SMOKETEST_NODE_BINARY"

// nameCounter is an atomic counter used by UniqueName.
var nameCounter atomic.Int64

// UniqueName returns a node name that is unique across all parallel tests.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, nameCounter.Add(1))
}

// NodeConfig returns a config with a fresh name, one admin user, and every
// port left for the factory to allocate.
func NodeConfig(prefix string) smoketest.NodeConfig {
	return smoketest.NodeConfig{
		CommonName: UniqueName(prefix),
		Users: []smoketest.User{
			{Username: "admin", Password: "admin-" + prefix},
		},
	}
}

// CreateNode creates a node and registers its Close as a test cleanup.
//
//nolint:ireturn // Test helper returns Node matching the public API.
func CreateNode(ctx context.Context, t *testing.T, f smoketest.Factory, cfg smoketest.NodeConfig) smoketest.Node {
	t.Helper()

	node, err := f.Create(ctx, cfg)
	if err != nil {
		t.Fatalf("Create(%s): %v", cfg.CommonName, err)
	}
	t.Cleanup(func() {
		if err := node.Close(); err != nil {
			t.Errorf("Close(%s): %v", cfg.CommonName, err)
		}
	})
	return node
}

// Connect opens a connection to node and registers its Close as a test cleanup.
//
//nolint:ireturn // Test helper returns Connection matching the public API.
func Connect(ctx context.Context, t *testing.T, node smoketest.Node) smoketest.Connection {
	t.Helper()

	conn, err := node.Connect(ctx)
	if err != nil {
		t.Fatalf("Connect(%s): %v", node.Config().CommonName, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// AssertNodeGone fails the test if the node process recorded in dir is
// still alive.
func AssertNodeGone(t *testing.T, dir string) {
	t.Helper()
	pid, err := stubnode.ReadPIDFile(dir)
	if err != nil {
		t.Fatalf("read node pid: %v", err)
	}
	if syscall.Kill(pid, 0) == nil {
		t.Errorf("node pid %d still running", pid)
	}
}

// SetupTestLogging configures slog based on the SMOKETEST_LOG_LEVEL
// environment variable.
func SetupTestLogging() {
	levelStr := os.Getenv("SMOKETEST_LOG_LEVEL")
	if levelStr == "" {
		levelStr = "INFO"
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	smoketest.SetLogger(slog.Default().With("component", "smoketest"))
}

// RequireNodeBinaryOrExit returns the node binary to launch, exiting the
// process (via os.Exit) if it cannot be found. This is used in TestMain
// where *testing.T is not available.
func RequireNodeBinaryOrExit() string {
	if bin := os.Getenv(NodeBinaryEnv); bin != "" {
		if _, err := os.Stat(bin); err != nil {
			fmt.Fprintf(os.Stderr, "%s=%s: %v\n", NodeBinaryEnv, bin, err)
			os.Exit(1)
		}
		return bin
	}
	path, err := exec.LookPath(smoketest.DefaultNodeBinary)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "%s binary not found in PATH\nInstall it: go install ./cmd/stubnode\n",
				smoketest.DefaultNodeBinary)
		} else {
			fmt.Fprintf(os.Stderr, "look up %s: %v\n", smoketest.DefaultNodeBinary, err)
		}
		os.Exit(1)
	}
	return path
}

// RunTestMain sets up signal handling, runs all tests, then removes tmpDir.
// Returns the exit code.
func RunTestMain(m *testing.M, tmpDir string) int {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh) // Restore default handler so a second signal force-kills
			fmt.Fprintf(os.Stderr, "\nReceived %s, shutting down...\n", sig)
			_ = os.RemoveAll(tmpDir)
			os.Exit(1)
		case <-done:
			return
		}
	}()

	code := m.Run()

	signal.Stop(sigCh)
	close(done)
	_ = os.RemoveAll(tmpDir)

	return code
}
