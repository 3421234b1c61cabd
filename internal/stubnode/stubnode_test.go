package stubnode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/giantswarm/smoketest/internal/nodeconf"
	"github.com/giantswarm/smoketest/internal/noderpc"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func writeConf(t *testing.T, dir string, port int) {
	t.Helper()
	cfg := nodeconf.NodeConfig{
		CommonName: "node-a",
		RPCPort:    port,
		Users:      []nodeconf.User{{Username: "admin", Password: "secret"}},
	}
	if _, err := cfg.Write(dir, "127.0.0.1"); err != nil {
		t.Fatalf("write node.conf: %v", err)
	}
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	port := freePort(t)
	writeConf(t, dir, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Options{Dir: dir, JournalFiles: 3}) }()

	client := noderpc.NewClient("127.0.0.1", port)
	var conn noderpc.Connection
	deadline := time.Now().Add(10 * time.Second)
	for {
		var err error
		conn, err = client.Start(ctx, "admin", "secret")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("node never became reachable: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	var info noderpc.NodeInfo
	if err := conn.Call(ctx, noderpc.MethodInfo, noderpc.Empty{}, &info); err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.CommonName != "node-a" {
		t.Errorf("CommonName = %q, want node-a", info.CommonName)
	}
	_ = conn.Close()

	if pid, err := ReadPIDFile(dir); err != nil || pid != os.Getpid() {
		t.Errorf("ReadPIDFile() = (%d, %v), want (%d, nil)", pid, err, os.Getpid())
	}

	for i := 1; i <= 3; i++ {
		if _, err := os.Stat(filepath.Join(dir, StateDirName, "journal", fmt.Sprintf("journal-%d.amq", i))); err != nil {
			t.Errorf("journal file %d: %v", i, err)
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() returned %v after cancel", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Options{Dir: t.TempDir()})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Run() error = %v, want os.ErrNotExist", err)
	}
}

func TestRun_CanceledDuringStartupDelay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConf(t, dir, freePort(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := Run(ctx, Options{Dir: dir, StartupDelay: time.Minute}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("startup delay ignored cancellation, took %v", elapsed)
	}
	if _, err := os.Stat(filepath.Join(dir, StateDirName)); err != nil {
		t.Errorf("state dir must exist before the listener starts: %v", err)
	}
}
