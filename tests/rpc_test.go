//go:build integration

package smoketest_test

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/giantswarm/smoketest"
	"github.com/giantswarm/smoketest/tests/internal/testutil"
)

// =============================================================================
// RPC Connection Tests
// =============================================================================

// TestConnectPing verifies that Ping echoes the payload and reports the
// first configured user as the caller.
func TestConnectPing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := testutil.NodeConfig("ping")
	cfg.Users = append(cfg.Users, smoketest.User{Username: "guest", Password: "guest"})
	node := testutil.CreateNode(ctx, t, sharedFactory, cfg)
	conn := testutil.Connect(ctx, t, node)

	var reply smoketest.PingReply
	if err := conn.Call(ctx, smoketest.MethodPing, smoketest.PingArgs{Payload: "hello"}, &reply); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if reply.Payload != "hello" {
		t.Errorf("Payload = %q, want %q", reply.Payload, "hello")
	}
	if reply.User != "admin" {
		t.Errorf("User = %q, want %q", reply.User, "admin")
	}
	if conn.User() != "admin" {
		t.Errorf("conn.User() = %q, want %q", conn.User(), "admin")
	}
}

// TestConnectInfoReflectsConfig verifies that the node reports the services
// and mode written to node.conf.
func TestConnectInfoReflectsConfig(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := testutil.NodeConfig("info")
	cfg.DevMode = true
	cfg.ExtraServices = []string{"com.example.flows.Ledger", "com.example.flows.Vault"}
	node := testutil.CreateNode(ctx, t, sharedFactory, cfg)
	conn := testutil.Connect(ctx, t, node)

	var info smoketest.NodeInfo
	if err := conn.Call(ctx, smoketest.MethodInfo, smoketest.Empty{}, &info); err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if !info.DevMode {
		t.Error("DevMode = false, want true")
	}
	if !slices.Equal(info.ExtraServices, cfg.ExtraServices) {
		t.Errorf("ExtraServices = %v, want %v", info.ExtraServices, cfg.ExtraServices)
	}
	if info.P2PAddress == "" || info.WebAddress == "" {
		t.Errorf("allocated addresses missing from info: %+v", info)
	}
}

// TestConnectIndependentConnections verifies that concurrent connections to
// one node do not interfere and that closing one leaves the others usable.
func TestConnectIndependentConnections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	node := testutil.CreateNode(ctx, t, sharedFactory, testutil.NodeConfig("conns"))

	const n = 8
	conns := make([]smoketest.Connection, n)
	for i := range conns {
		conns[i] = testutil.Connect(ctx, t, node)
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, c := range conns {
		wg.Go(func() {
			var reply smoketest.PingReply
			errs[i] = c.Call(ctx, smoketest.MethodPing, smoketest.PingArgs{Payload: testutil.UniqueName("p")}, &reply)
		})
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("connection %d: %v", i, err)
		}
	}

	if err := conns[0].Close(); err != nil {
		t.Fatalf("close connection: %v", err)
	}
	var reply smoketest.PingReply
	if err := conns[1].Call(ctx, smoketest.MethodPing, smoketest.PingArgs{Payload: "still here"}, &reply); err != nil {
		t.Fatalf("remaining connection failed after closing another: %v", err)
	}
}
