// Package smoketest launches real node processes for end-to-end tests and
// hands test code a handle it can connect to over RPC.
//
// A Factory writes each node's node.conf into its own directory, starts the
// node binary there, and polls the node's RPC port until a login with the
// first configured user succeeds. The returned Node can be connected to any
// number of times and must be closed, which stops the process (SIGTERM, then
// SIGKILL after a grace period) and deletes the node's bulky state directory.
//
// # Basic Usage
//
//	import "github.com/giantswarm/smoketest"
//
//	ctx := context.Background()
//
//	f := smoketest.NewFactory()
//	node, err := f.Create(ctx, smoketest.NodeConfig{
//	    CommonName: "alice",
//	    Users:      []smoketest.User{{Username: "admin", Password: "secret"}},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	conn, err := node.Connect(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	var info smoketest.NodeInfo
//	err = conn.Call(ctx, smoketest.MethodInfo, smoketest.Empty{}, &info)
//
// # Ports
//
// Ports left at 0 in NodeConfig are allocated from free localhost ports and
// released again when the node is closed. Node.Config reports the ports in
// use.
//
// # Layout
//
// Nodes live under NodesDir, by default build/<yyyyMMddHHmmss> relative to
// the working directory:
//
//	build/20240101120000/alice/
//	    node.conf
//	    alice-stdout.log
//	    alice-stderr.log
//	    .node.lock
//	    artemis/          deleted by Close
//
// # Timeouts
//
// After launch the factory waits DefaultStartupDelay, then probes every
// DefaultPollInterval. A node that is not reachable within
// DefaultReadyTimeout of launch is killed and Create returns
// ErrReadyTimeout. A node that exits while being probed yields ErrNodeDied.
// All of these are configurable with the With* options.
package smoketest
