// Package core implements the node harness behind the public smoketest API.
//
// A Factory turns a nodeconf.NodeConfig into a running Node: it allocates
// ports, locks and prepares the node directory, writes node.conf, launches
// the node binary, and polls the node's RPC port until a login succeeds.
// A Node owns its process until Close, which stops it in two tiers (SIGTERM,
// then SIGKILL after the grace period), deletes the node's state directory,
// and releases the ports and the directory lock.
package core
