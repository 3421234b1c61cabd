// Package netutil allocates localhost ports for nodes.
// Its central type, PortRegistry, binds every requested listener at once to
// guarantee distinct ports within a call, and tracks reserved ports across
// the process to prevent duplicate allocation from the TOCTOU race between
// concurrent callers.
package netutil
