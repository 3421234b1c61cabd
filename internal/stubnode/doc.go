// Package stubnode is a minimal node: it reads node.conf from its working
// directory, fills a state directory with journal files, and serves the
// noderpc stub service until its context ends. cmd/stubnode wraps it as a
// binary; tests re-execute themselves into it.
package stubnode
