// Package nodeconf describes a node's configuration and renders it as the
// node.conf TOML file the node binary reads from its working directory.
package nodeconf
