package nodeconf

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"

	"github.com/giantswarm/smoketest/internal/sentinel"
)

// ErrInvalidConfig is wrapped by every error Validate returns.
const ErrInvalidConfig = sentinel.Error("invalid node config")

// FileName is the name of the configuration file inside a node directory.
const FileName = "node.conf"

// AllPermissions is written for users that do not list any permission.
const AllPermissions = "ALL"

// maxPort is the highest valid TCP port.
const maxPort = 65535

// User is an RPC user of a node.
type User struct {
	Username    string
	Password    string
	Permissions []string
}

// NodeConfig describes one node. A zero port means the harness allocates a
// free localhost port before writing the file.
type NodeConfig struct {
	CommonName    string
	RPCPort       int
	P2PPort       int
	WebPort       int
	Users         []User // the first user is the one readiness probes log in with
	DevMode       bool
	ExtraServices []string
}

// Validate reports every problem with c at once.
func (c NodeConfig) Validate() error {
	var errs []error

	switch {
	case strings.TrimSpace(c.CommonName) == "":
		errs = append(errs, errors.New("common name must not be empty"))
	case c.CommonName == ".":
		errs = append(errs, errors.New(`common name must not be "."`))
	case strings.ContainsAny(c.CommonName, `/\`) || strings.Contains(c.CommonName, ".."):
		errs = append(errs, fmt.Errorf("common name %q must not contain a path separator or \"..\"", c.CommonName))
	}

	seen := make(map[int]string, 3)
	for _, p := range []struct {
		name string
		port int
	}{
		{"rpc", c.RPCPort},
		{"p2p", c.P2PPort},
		{"web", c.WebPort},
	} {
		if p.port < 0 || p.port > maxPort {
			errs = append(errs, fmt.Errorf("%s port %d out of range 0..%d", p.name, p.port, maxPort))
			continue
		}
		if p.port == 0 {
			continue
		}
		if other, dup := seen[p.port]; dup {
			errs = append(errs, fmt.Errorf("%s port %d already used by %s port", p.name, p.port, other))
			continue
		}
		seen[p.port] = p.name
	}

	if len(c.Users) == 0 {
		errs = append(errs, errors.New("at least one rpc user is required"))
	}
	for i, u := range c.Users {
		if strings.TrimSpace(u.Username) == "" {
			errs = append(errs, fmt.Errorf("rpc user %d: username must not be empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// FirstUser returns the credential used for readiness probes and Connect.
// The zero User is returned when no user is configured.
func (c NodeConfig) FirstUser() User {
	if len(c.Users) == 0 {
		return User{}
	}
	return c.Users[0]
}

// ZeroPorts returns pointers to the ports still set to 0, in rpc, p2p, web
// order, so the caller can fill them in after allocation.
func (c *NodeConfig) ZeroPorts() []*int {
	var out []*int
	for _, p := range []*int{&c.RPCPort, &c.P2PPort, &c.WebPort} {
		if *p == 0 {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of c.
func (c NodeConfig) Clone() NodeConfig {
	out := c
	out.ExtraServices = slices.Clone(c.ExtraServices)
	out.Users = make([]User, len(c.Users))
	for i, u := range c.Users {
		u.Permissions = slices.Clone(u.Permissions)
		out.Users[i] = u
	}
	return out
}

// Address joins host and port the way node.conf expects them.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
