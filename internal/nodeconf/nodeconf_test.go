package nodeconf

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() NodeConfig {
	return NodeConfig{
		CommonName: "node-a",
		RPCPort:    10005,
		Users:      []User{{Username: "admin", Password: "secret"}},
	}
}

func TestNodeConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		mutate  func(c *NodeConfig)
		wantErr bool
		wantMsg []string
	}{
		"valid config": {
			mutate: func(_ *NodeConfig) {},
		},
		"zero ports are allowed": {
			mutate: func(c *NodeConfig) { c.RPCPort = 0 },
		},
		"empty common name": {
			mutate:  func(c *NodeConfig) { c.CommonName = "  " },
			wantErr: true,
			wantMsg: []string{"common name must not be empty"},
		},
		"common name with separator": {
			mutate:  func(c *NodeConfig) { c.CommonName = "a/b" },
			wantErr: true,
			wantMsg: []string{"path separator"},
		},
		"common name with dot dot": {
			mutate:  func(c *NodeConfig) { c.CommonName = "..evil" },
			wantErr: true,
			wantMsg: []string{"path separator"},
		},
		"common name is current directory": {
			mutate:  func(c *NodeConfig) { c.CommonName = "." },
			wantErr: true,
			wantMsg: []string{`common name must not be "."`},
		},
		"rpc port out of range": {
			mutate:  func(c *NodeConfig) { c.RPCPort = 70000 },
			wantErr: true,
			wantMsg: []string{"rpc port 70000 out of range"},
		},
		"negative web port": {
			mutate:  func(c *NodeConfig) { c.WebPort = -1 },
			wantErr: true,
			wantMsg: []string{"web port -1 out of range"},
		},
		"duplicate ports": {
			mutate:  func(c *NodeConfig) { c.P2PPort = c.RPCPort },
			wantErr: true,
			wantMsg: []string{"p2p port 10005 already used by rpc port"},
		},
		"no users": {
			mutate:  func(c *NodeConfig) { c.Users = nil },
			wantErr: true,
			wantMsg: []string{"at least one rpc user"},
		},
		"empty username": {
			mutate:  func(c *NodeConfig) { c.Users = append(c.Users, User{Password: "x"}) },
			wantErr: true,
			wantMsg: []string{"rpc user 1: username must not be empty"},
		},
		"multiple violations are joined": {
			mutate: func(c *NodeConfig) {
				c.CommonName = ""
				c.Users = nil
			},
			wantErr: true,
			wantMsg: []string{"common name must not be empty", "at least one rpc user"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error does not wrap ErrInvalidConfig: %v", err)
			}
			for _, msg := range tc.wantMsg {
				if !strings.Contains(err.Error(), msg) {
					t.Errorf("error %q does not contain %q", err, msg)
				}
			}
		})
	}
}

func TestNodeConfig_FirstUser(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Users = append(cfg.Users, User{Username: "second"})
	if got := cfg.FirstUser().Username; got != "admin" {
		t.Errorf("FirstUser().Username = %q, want %q", got, "admin")
	}
	if got := (NodeConfig{}).FirstUser(); got.Username != "" {
		t.Errorf("FirstUser() on empty config = %+v, want zero", got)
	}
}

func TestNodeConfig_ZeroPorts(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.WebPort = 10007

	zero := cfg.ZeroPorts()
	if len(zero) != 1 {
		t.Fatalf("ZeroPorts() returned %d pointers, want 1", len(zero))
	}
	*zero[0] = 10006
	if cfg.P2PPort != 10006 {
		t.Errorf("P2PPort = %d, want 10006", cfg.P2PPort)
	}
}

func TestNodeConfig_Clone(t *testing.T) {
	t.Parallel()

	orig := validConfig()
	orig.Users[0].Permissions = []string{"StartFlow"}
	orig.ExtraServices = []string{"svc.A"}

	c := orig.Clone()
	c.Users[0].Username = "changed"
	c.Users[0].Permissions[0] = "changed"
	c.ExtraServices[0] = "changed"

	if orig.Users[0].Username != "admin" || orig.Users[0].Permissions[0] != "StartFlow" || orig.ExtraServices[0] != "svc.A" {
		t.Errorf("Clone shares state with the original: %+v", orig)
	}
}

func TestAddress(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		host string
		port int
		want string
	}{
		"hostname": {host: "localhost", port: 10005, want: "localhost:10005"},
		"ipv4":     {host: "127.0.0.1", port: 1, want: "127.0.0.1:1"},
		"ipv6":     {host: "::1", port: 10005, want: "[::1]:10005"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := Address(tc.host, tc.port); got != tc.want {
				t.Errorf("Address(%q, %d) = %q, want %q", tc.host, tc.port, got, tc.want)
			}
		})
	}
}
