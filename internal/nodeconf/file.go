package nodeconf

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/giantswarm/smoketest/internal/fileutil"
)

// File is the on-disk shape of node.conf.
type File struct {
	CommonName    string     `toml:"commonName"`
	RPCAddress    string     `toml:"rpcAddress"`
	P2PAddress    string     `toml:"p2pAddress,omitempty"`
	WebAddress    string     `toml:"webAddress,omitempty"`
	DevMode       bool       `toml:"devMode"`
	ExtraServices []string   `toml:"extraServices,omitempty"`
	RPCUsers      []FileUser `toml:"rpcUsers"`
}

// FileUser is one [[rpcUsers]] entry.
type FileUser struct {
	Username    string   `toml:"username"`
	Password    string   `toml:"password"`
	Permissions []string `toml:"permissions"`
}

// ToFile maps c onto the file layout. Zero ports are left out of the
// addresses, so callers allocate ports before rendering.
func (c NodeConfig) ToFile(host string) File {
	f := File{
		CommonName:    c.CommonName,
		DevMode:       c.DevMode,
		ExtraServices: c.ExtraServices,
	}
	if c.RPCPort != 0 {
		f.RPCAddress = Address(host, c.RPCPort)
	}
	if c.P2PPort != 0 {
		f.P2PAddress = Address(host, c.P2PPort)
	}
	if c.WebPort != 0 {
		f.WebAddress = Address(host, c.WebPort)
	}
	for _, u := range c.Users {
		perms := u.Permissions
		if len(perms) == 0 {
			perms = []string{AllPermissions}
		}
		f.RPCUsers = append(f.RPCUsers, FileUser{
			Username:    u.Username,
			Password:    u.Password,
			Permissions: perms,
		})
	}
	return f
}

// Render encodes c as node.conf content.
func (c NodeConfig) Render(host string) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.ToFile(host)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", FileName, err)
	}
	return buf.Bytes(), nil
}

// Write renders c and writes it atomically to dir/node.conf, returning the
// file path. A config with unallocated rpc port is rejected, since the node
// could not be probed.
func (c NodeConfig) Write(dir, host string) (string, error) {
	if c.RPCPort == 0 {
		return "", fmt.Errorf("write %s: %w: rpc port not allocated", FileName, ErrInvalidConfig)
	}
	data, err := c.Render(host)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := fileutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", FileName, err)
	}
	return path, nil
}

// Read decodes a node.conf file and checks that the keys a node cannot
// start without are present.
func Read(path string) (File, error) {
	var f File
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return File{}, fmt.Errorf("load %s: %w", path, err)
	}

	var errs []error
	for _, key := range []string{"commonName", "rpcAddress", "rpcUsers"} {
		if !meta.IsDefined(key) {
			errs = append(errs, fmt.Errorf("missing key %q", key))
		}
	}
	if len(errs) > 0 {
		return File{}, fmt.Errorf("load %s: %w: %w", path, ErrInvalidConfig, errors.Join(errs...))
	}
	return f, nil
}

// User returns the entry for username, if any.
func (f File) User(username string) (FileUser, bool) {
	for _, u := range f.RPCUsers {
		if u.Username == username {
			return u, true
		}
	}
	return FileUser{}, false
}
