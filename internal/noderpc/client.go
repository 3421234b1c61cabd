package noderpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/giantswarm/smoketest/internal/nodeconf"
)

// Client is the default Connector: it dials host:port over TCP for every
// Start and logs in over JSON-RPC.
type Client struct {
	addr   string
	dialer net.Dialer
}

var _ Connector = (*Client)(nil)

// NewClient returns a Client for the node listening on host:port. It does
// not dial.
func NewClient(host string, port int) *Client {
	return &Client{addr: nodeconf.Address(host, port)}
}

// Address returns the host:port the client dials.
func (c *Client) Address() string {
	return c.addr
}

// Start dials the node and logs in with username and password. A rejected
// login closes the connection and returns an error wrapping
// ErrAuthenticationFailed.
func (c *Client) Start(ctx context.Context, username, password string) (Connection, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	var reply LoginReply
	if err := conn.Call(ctx, MethodLogin, LoginArgs{Username: username, Password: password}, &reply); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("login to %s as %s: %w", c.addr, username, err)
	}
	conn.user = reply.Username
	return conn, nil
}

// dial opens an unauthenticated session.
func (c *Client) dial(ctx context.Context) (*clientConn, error) {
	nc, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.addr, err)
	}
	return &clientConn{rc: jsonrpc.NewClient(nc), addr: c.addr, closed: make(chan struct{})}, nil
}

type clientConn struct {
	rc   *rpc.Client
	addr string
	user string

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

func (c *clientConn) Call(ctx context.Context, method string, args, reply any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	select {
	case <-c.closed:
		return fmt.Errorf("call %s: %w", method, ErrConnectionClosed)
	default:
	}

	call := c.rc.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		if call.Error != nil {
			return fmt.Errorf("call %s: %w", method, mapServerError(call.Error))
		}
		return nil
	case <-ctx.Done():
		_ = c.Close()
		return fmt.Errorf("call %s: %w", method, ctx.Err())
	}
}

func (c *clientConn) User() string {
	return c.user
}

func (c *clientConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if err := c.rc.Close(); err != nil && !errors.Is(err, rpc.ErrShutdown) {
			c.closeErr = fmt.Errorf("close connection to %s: %w", c.addr, err)
		}
	})
	return c.closeErr
}

// mapServerError restores the sentinels a Server sends as plain strings.
func mapServerError(err error) error {
	var se rpc.ServerError
	if !errors.As(err, &se) {
		return err
	}
	for _, s := range []error{ErrAuthenticationFailed, ErrNotAuthenticated} {
		if string(se) == s.Error() {
			return s
		}
	}
	return err
}
