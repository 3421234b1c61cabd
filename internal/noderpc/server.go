package noderpc

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"slices"
	"sync"

	"github.com/giantswarm/smoketest/internal/nodeconf"
)

// Server serves the Node RPC service. Every accepted connection gets its own
// session, so a login on one connection does not authenticate another.
type Server struct {
	info  NodeInfo
	users map[string]nodeconf.FileUser
	log   *slog.Logger

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer returns a Server that answers Node.Info with info and accepts
// the given users. A nil logger falls back to slog.Default().
func NewServer(info NodeInfo, users []nodeconf.FileUser, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[string]nodeconf.FileUser, len(users))
	for _, u := range users {
		m[u.Username] = u
	}
	return &Server{
		info:  info,
		users: m,
		log:   logger,
		conns: make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on l until l is closed. Closing the listener is
// the normal way to stop it and makes Serve return nil.
func (s *Server) Serve(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		s.wg.Go(func() {
			defer s.untrack(conn)
			s.serveConn(conn)
		})
	}
}

// Shutdown closes every open connection and waits for their handlers.
// The listener passed to Serve is the caller's to close.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	_ = c.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	rs := rpc.NewServer()
	if err := rs.RegisterName(Service, &session{srv: s}); err != nil {
		s.log.Error("register rpc service", "error", err)
		return
	}
	s.log.Debug("rpc connection accepted", "remote", conn.RemoteAddr().String())
	rs.ServeCodec(jsonrpc.NewServerCodec(conn))
}

// session is the per-connection receiver of the Node service. Only its
// exported methods are RPC endpoints.
type session struct {
	srv *Server

	mu   sync.Mutex
	user string
}

func (s *session) Login(args LoginArgs, reply *LoginReply) error {
	u, ok := s.srv.users[args.Username]
	if !ok || u.Password != args.Password {
		s.srv.log.Warn("rpc login rejected", "user", args.Username)
		return ErrAuthenticationFailed
	}
	s.mu.Lock()
	s.user = u.Username
	s.mu.Unlock()

	reply.Username = u.Username
	reply.Permissions = slices.Clone(u.Permissions)
	s.srv.log.Info("rpc user logged in", "user", u.Username)
	return nil
}

func (s *session) Info(_ Empty, reply *NodeInfo) error {
	if _, err := s.authenticated(); err != nil {
		return err
	}
	*reply = s.srv.info
	reply.ExtraServices = slices.Clone(s.srv.info.ExtraServices)
	return nil
}

func (s *session) Ping(args PingArgs, reply *PingReply) error {
	user, err := s.authenticated()
	if err != nil {
		return err
	}
	reply.Payload = args.Payload
	reply.User = user
	return nil
}

func (s *session) authenticated() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == "" {
		return "", ErrNotAuthenticated
	}
	return s.user, nil
}
