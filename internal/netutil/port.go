package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// maxPortRetries is the maximum number of attempts to find a port not already
// in the registry. This guards against pathological cases.
const maxPortRetries = 20

// PortRegistry tracks ports currently reserved by this process to prevent
// the TOCTOU race where two concurrent AllocatePorts calls receive the same
// port from the kernel (because the first caller closed its listener before
// the second caller opened theirs).
//
// Each core.Factory owns one PortRegistry and shares it with every node it
// creates; a node releases its ports when it is closed.
type PortRegistry struct {
	mu    sync.Mutex
	ports map[int]struct{}
	log   *slog.Logger
}

// NewPortRegistry creates a new PortRegistry ready for use.
// If logger is nil, slog.Default() is used as a fallback.
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: make(map[int]struct{}),
		log:   logger,
	}
}

// reserve attempts to register a port in the registry.
// Returns true if the port was successfully reserved, false if already taken.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ports[port]; ok {
		return false
	}
	r.ports[port] = struct{}{}
	return true
}

// Release removes a port from the registry, allowing it to be reused.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ports, port)
}

// Reserved reports whether port is currently in the registry.
func (r *PortRegistry) Reserved(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ports[port]
	return ok
}

// getFreePortFromKernel asks the kernel for a free port, skipping any ports
// already in the registry. On success it returns an open [net.TCPListener] that
// the caller must close when the port is no longer needed to be held open. The
// port is also registered in the registry; the caller must call [PortRegistry.Release]
// separately to free it from the registry.
func (r *PortRegistry) getFreePortFromKernel() (*net.TCPListener, int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for range maxPortRetries {
		l, err := net.ListenTCP("tcp", addr)
		if err != nil {
			return nil, 0, fmt.Errorf("listen on tcp address: %w", err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return nil, 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		if r.reserve(tcpAddr.Port) {
			return l, tcpAddr.Port, nil
		}
		// Port already in registry, close and retry to get a different one.
		r.log.Debug("port already in registry, retrying", "port", tcpAddr.Port)
		_ = l.Close()
	}
	return nil, 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}

// AllocatePorts allocates n distinct free localhost ports.
//
// All listeners are held open until every port is chosen, so the kernel
// cannot hand the same port out twice within one call. Ports stay in the
// registry after the listeners close; callers must Release each one when the
// node that used it is gone. On error nothing stays reserved.
func (r *PortRegistry) AllocatePorts(n int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("allocate ports: negative count %d", n)
	}
	listeners := make([]*net.TCPListener, 0, n)
	ports := make([]int, 0, n)

	closeAll := func() {
		for i, l := range listeners {
			if closeErr := l.Close(); closeErr != nil {
				r.log.Warn("close listener after port allocation", "port", ports[i], "error", closeErr)
			}
		}
	}

	for i := range n {
		l, p, err := r.getFreePortFromKernel()
		if err != nil {
			// Close the listeners BEFORE releasing the ports from the registry,
			// so no other caller is handed a port that is still bound.
			closeAll()
			for _, port := range ports {
				r.Release(port)
			}
			return nil, fmt.Errorf("allocate port %d of %d: %w", i+1, n, err)
		}
		listeners = append(listeners, l)
		ports = append(ports, p)
	}

	closeAll()
	return ports, nil
}

// ReleaseAll removes every port in ports from the registry.
func (r *PortRegistry) ReleaseAll(ports []int) {
	for _, p := range ports {
		r.Release(p)
	}
}
