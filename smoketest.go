package smoketest

import (
	"context"
	"errors"
	"time"

	"github.com/giantswarm/smoketest/internal/core"
)

// Compile-time interface satisfaction checks.
var (
	_ Factory = (*factoryWrapper)(nil)
	_ Node    = (*nodeWrapper)(nil)
)

// factoryWrapper wraps core.Factory to implement the Factory interface.
//
// The core.Factory is stored as a named field rather than embedded so
// callers cannot reach internal methods through type assertions.
type factoryWrapper struct {
	f *core.Factory
}

// Create implements Factory.Create.
//
//nolint:ireturn // Returns Node interface by design for testability (mockable).
func (w *factoryWrapper) Create(ctx context.Context, cfg NodeConfig) (Node, error) {
	n, err := w.f.Create(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &nodeWrapper{node: n}, nil
}

// CreateAll implements Factory.CreateAll.
func (w *factoryWrapper) CreateAll(ctx context.Context, cfgs ...NodeConfig) ([]Node, error) {
	nodes, err := w.f.CreateAll(ctx, cfgs...)
	if err != nil {
		return nil, err
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = &nodeWrapper{node: n}
	}
	return out, nil
}

// CloseAll implements Factory.CloseAll. Nodes not created by a Factory are
// closed one after another once the others are done.
func (w *factoryWrapper) CloseAll(nodes ...Node) error {
	var (
		own    []*core.Node
		others []Node
	)
	for _, n := range nodes {
		switch nw := n.(type) {
		case nil:
		case *nodeWrapper:
			own = append(own, nw.node)
		default:
			others = append(others, n)
		}
	}
	errs := []error{w.f.CloseAll(own...)}
	for _, n := range others {
		errs = append(errs, n.Close())
	}
	return errors.Join(errs...)
}

// BaseDirectory implements Factory.BaseDirectory.
func (w *factoryWrapper) BaseDirectory(cfg NodeConfig) string {
	return w.f.BaseDirectory(cfg)
}

// NodesDir implements Factory.NodesDir.
func (w *factoryWrapper) NodesDir() string {
	return w.f.NodesDir()
}

// nodeWrapper wraps core.Node to implement the Node interface.
type nodeWrapper struct {
	node *core.Node
}

// Connect implements Node.Connect.
//
//nolint:ireturn // Connection is an interface so tests can substitute it.
func (w *nodeWrapper) Connect(ctx context.Context) (Connection, error) {
	return w.node.Connect(ctx)
}

// Close implements Node.Close.
func (w *nodeWrapper) Close() error {
	return w.node.Close()
}

// Config implements Node.Config.
func (w *nodeWrapper) Config() NodeConfig {
	return w.node.Config()
}

// Dir implements Node.Dir.
func (w *nodeWrapper) Dir() string {
	return w.node.Dir()
}

// RPCAddress implements Node.RPCAddress.
func (w *nodeWrapper) RPCAddress() string {
	return w.node.RPCAddress()
}

// NewFactory returns a Factory configured with opts. Every call returns an
// independent Factory. This performs no I/O; the nodes directory is created
// by the first Create.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Factory interface by design for testability (mockable).
func NewFactory(opts ...FactoryOption) Factory {
	cfg := defaultFactoryConfig(time.Now())
	for _, opt := range opts {
		opt(&cfg)
	}
	return &factoryWrapper{f: core.NewFactoryWithConfig(cfg.toCoreConfig())}
}
