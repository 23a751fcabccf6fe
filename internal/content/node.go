package content

import (
	"context"

	"github.com/roach88/linkcast/internal/ir"
)

type nodeKey struct{}

// WithNode returns a context whose active node is node.
func WithNode(ctx context.Context, node ir.NodeID) context.Context {
	return context.WithValue(ctx, nodeKey{}, node)
}

// NodeFrom returns the active node carried by ctx.
func NodeFrom(ctx context.Context) (ir.NodeID, bool) {
	node, ok := ctx.Value(nodeKey{}).(ir.NodeID)
	return node, ok
}

// Switcher makes node the active node for the returned context.
//
// The restore function must be called when the caller is done operating as
// node; it is always non-nil when err is nil.
type Switcher interface {
	Switch(ctx context.Context, node ir.NodeID) (context.Context, func(), error)
}

// ContextSwitcher switches nodes by threading the node through the context.
// It needs no global state, so restore is a no-op.
type ContextSwitcher struct{}

// Switch implements Switcher.
func (ContextSwitcher) Switch(ctx context.Context, node ir.NodeID) (context.Context, func(), error) {
	return WithNode(ctx, node), func() {}, nil
}
