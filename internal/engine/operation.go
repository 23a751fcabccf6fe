package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/linkcast/internal/ir"
)

// Operation scopes one top-level request. It carries the equivalence cache,
// which maps (origin, target node) to the resolved counterpart and is
// discarded with the operation.
//
// The cache is a memo, not a source of truth; the link store is.
type Operation struct {
	// Token correlates log lines and spans of this operation.
	Token string

	// Seq orders operations started by the same engine.
	Seq int64

	mu     sync.Mutex
	cache  map[cacheKey]ir.ItemID
	flight singleflight.Group
	ended  bool
}

type cacheKey struct {
	Origin ir.ItemRef
	Target ir.NodeID
}

// Begin starts an operation. Call End when the request finishes.
func (e *Engine) Begin(ctx context.Context) *Operation {
	return &Operation{
		Token: e.tokens.Generate(),
		Seq:   e.clock.Next(),
		cache: make(map[cacheKey]ir.ItemID),
	}
}

// End discards the equivalence cache. Resolving through an ended operation
// still works but nothing is memoized.
func (op *Operation) End() {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.ended = true
	op.cache = make(map[cacheKey]ir.ItemID)
}

// Cached returns the memoized counterpart of origin on target.
func (op *Operation) Cached(origin ir.ItemRef, target ir.NodeID) (ir.ItemID, bool) {
	op.mu.Lock()
	defer op.mu.Unlock()
	id, ok := op.cache[cacheKey{origin, target}]
	return id, ok
}

// CacheSize returns the number of memoized resolutions.
func (op *Operation) CacheSize() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return len(op.cache)
}

func (op *Operation) remember(origin ir.ItemRef, target ir.NodeID, id ir.ItemID) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.ended {
		op.cache[cacheKey{origin, target}] = id
	}
}

type operationKey struct{}

// WithOperation returns a context carrying op, so nested calls made by
// collaborators (a duplicator resolving a parent item, say) share its cache.
func WithOperation(ctx context.Context, op *Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom returns the operation carried by ctx, if any.
func OperationFrom(ctx context.Context) (*Operation, bool) {
	op, ok := ctx.Value(operationKey{}).(*Operation)
	return op, ok && op != nil
}

// operationFor returns op, the operation in ctx, or a fresh one, in that order.
func (e *Engine) operationFor(ctx context.Context, op *Operation) *Operation {
	if op != nil {
		return op
	}
	if op, ok := OperationFrom(ctx); ok {
		return op
	}
	return e.Begin(ctx)
}
