package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/logging"
)

// LinkStore persists one Link per item.
//
// A missing link reads as an empty Link, never an error. The store does not
// enforce the bidirectional invariant; the engine updates both endpoints.
type LinkStore interface {
	GetLink(ctx context.Context, ref ir.ItemRef) (ir.Link, error)
	SetLink(ctx context.Context, ref ir.ItemRef, link ir.Link) error
	DeleteLink(ctx context.Context, ref ir.ItemRef) error
}

// LinkLister enumerates every stored link. Needed by Check and Prune only.
type LinkLister interface {
	Links(ctx context.Context) ([]ir.LinkRecord, error)
}

// DefaultMaxSteps is the default maximum number of child visits per cascade.
const DefaultMaxSteps = 10000

// Engine ties the link store and content store together.
//
// Thread-safety model:
//   - Every exported method is safe to call from any goroutine
//   - Concurrent cascades over overlapping link trees are not serialized;
//     callers that need that must serialize top-level operations themselves
type Engine struct {
	links    LinkStore
	items    content.Store
	switcher content.Switcher
	nodes    content.NodeLister
	bus      *hooks.Bus
	guard    *Guard
	clock    *Clock
	tokens   TokenGenerator
	maxSteps int
	logger   zerolog.Logger
	tracer   trace.Tracer

	dispatcher *Dispatcher
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps sets the child-visit budget of one cascade.
//
// Default: DefaultMaxSteps
func WithMaxSteps(maxSteps int) Option {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithLogger overrides the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBus attaches the plugin hook bus. Without a bus, hook points are skipped.
func WithBus(bus *hooks.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithSwitcher sets how the engine makes a node active.
//
// Default: content.ContextSwitcher
func WithSwitcher(s content.Switcher) Option {
	return func(e *Engine) {
		e.switcher = s
	}
}

// WithNodeLister sets the directory used for default scan targets.
// When unset, the content store is used if it implements content.NodeLister.
func WithNodeLister(l content.NodeLister) Option {
	return func(e *Engine) {
		e.nodes = l
	}
}

// WithTokenGenerator sets how operation tokens are generated.
//
// Default: UUIDv7Generator
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithClock sets the clock that stamps operations.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTracer overrides the OpenTelemetry tracer.
//
// Default: otel.Tracer("linkcast/engine") from the global provider
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// New creates an Engine over the given link store and content store.
func New(links LinkStore, items content.Store, opts ...Option) *Engine {
	e := &Engine{
		links:    links,
		items:    items,
		switcher: content.ContextSwitcher{},
		guard:    NewGuard(),
		clock:    NewClock(),
		tokens:   UUIDv7Generator{},
		maxSteps: DefaultMaxSteps,
		logger:   logging.GetLogger("engine"),
	}
	if l, ok := items.(content.NodeLister); ok {
		e.nodes = l
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.tracer == nil {
		e.tracer = otel.Tracer("linkcast/engine")
	}
	e.dispatcher = newDispatcher(e)
	return e
}

// Guard exposes the reentrancy guard for introspection.
func (e *Engine) Guard() *Guard {
	return e.guard
}

// Dispatcher returns the command dispatcher bound to this engine.
func (e *Engine) Dispatcher() *Dispatcher {
	return e.dispatcher
}

// GetLink returns the link of ref, read while ref's node is active.
func (e *Engine) GetLink(ctx context.Context, ref ir.ItemRef) (ir.Link, error) {
	var link ir.Link
	err := e.onNode(ctx, ref.Node, func(ctx context.Context) error {
		var err error
		link, err = e.links.GetLink(ctx, ref)
		if err != nil {
			return storeFailure("get link", ref, err)
		}
		return nil
	})
	return link, err
}

// onNode runs fn with node active and restores the previous node afterwards,
// including when fn fails.
func (e *Engine) onNode(ctx context.Context, node ir.NodeID, fn func(ctx context.Context) error) error {
	nctx, restore, err := e.switcher.Switch(ctx, node)
	if err != nil {
		return &Error{Code: ErrCodeStoreFailure, Op: "switch node", Ref: ir.ItemRef{Node: node}, Err: err}
	}
	defer restore()
	return fn(nctx)
}

// setLink writes link for ref while ref's node is active.
func (e *Engine) setLink(ctx context.Context, ref ir.ItemRef, link ir.Link) error {
	return e.onNode(ctx, ref.Node, func(ctx context.Context) error {
		if err := e.links.SetLink(ctx, ref, link); err != nil {
			return storeFailure("set link", ref, err)
		}
		return nil
	})
}

// fetch reads an item while its node is active.
func (e *Engine) fetch(ctx context.Context, ref ir.ItemRef) (ir.Item, error) {
	var item ir.Item
	err := e.onNode(ctx, ref.Node, func(ctx context.Context) error {
		var err error
		item, err = e.items.Fetch(ctx, ref)
		if err != nil {
			return itemFailure("fetch", ref, err)
		}
		return nil
	})
	return item, err
}

// dispatch fires a hook event if a bus is attached.
func (e *Engine) dispatch(ctx context.Context, event string, payload any) ([]any, error) {
	if e.bus == nil {
		return nil, nil
	}
	results, err := e.bus.Dispatch(ctx, event, payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", event, err)
	}
	return results, nil
}
