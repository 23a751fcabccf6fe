package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/store"
)

// session is one opened database with the engine wired over it. Lifecycle
// commands issued through items fire notifications that the engine's
// dispatcher turns into cascades.
type session struct {
	store  *store.Store
	bus    *hooks.Bus
	items  *content.Notifier
	engine *engine.Engine
}

// openSession opens the configured database and wires the engine.
func openSession(opts *RootOptions) (*session, error) {
	cfg := opts.Config
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	bus := hooks.NewBus()
	items := content.NewNotifier(st, bus)
	eng := engine.New(st, items,
		engine.WithBus(bus),
		engine.WithNodeLister(st),
		engine.WithMaxSteps(cfg.Engine.MaxSteps),
	)
	if err := eng.Dispatcher().Bind(bus); err != nil {
		return nil, errors.Join(WrapExitError(ExitCommandError, "failed to bind dispatcher", err), st.Close())
	}

	copier := content.Copier{Store: st}
	err = bus.Register(hooks.EventDuplicateItem, func(ctx context.Context, payload any) (any, error) {
		req, ok := payload.(hooks.DuplicateRequest)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected payload %T", hooks.EventDuplicateItem, payload)
		}
		return copier.Duplicate(ctx, req.Origin, req.Target)
	})
	if err != nil {
		return nil, errors.Join(WrapExitError(ExitCommandError, "failed to register duplicator", err), st.Close())
	}

	return &session{store: st, bus: bus, items: items, engine: eng}, nil
}

// Close closes the database.
func (s *session) Close() error {
	return s.store.Close()
}

// duplicator creates missing counterparts through the bus.
func (s *session) duplicator() content.Duplicator {
	return hooks.Duplicator{Bus: s.bus}
}

// requireNode fails with a command error when node is not registered.
func (s *session) requireNode(ctx context.Context, node ir.NodeID) error {
	nodes, err := s.store.Nodes(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list nodes", err)
	}
	for _, n := range nodes {
		if n == node {
			return nil
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("node %d does not exist", node))
}

// parseRefArgs parses "<node> <item>" positional arguments.
func parseRefArgs(nodeArg, itemArg string) (ir.ItemRef, error) {
	node, err := ir.ParseNodeID(nodeArg)
	if err != nil {
		return ir.ItemRef{}, WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	item, err := ir.ParseItemID(itemArg)
	if err != nil {
		return ir.ItemRef{}, WrapExitError(ExitCommandError, "invalid arguments", err)
	}
	return ir.ItemRef{Node: node, Item: item}, nil
}
