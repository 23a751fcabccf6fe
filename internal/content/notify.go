package content

import (
	"context"

	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
)

// Notifier wraps a Store and fires the node's lifecycle notification before
// each destructive operation, the way a node's own store would. A failing
// handler aborts the operation.
type Notifier struct {
	Store
	Bus *hooks.Bus
}

// NewNotifier wraps inner so lifecycle operations dispatch on bus.
func NewNotifier(inner Store, bus *hooks.Bus) *Notifier {
	return &Notifier{Store: inner, Bus: bus}
}

// Destroy fires delete_item then destroys the item.
func (n *Notifier) Destroy(ctx context.Context, ref ir.ItemRef) error {
	if err := n.fire(ctx, hooks.EventDeleteItem, ref); err != nil {
		return err
	}
	return n.Store.Destroy(ctx, ref)
}

// Trash fires trash_item then trashes the item.
func (n *Notifier) Trash(ctx context.Context, ref ir.ItemRef) error {
	if err := n.fire(ctx, hooks.EventTrashItem, ref); err != nil {
		return err
	}
	return n.Store.Trash(ctx, ref)
}

// Restore fires untrash_item then restores the item.
func (n *Notifier) Restore(ctx context.Context, ref ir.ItemRef) error {
	if err := n.fire(ctx, hooks.EventUntrashItem, ref); err != nil {
		return err
	}
	return n.Store.Restore(ctx, ref)
}

func (n *Notifier) fire(ctx context.Context, event string, ref ir.ItemRef) error {
	if n.Bus == nil {
		return nil
	}
	_, err := n.Bus.Dispatch(ctx, event, hooks.ItemEvent{Ref: ref})
	return err
}
