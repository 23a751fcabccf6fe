package content

import (
	"context"
	"errors"

	"github.com/roach88/linkcast/internal/ir"
)

// ErrNotFound is returned when an item does not exist on its node.
var ErrNotFound = errors.New("item not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the CRUD/query surface of the content stores on every node.
// Each method may fail with a store-level error.
type Store interface {
	// Fetch returns the item or an error wrapping ErrNotFound.
	Fetch(ctx context.Context, ref ir.ItemRef) (ir.Item, error)

	// Query returns items on node matching f, ordered by item id.
	Query(ctx context.Context, node ir.NodeID, f ir.Filter) ([]ir.Item, error)

	// Create inserts a new item on node and returns its id. item.Ref is ignored.
	Create(ctx context.Context, node ir.NodeID, item ir.Item) (ir.ItemID, error)

	// Destroy permanently deletes the item.
	Destroy(ctx context.Context, ref ir.ItemRef) error

	// Trash moves the item to the trash.
	Trash(ctx context.Context, ref ir.ItemRef) error

	// Restore brings the item back from the trash.
	Restore(ctx context.Context, ref ir.ItemRef) error
}

// NodeLister enumerates the nodes an operator may write to.
type NodeLister interface {
	Nodes(ctx context.Context) ([]ir.NodeID, error)
}

// Duplicator produces a brand-new copy of origin on target.
type Duplicator interface {
	Duplicate(ctx context.Context, origin ir.ItemRef, target ir.NodeID) (ir.ItemID, error)
}

// DuplicatorFunc adapts a function to Duplicator.
type DuplicatorFunc func(ctx context.Context, origin ir.ItemRef, target ir.NodeID) (ir.ItemID, error)

// Duplicate calls f.
func (f DuplicatorFunc) Duplicate(ctx context.Context, origin ir.ItemRef, target ir.NodeID) (ir.ItemID, error) {
	return f(ctx, origin, target)
}
