package content

import (
	"context"
	"fmt"

	"github.com/roach88/linkcast/internal/ir"
)

// Copier is a minimal Duplicator that copies the matchable fields of the
// origin item into a new item on the target node. Hierarchical parents are
// not carried over.
type Copier struct {
	Store Store
}

// Duplicate implements Duplicator.
func (c Copier) Duplicate(ctx context.Context, origin ir.ItemRef, target ir.NodeID) (ir.ItemID, error) {
	item, err := c.Store.Fetch(WithNode(ctx, origin.Node), origin)
	if err != nil {
		return 0, fmt.Errorf("fetch origin %s: %w", origin, err)
	}
	id, err := c.Store.Create(WithNode(ctx, target), target, ir.Item{
		Name:   item.Name,
		Type:   item.Type,
		Status: item.Status,
	})
	if err != nil {
		return 0, fmt.Errorf("create copy on node %d: %w", target, err)
	}
	return id, nil
}
