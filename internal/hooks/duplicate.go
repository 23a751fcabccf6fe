package hooks

import (
	"context"
	"fmt"

	"github.com/roach88/linkcast/internal/ir"
)

// Duplicator requests duplication over the bus. The first handler result
// that is an ir.ItemID is the new copy.
type Duplicator struct {
	Bus *Bus
}

// Duplicate dispatches EventDuplicateItem.
func (d Duplicator) Duplicate(ctx context.Context, origin ir.ItemRef, target ir.NodeID) (ir.ItemID, error) {
	results, err := d.Bus.Dispatch(ctx, EventDuplicateItem, DuplicateRequest{Origin: origin, Target: target})
	if err != nil {
		return 0, err
	}
	for _, r := range results {
		if id, ok := r.(ir.ItemID); ok && id > 0 {
			return id, nil
		}
	}
	return 0, fmt.Errorf("no %s handler produced an item for %s on node %d", EventDuplicateItem, origin, target)
}
