package ir

import (
	"maps"
	"slices"
)

// NodeID identifies an isolated content store.
type NodeID int64

// ItemID identifies an item within one node. Item ids are only unique per node.
type ItemID int64

// ItemRef uniquely identifies one item on one node.
type ItemRef struct {
	Node NodeID `json:"node" yaml:"node"`
	Item ItemID `json:"item" yaml:"item"`
}

// IsZero reports whether the reference is unset.
func (r ItemRef) IsZero() bool {
	return r.Node == 0 && r.Item == 0
}

// Link is the linkage record attached to one item.
//
// INVARIANTS (maintained by the engine, not by the store):
//   - If A lists B as a child, B.Parent equals A's reference
//   - Children holds at most one item per node
//   - Following Parent pointers never revisits an item
type Link struct {
	// Parent is the item this one was broadcast from. Nil for roots and
	// standalone items.
	Parent *ItemRef `json:"parent,omitempty"`

	// Children maps a node to the counterpart of this item on that node.
	Children map[NodeID]ItemID `json:"children,omitempty"`
}

// HasParent reports whether the link points at a parent item.
func (l Link) HasParent() bool {
	return l.Parent != nil
}

// HasChildren reports whether the link has at least one child.
func (l Link) HasChildren() bool {
	return len(l.Children) > 0
}

// IsEmpty reports whether the link carries no linkage at all.
func (l Link) IsEmpty() bool {
	return !l.HasParent() && !l.HasChildren()
}

// Child returns the counterpart on node, if any.
func (l Link) Child(node NodeID) (ItemID, bool) {
	item, ok := l.Children[node]
	return item, ok
}

// SetChild records item as the counterpart on node, replacing any previous one.
func (l *Link) SetChild(node NodeID, item ItemID) {
	if l.Children == nil {
		l.Children = make(map[NodeID]ItemID)
	}
	l.Children[node] = item
}

// RemoveChild drops the counterpart on node. Returns false if there was none.
func (l *Link) RemoveChild(node NodeID) bool {
	if _, ok := l.Children[node]; !ok {
		return false
	}
	delete(l.Children, node)
	return true
}

// ChildNodes returns the child nodes in ascending order.
// Cascades visit children in this order so traversal is stable.
func (l Link) ChildNodes() []NodeID {
	return slices.Sorted(maps.Keys(l.Children))
}

// ChildRefs returns the children as references, ordered by node.
func (l Link) ChildRefs() []ItemRef {
	nodes := l.ChildNodes()
	refs := make([]ItemRef, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, ItemRef{Node: n, Item: l.Children[n]})
	}
	return refs
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (l Link) Clone() Link {
	out := Link{}
	if l.Parent != nil {
		p := *l.Parent
		out.Parent = &p
	}
	if l.Children != nil {
		out.Children = maps.Clone(l.Children)
	}
	return out
}

// Item is a unit of content on a node. Only the fields the link engine
// matches on are modelled; everything else belongs to the content store.
type Item struct {
	Ref    ItemRef `json:"ref" yaml:"ref"`
	Name   string  `json:"name" yaml:"name"`     // slug
	Type   string  `json:"type" yaml:"type"`     // e.g. "post", "page"
	Status string  `json:"status" yaml:"status"` // e.g. "publish", "draft", "trash"

	// Parent is the hierarchical parent on the same node (0 = none).
	// This is unrelated to Link.Parent.
	Parent ItemID `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// Filter selects items on one node. Name, Type and Status must match exactly.
type Filter struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Status string  `json:"status"`
	Parent *ItemID `json:"parent,omitempty"` // nil = any parent
}

// Matches reports whether item satisfies the filter.
func (f Filter) Matches(item Item) bool {
	if item.Name != f.Name || item.Type != f.Type || item.Status != f.Status {
		return false
	}
	if f.Parent != nil && item.Parent != *f.Parent {
		return false
	}
	return true
}

// Status values with lifecycle meaning.
const (
	StatusTrash = "trash"
)

// LinkRecord pairs a stored link with the item it belongs to.
type LinkRecord struct {
	Ref  ItemRef `json:"ref"`
	Link Link    `json:"link"`
}
