// Package memstore provides an in-memory multi-node content store and link
// store. It backs scenario tests and dry runs, records every mutation in an
// op trace, and can inject failures per operation and item.
//
// Every operation that names an item checks that the context's active node,
// when set, is the item's node.
package memstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/ir"
)

// OpKind names a recorded mutation.
type OpKind string

const (
	OpCreate     OpKind = "create"
	OpDestroy    OpKind = "destroy"
	OpTrash      OpKind = "trash"
	OpRestore    OpKind = "restore"
	OpSetLink    OpKind = "set_link"
	OpDeleteLink OpKind = "delete_link"
)

// IsContent reports whether the op mutates an item rather than a link.
func (k OpKind) IsContent() bool {
	switch k {
	case OpCreate, OpDestroy, OpTrash, OpRestore:
		return true
	default:
		return false
	}
}

// Op is one recorded mutation.
type Op struct {
	Kind OpKind
	Ref  ir.ItemRef
}

type failKey struct {
	kind OpKind
	ref  ir.ItemRef
}

type node struct {
	items      map[ir.ItemID]ir.Item
	prevStatus map[ir.ItemID]string
	links      map[ir.ItemID]ir.Link
}

func newNode() *node {
	return &node{
		items:      make(map[ir.ItemID]ir.Item),
		prevStatus: make(map[ir.ItemID]string),
		links:      make(map[ir.ItemID]ir.Link),
	}
}

// Store is the in-memory implementation.
type Store struct {
	mu       sync.Mutex
	nodes    map[ir.NodeID]*node
	failures map[failKey]error
	trace    []Op
}

// New creates a store holding the given nodes.
func New(nodes ...ir.NodeID) *Store {
	s := &Store{
		nodes:    make(map[ir.NodeID]*node),
		failures: make(map[failKey]error),
	}
	for _, n := range nodes {
		s.nodes[n] = newNode()
	}
	return s
}

// AddNode registers an empty node. Existing nodes are left untouched.
func (s *Store) AddNode(id ir.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		s.nodes[id] = newNode()
	}
}

// RemoveNode drops a node with all its items and links.
func (s *Store) RemoveNode(id ir.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// Nodes implements content.NodeLister.
func (s *Store) Nodes(ctx context.Context) ([]ir.NodeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.nodes)), nil
}

// Put stores item as-is under item.Ref, creating the node if needed.
// It is a fixture helper and is not traced.
func (s *Store) Put(item ir.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[item.Ref.Node]
	if !ok {
		n = newNode()
		s.nodes[item.Ref.Node] = n
	}
	item.Name = ir.NormalizeSlug(item.Name)
	n.items[item.Ref.Item] = item
}

// PutLink stores a link without tracing. Fixture helper.
func (s *Store) PutLink(ref ir.ItemRef, link ir.Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[ref.Node]; ok {
		n.links[ref.Item] = link.Clone()
	}
}

// Fail makes every subsequent kind operation on ref return err.
func (s *Store) Fail(kind OpKind, ref ir.ItemRef, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[failKey{kind, ref}] = err
}

// ClearFailures removes all injected failures.
func (s *Store) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.failures)
}

// Trace returns a copy of the recorded mutations.
func (s *Store) Trace() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trace)
}

// ResetTrace clears the recorded mutations.
func (s *Store) ResetTrace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = nil
}

// Count returns how many times kind was recorded for ref.
func (s *Store) Count(kind OpKind, ref ir.ItemRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, op := range s.trace {
		if op.Kind == kind && op.Ref == ref {
			n++
		}
	}
	return n
}

// Fetch implements content.Store.
func (s *Store) Fetch(ctx context.Context, ref ir.ItemRef) (ir.Item, error) {
	if err := checkNode(ctx, ref.Node); err != nil {
		return ir.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.item(ref)
	if !ok {
		return ir.Item{}, fmt.Errorf("fetch %s: %w", ref, content.ErrNotFound)
	}
	return item, nil
}

// Query implements content.Store.
func (s *Store) Query(ctx context.Context, nodeID ir.NodeID, f ir.Filter) ([]ir.Item, error) {
	if err := checkNode(ctx, nodeID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("query node %d: unknown node", nodeID)
	}
	f.Name = ir.NormalizeSlug(f.Name)
	var out []ir.Item
	for _, id := range slices.Sorted(maps.Keys(n.items)) {
		if item := n.items[id]; f.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// Create implements content.Store.
func (s *Store) Create(ctx context.Context, nodeID ir.NodeID, item ir.Item) (ir.ItemID, error) {
	if err := checkNode(ctx, nodeID); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[nodeID]
	if !ok {
		return 0, fmt.Errorf("create on node %d: unknown node", nodeID)
	}
	var next ir.ItemID = 1
	for id := range n.items {
		if id >= next {
			next = id + 1
		}
	}
	ref := ir.ItemRef{Node: nodeID, Item: next}
	if err := s.failure(OpCreate, ir.ItemRef{Node: nodeID}); err != nil {
		return 0, err
	}
	item.Ref = ref
	item.Name = ir.NormalizeSlug(item.Name)
	n.items[next] = item
	s.trace = append(s.trace, Op{Kind: OpCreate, Ref: ref})
	return next, nil
}

// Destroy implements content.Store.
func (s *Store) Destroy(ctx context.Context, ref ir.ItemRef) error {
	return s.mutate(ctx, OpDestroy, ref, func(n *node, item ir.Item) {
		delete(n.items, ref.Item)
		delete(n.prevStatus, ref.Item)
	})
}

// Trash implements content.Store.
func (s *Store) Trash(ctx context.Context, ref ir.ItemRef) error {
	return s.mutate(ctx, OpTrash, ref, func(n *node, item ir.Item) {
		if item.Status == ir.StatusTrash {
			return
		}
		n.prevStatus[ref.Item] = item.Status
		item.Status = ir.StatusTrash
		n.items[ref.Item] = item
	})
}

// Restore implements content.Store. Items without a remembered status come
// back as drafts.
func (s *Store) Restore(ctx context.Context, ref ir.ItemRef) error {
	return s.mutate(ctx, OpRestore, ref, func(n *node, item ir.Item) {
		if item.Status != ir.StatusTrash {
			return
		}
		prev, ok := n.prevStatus[ref.Item]
		if !ok {
			prev = "draft"
		}
		delete(n.prevStatus, ref.Item)
		item.Status = prev
		n.items[ref.Item] = item
	})
}

// GetLink returns the link of ref; a missing link is empty.
func (s *Store) GetLink(ctx context.Context, ref ir.ItemRef) (ir.Link, error) {
	if err := checkNode(ctx, ref.Node); err != nil {
		return ir.Link{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[ref.Node]
	if !ok {
		return ir.Link{}, nil
	}
	return n.links[ref.Item].Clone(), nil
}

// SetLink replaces the link of ref. An empty link removes the record.
func (s *Store) SetLink(ctx context.Context, ref ir.ItemRef, link ir.Link) error {
	if err := checkNode(ctx, ref.Node); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpSetLink, ref); err != nil {
		return err
	}
	n, ok := s.nodes[ref.Node]
	if !ok {
		return fmt.Errorf("set link %s: unknown node", ref)
	}
	if link.IsEmpty() {
		delete(n.links, ref.Item)
	} else {
		n.links[ref.Item] = link.Clone()
	}
	s.trace = append(s.trace, Op{Kind: OpSetLink, Ref: ref})
	return nil
}

// DeleteLink removes the link of ref. Deleting a missing link is not an error.
func (s *Store) DeleteLink(ctx context.Context, ref ir.ItemRef) error {
	if err := checkNode(ctx, ref.Node); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpDeleteLink, ref); err != nil {
		return err
	}
	if n, ok := s.nodes[ref.Node]; ok {
		delete(n.links, ref.Item)
	}
	s.trace = append(s.trace, Op{Kind: OpDeleteLink, Ref: ref})
	return nil
}

// Links returns every stored link ordered by node then item.
func (s *Store) Links(ctx context.Context) ([]ir.LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ir.LinkRecord
	for _, nid := range slices.Sorted(maps.Keys(s.nodes)) {
		n := s.nodes[nid]
		for _, id := range slices.Sorted(maps.Keys(n.links)) {
			out = append(out, ir.LinkRecord{Ref: ir.ItemRef{Node: nid, Item: id}, Link: n.links[id].Clone()})
		}
	}
	return out, nil
}

func (s *Store) mutate(ctx context.Context, kind OpKind, ref ir.ItemRef, apply func(*node, ir.Item)) error {
	if err := checkNode(ctx, ref.Node); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(kind, ref); err != nil {
		return err
	}
	item, ok := s.item(ref)
	if !ok {
		return fmt.Errorf("%s %s: %w", kind, ref, content.ErrNotFound)
	}
	apply(s.nodes[ref.Node], item)
	s.trace = append(s.trace, Op{Kind: kind, Ref: ref})
	return nil
}

func (s *Store) item(ref ir.ItemRef) (ir.Item, bool) {
	n, ok := s.nodes[ref.Node]
	if !ok {
		return ir.Item{}, false
	}
	item, ok := n.items[ref.Item]
	return item, ok
}

func (s *Store) failure(kind OpKind, ref ir.ItemRef) error {
	if err, ok := s.failures[failKey{kind, ref}]; ok {
		return fmt.Errorf("%s %s: %w", kind, ref, err)
	}
	return nil
}

func checkNode(ctx context.Context, want ir.NodeID) error {
	if active, ok := content.NodeFrom(ctx); ok && active != want {
		return fmt.Errorf("operation on node %d while node %d is active", want, active)
	}
	return nil
}
