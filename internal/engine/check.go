package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/linkcast/internal/ir"
)

// ViolationKind names a broken link invariant.
type ViolationKind string

const (
	// ViolationCycle: following parent pointers revisits an item.
	ViolationCycle ViolationKind = "cycle"

	// ViolationMissingChild: an item names a parent that does not list it.
	ViolationMissingChild ViolationKind = "missing_child"

	// ViolationMissingParent: an item lists a child whose parent is not it.
	ViolationMissingParent ViolationKind = "missing_parent"

	// ViolationSameNodeChild: an item lists a child on its own node.
	ViolationSameNodeChild ViolationKind = "same_node_child"
)

// Violation is one broken invariant found by Check.
type Violation struct {
	Kind    ViolationKind `json:"kind"`
	Ref     ir.ItemRef    `json:"ref"`
	Related ir.ItemRef    `json:"related"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s / %s", v.Kind, v.Ref, v.Related)
}

// ErrNoLinkLister is returned by Check and Prune when the link store cannot
// enumerate its links.
var ErrNoLinkLister = errors.New("link store does not list links")

// Check verifies the forest and bidirectional invariants over every stored
// link. One child per node holds by construction of ir.Link.
func (e *Engine) Check(ctx context.Context) ([]Violation, error) {
	lister, ok := e.links.(LinkLister)
	if !ok {
		return nil, ErrNoLinkLister
	}
	records, err := lister.Links(ctx)
	if err != nil {
		return nil, storeFailure("list links", ir.ItemRef{}, err)
	}

	byRef := make(map[ir.ItemRef]ir.Link, len(records))
	for _, r := range records {
		byRef[r.Ref] = r.Link
	}

	violations := []Violation{}
	for _, r := range records {
		for _, child := range r.Link.ChildRefs() {
			if child.Node == r.Ref.Node {
				violations = append(violations, Violation{Kind: ViolationSameNodeChild, Ref: r.Ref, Related: child})
			}
			cl := byRef[child]
			if cl.Parent == nil || *cl.Parent != r.Ref {
				violations = append(violations, Violation{Kind: ViolationMissingParent, Ref: r.Ref, Related: child})
			}
		}
		if p := r.Link.Parent; p != nil {
			if id, ok := byRef[*p].Child(r.Ref.Node); !ok || id != r.Ref.Item {
				violations = append(violations, Violation{Kind: ViolationMissingChild, Ref: r.Ref, Related: *p})
			}
		}
		if cycleAt, ok := findCycle(byRef, r.Ref); ok && cycleAt == r.Ref {
			violations = append(violations, Violation{Kind: ViolationCycle, Ref: r.Ref, Related: *r.Link.Parent})
		}
	}

	e.logger.Debug().
		Int("links", len(records)).
		Int("violations", len(violations)).
		Msg("checked link forest")
	return violations, nil
}

// findCycle walks parent pointers from start and returns the first item
// seen twice.
func findCycle(links map[ir.ItemRef]ir.Link, start ir.ItemRef) (ir.ItemRef, bool) {
	seen := map[ir.ItemRef]bool{start: true}
	cur := start
	for {
		p := links[cur].Parent
		if p == nil {
			return ir.ItemRef{}, false
		}
		if seen[*p] {
			return *p, true
		}
		seen[*p] = true
		cur = *p
	}
}

// Prune drops children of ref that live on nodes the node lister no longer
// knows and returns them. Links stored on a vanished node are not touched.
func (e *Engine) Prune(ctx context.Context, ref ir.ItemRef) ([]ir.ItemRef, error) {
	if e.nodes == nil {
		return nil, errors.New("prune: no node lister configured")
	}
	known, err := e.nodes.Nodes(ctx)
	if err != nil {
		return nil, storeFailure("list nodes", ref, err)
	}

	link, err := e.GetLink(ctx, ref)
	if err != nil {
		return nil, err
	}

	var removed []ir.ItemRef
	for _, child := range link.ChildRefs() {
		if slices.Contains(known, child.Node) {
			continue
		}
		link.RemoveChild(child.Node)
		removed = append(removed, child)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if err := e.setLink(ctx, ref, link); err != nil {
		return nil, err
	}
	e.logger.Info().
		Stringer("ref", ref).
		Int("removed", len(removed)).
		Msg("pruned children on vanished nodes")
	return removed, nil
}
