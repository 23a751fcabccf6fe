package engine

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
)

// ScanOutcome is the scanner's verdict for one target node.
type ScanOutcome string

const (
	// ScanAdopted means exactly one unlinked candidate was found and linked.
	ScanAdopted ScanOutcome = "adopted"

	// ScanAmbiguous means more than one candidate remained; nothing was linked.
	ScanAmbiguous ScanOutcome = "ambiguous"

	// ScanNone means no candidate matched.
	ScanNone ScanOutcome = "none"

	// ScanConflict means the only candidate already has a parent or children.
	ScanConflict ScanOutcome = "conflict"

	// ScanAlreadyLinked means the origin already has a child on the node.
	ScanAlreadyLinked ScanOutcome = "already_linked"

	// ScanFailed means a store read or write failed for this node.
	ScanFailed ScanOutcome = "failed"
)

// NodeScan is the result for one target node.
type NodeScan struct {
	Node       ir.NodeID   `json:"node"`
	Outcome    ScanOutcome `json:"outcome"`
	Item       ir.ItemID   `json:"item,omitempty"`
	Candidates int         `json:"candidates"`
	Err        error       `json:"-"`
}

// ScanReport describes one FindUnlinkedChildren call.
type ScanReport struct {
	// Requested is the item the scan was asked for.
	Requested ir.ItemRef `json:"requested"`

	// Origin is the item the scan ran from: Requested, or its linked parent.
	Origin ir.ItemRef `json:"origin"`

	Nodes []NodeScan `json:"nodes"`
}

// Adopted returns how many candidates were linked.
func (r *ScanReport) Adopted() int {
	n := 0
	for _, ns := range r.Nodes {
		if ns.Outcome == ScanAdopted {
			n++
		}
	}
	return n
}

// FindUnlinkedChildren looks on each target node for an existing item that
// matches origin by name, type and status and links it as origin's child.
//
// If origin is itself a linked child, the scan runs from its parent so
// discovery always starts at the root of a broadcast tree. An empty targets
// list means every node the engine knows about. The origin's node and nodes
// where the origin already has a child are skipped.
//
// A candidate is adopted only when it is the single match and has neither
// a parent nor children of its own. Anything else is reported, not raised.
func (e *Engine) FindUnlinkedChildren(ctx context.Context, origin ir.ItemRef, targets []ir.NodeID) (*ScanReport, error) {
	op := e.operationFor(ctx, nil)
	ctx = WithOperation(ctx, op)

	ctx, span := e.tracer.Start(ctx, "engine.FindUnlinkedChildren",
		trace.WithAttributes(
			attribute.String("origin", origin.String()),
			attribute.String("operation", op.Token),
		),
	)
	defer span.End()

	report := &ScanReport{Requested: origin, Origin: origin, Nodes: []NodeScan{}}

	link, err := e.GetLink(ctx, origin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}
	if link.Parent != nil {
		root := *link.Parent
		e.logger.Debug().
			Str("op", op.Token).
			Stringer("origin", origin).
			Stringer("root", root).
			Msg("scanning from linked parent")
		report.Origin = root
		origin = root
		if link, err = e.GetLink(ctx, origin); err != nil {
			return report, err
		}
	}

	item, err := e.fetch(ctx, origin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	if len(targets) == 0 {
		if targets, err = e.defaultTargets(ctx, origin); err != nil {
			return report, err
		}
	}

	seen := make(map[ir.NodeID]bool)
	for _, target := range targets {
		if target == origin.Node || seen[target] {
			continue
		}
		seen[target] = true

		if id, ok := link.Child(target); ok {
			report.Nodes = append(report.Nodes, NodeScan{Node: target, Outcome: ScanAlreadyLinked, Item: id})
			scanOutcomesTotal.WithLabelValues(string(ScanAlreadyLinked)).Inc()
			continue
		}

		ns := e.scanNode(ctx, origin, item, target)
		if ns.Outcome == ScanAdopted {
			link.SetChild(target, ns.Item)
		}
		scanOutcomesTotal.WithLabelValues(string(ns.Outcome)).Inc()

		ev := e.logger.Debug()
		switch ns.Outcome {
		case ScanAdopted:
			ev = e.logger.Info()
		case ScanFailed:
			ev = e.logger.Warn().Err(ns.Err)
		}
		ev.Str("op", op.Token).
			Stringer("origin", origin).
			Int64("target", int64(target)).
			Str("outcome", string(ns.Outcome)).
			Int("candidates", ns.Candidates).
			Msg("scanned node")

		report.Nodes = append(report.Nodes, ns)
	}

	span.SetAttributes(attribute.Int("adopted", report.Adopted()))
	return report, nil
}

// scanNode searches target for a counterpart of item and adopts it when
// the match is unambiguous and unlinked.
func (e *Engine) scanNode(ctx context.Context, origin ir.ItemRef, item ir.Item, target ir.NodeID) NodeScan {
	ns := NodeScan{Node: target}
	fail := func(err error) NodeScan {
		ns.Outcome = ScanFailed
		ns.Err = err
		return ns
	}

	filter := ir.Filter{Name: ir.NormalizeSlug(item.Name), Type: item.Type, Status: item.Status}
	candidates, err := e.queryCandidates(ctx, origin, target, filter)
	if err != nil {
		return fail(err)
	}

	// Same-named items under different parents: narrow by the counterpart
	// of the origin's hierarchical parent.
	if len(candidates) > 1 && item.Parent != 0 {
		parentRef := ir.ItemRef{Node: origin.Node, Item: item.Parent}
		if counterpart, ok, err := e.parentCounterpart(ctx, parentRef, target); err != nil {
			return fail(err)
		} else if ok {
			filter.Parent = &counterpart
			if candidates, err = e.queryCandidates(ctx, origin, target, filter); err != nil {
				return fail(err)
			}
		}
	}

	ns.Candidates = len(candidates)
	switch len(candidates) {
	case 0:
		ns.Outcome = ScanNone
		return ns
	case 1:
	default:
		ns.Outcome = ScanAmbiguous
		return ns
	}

	candidate := candidates[0].Ref
	candLink, err := e.GetLink(ctx, candidate)
	if err != nil {
		return fail(err)
	}
	if !candLink.IsEmpty() {
		ns.Outcome = ScanConflict
		ns.Item = candidate.Item
		return ns
	}

	candLink.Parent = &origin
	if err := e.setLink(ctx, candidate, candLink); err != nil {
		return fail(err)
	}
	if err := e.adoptChild(ctx, origin, candidate); err != nil {
		// Undo the child side so no half link is left behind.
		if uerr := e.setLink(ctx, candidate, ir.Link{}); uerr != nil {
			e.logger.Error().Err(uerr).Stringer("candidate", candidate).Msg("undo adoption")
		}
		return fail(err)
	}

	ns.Outcome = ScanAdopted
	ns.Item = candidate.Item
	return ns
}

// adoptChild adds child to origin's children, re-reading origin's link so
// earlier adoptions in the same scan are kept.
func (e *Engine) adoptChild(ctx context.Context, origin, child ir.ItemRef) error {
	link, err := e.GetLink(ctx, origin)
	if err != nil {
		return err
	}
	link.SetChild(child.Node, child.Item)
	return e.setLink(ctx, origin, link)
}

// queryCandidates queries target with target active, then lets plugins
// narrow the result.
func (e *Engine) queryCandidates(ctx context.Context, origin ir.ItemRef, target ir.NodeID, f ir.Filter) ([]ir.Item, error) {
	var items []ir.Item
	err := e.onNode(ctx, target, func(ctx context.Context) error {
		var err error
		items, err = e.items.Query(ctx, target, f)
		if err != nil {
			return storeFailure("query", ir.ItemRef{Node: target}, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results, err := e.dispatch(ctx, hooks.EventFilterCandidates, hooks.Candidates{Origin: origin, Target: target, Candidates: slices.Clone(items)})
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if narrowed, ok := r.([]ir.Item); ok {
			items = narrowed
		}
	}
	return items, nil
}

// parentCounterpart finds the item on target that corresponds to parent:
// its linked child there, or its own linked parent if that lives on target.
func (e *Engine) parentCounterpart(ctx context.Context, parent ir.ItemRef, target ir.NodeID) (ir.ItemID, bool, error) {
	link, err := e.GetLink(ctx, parent)
	if err != nil {
		return 0, false, err
	}
	if id, ok := link.Child(target); ok {
		return id, true, nil
	}
	if link.Parent != nil && link.Parent.Node == target {
		return link.Parent.Item, true, nil
	}
	return 0, false, nil
}

// defaultTargets lists every known node, then lets plugins narrow the list.
func (e *Engine) defaultTargets(ctx context.Context, origin ir.ItemRef) ([]ir.NodeID, error) {
	var nodes []ir.NodeID
	if e.nodes != nil {
		var err error
		if nodes, err = e.nodes.Nodes(ctx); err != nil {
			return nil, storeFailure("list nodes", origin, err)
		}
	}
	results, err := e.dispatch(ctx, hooks.EventScanNodes, hooks.ScanNodes{Origin: origin, Nodes: slices.Clone(nodes)})
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if narrowed, ok := r.([]ir.NodeID); ok {
			nodes = narrowed
		}
	}
	return nodes, nil
}
