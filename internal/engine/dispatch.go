package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
)

// Notification is a lifecycle event a node's store fired for one item.
type Notification struct {
	Command ir.Command `json:"command"`
	Ref     ir.ItemRef `json:"ref"`
}

// Outcome values reported per child node by operator actions. Scanner
// actions report ScanOutcome values instead.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// NodeResult is the result of an action for one child node.
type NodeResult struct {
	Node    ir.NodeID `json:"node"`
	Item    ir.ItemID `json:"item,omitempty"`
	Outcome string    `json:"outcome"`
	Error   string    `json:"error,omitempty"`

	err error
}

// Err returns the failure behind a failed result.
func (r NodeResult) Err() error {
	return r.err
}

// ActionReport is the per-node result of one operator action.
type ActionReport struct {
	Action  ir.Action    `json:"action"`
	Results []NodeResult `json:"results"`

	// Adopted counts scanner adoptions (find_unlinked only).
	Adopted int `json:"adopted,omitempty"`
}

// Failed returns the results whose outcome is a failure.
func (r *ActionReport) Failed() []NodeResult {
	var out []NodeResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed || res.Outcome == string(ScanFailed) {
			out = append(out, res)
		}
	}
	return out
}

// Err returns a PartialFailureError when some nodes failed, nil otherwise.
func (r *ActionReport) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	pf := &PartialFailureError{Command: ir.Command(r.Action.Kind), Origin: r.Action.Origin}
	for _, res := range failed {
		pf.Failures = append(pf.Failures, ChildFailure{
			Child:  ir.ItemRef{Node: res.Node, Item: res.Item},
			Parent: r.Action.Origin,
			Err:    res.err,
		})
	}
	return pf
}

func (r *ActionReport) add(res NodeResult) {
	if res.err != nil {
		res.Error = res.err.Error()
	}
	r.Results = append(r.Results, res)
}

// Dispatcher maps lifecycle notifications and operator actions onto engine
// calls. It is the only place where the hook bus drives the engine.
type Dispatcher struct {
	engine *Engine
}

func newDispatcher(e *Engine) *Dispatcher {
	return &Dispatcher{engine: e}
}

// Notify cascades a lifecycle notification. Re-entrant notifications for an
// item already being cascaded come back with Rejected set.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) (*CascadeReport, error) {
	return d.engine.Propagate(ctx, n.Command, n.Ref)
}

// Bind registers the dispatcher for every lifecycle notification on bus.
//
// A handler returns its CascadeReport. It fails only on total failure, which
// aborts the store operation that fired the notification; partial failures
// do not. Bind returns the first registration error.
func (d *Dispatcher) Bind(bus *hooks.Bus) error {
	for _, cmd := range ir.Commands {
		event := hooks.CommandEvent(cmd)
		err := bus.Register(event, func(ctx context.Context, payload any) (any, error) {
			ev, ok := payload.(hooks.ItemEvent)
			if !ok {
				return nil, fmt.Errorf("%s: unexpected payload %T", event, payload)
			}
			return d.Notify(ctx, Notification{Command: cmd, Ref: ev.Ref})
		})
		if err != nil {
			return fmt.Errorf("bind %s: %w", event, err)
		}
	}
	return nil
}

// Handle runs one operator action against the children of a.Origin.
//
// The returned error covers invalid actions, a missing origin item and
// failures reading or writing the origin's link. Per-child problems are
// reported in the ActionReport.
func (d *Dispatcher) Handle(ctx context.Context, a ir.Action) (*ActionReport, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	e := d.engine
	report := &ActionReport{Action: a, Results: []NodeResult{}}

	if _, err := e.fetch(ctx, a.Origin); err != nil {
		return report, err
	}

	op := e.operationFor(ctx, nil)
	ctx = WithOperation(ctx, op)
	log := e.logger.With().
		Str("op", op.Token).
		Str("action", string(a.Kind)).
		Stringer("origin", a.Origin).
		Logger()

	var err error
	switch a.Kind {
	case ir.ActionFindUnlinked:
		err = d.findUnlinked(ctx, a, report)
	case ir.ActionUnlink:
		err = d.unlink(ctx, a, report)
	default:
		cmd, _ := a.Kind.Command()
		err = d.applyToChildren(ctx, cmd, a, report)
	}
	if err != nil {
		log.Error().Err(err).Msg("action failed")
		return report, err
	}

	log.Info().
		Int("nodes", len(report.Results)).
		Int("failed", len(report.Failed())).
		Msg("action finished")
	return report, nil
}

// HandleBulk runs the same action against several origin items on node.
// Item ids below 1 are skipped. Every handled item gets a report; errors are
// joined.
func (d *Dispatcher) HandleBulk(ctx context.Context, kind ir.ActionKind, node ir.NodeID, items []ir.ItemID, nodes []ir.NodeID) ([]*ActionReport, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown action %q", kind)
	}
	var (
		reports []*ActionReport
		errs    []error
	)
	for _, id := range items {
		if id < 1 {
			continue
		}
		a := ir.Action{Kind: kind, Origin: ir.ItemRef{Node: node, Item: id}, Nodes: nodes}
		report, err := d.Handle(ctx, a)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", kind, a.Origin, err))
		}
	}
	return reports, errors.Join(errs...)
}

// applyToChildren runs cmd on each selected child and cascades below it.
// Deleted children are detached from the origin by the cascade itself.
func (d *Dispatcher) applyToChildren(ctx context.Context, cmd ir.Command, a ir.Action, report *ActionReport) error {
	link, err := d.engine.GetLink(ctx, a.Origin)
	if err != nil {
		return err
	}
	for _, child := range link.ChildRefs() {
		if !a.Selects(child.Node) {
			continue
		}
		res := NodeResult{Node: child.Node, Item: child.Item, Outcome: OutcomeOK}
		cr, err := d.engine.Apply(ctx, cmd, child)
		switch {
		case err != nil:
			res.Outcome = OutcomeFailed
			res.err = err
		case cr.Rejected:
			res.Outcome = OutcomeSkipped
		case cr.Err() != nil:
			res.Outcome = OutcomeFailed
			res.err = cr.Err()
		}
		report.add(res)
	}
	return nil
}

// unlink detaches the selected children from the origin. Without a node
// filter every child is detached and so is the origin from its own parent.
func (d *Dispatcher) unlink(ctx context.Context, a ir.Action, report *ActionReport) error {
	e := d.engine
	link, err := e.GetLink(ctx, a.Origin)
	if err != nil {
		return err
	}

	for _, child := range link.ChildRefs() {
		if !a.Selects(child.Node) {
			continue
		}
		res := NodeResult{Node: child.Node, Item: child.Item, Outcome: OutcomeOK}
		if err := d.clearParent(ctx, child, a.Origin); err != nil {
			res.Outcome = OutcomeFailed
			res.err = err
			report.add(res)
			continue
		}
		link.RemoveChild(child.Node)
		report.add(res)
	}

	if len(a.Nodes) == 0 && link.Parent != nil {
		if err := e.detach(ctx, *link.Parent, a.Origin); err != nil {
			return err
		}
		link.Parent = nil
	}
	return e.setLink(ctx, a.Origin, link)
}

// clearParent drops child's parent pointer if it still points at parent.
func (d *Dispatcher) clearParent(ctx context.Context, child, parent ir.ItemRef) error {
	e := d.engine
	link, err := e.GetLink(ctx, child)
	if err != nil {
		return err
	}
	if link.Parent == nil || *link.Parent != parent {
		return nil
	}
	link.Parent = nil
	return e.setLink(ctx, child, link)
}

func (d *Dispatcher) findUnlinked(ctx context.Context, a ir.Action, report *ActionReport) error {
	scan, err := d.engine.FindUnlinkedChildren(ctx, a.Origin, a.Nodes)
	if err != nil {
		return err
	}
	for _, ns := range scan.Nodes {
		report.add(NodeResult{Node: ns.Node, Item: ns.Item, Outcome: string(ns.Outcome), err: ns.Err})
	}
	report.Adopted = scan.Adopted()
	return nil
}
