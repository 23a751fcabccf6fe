package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/ir"
)

// CascadeReport describes what one Propagate call did.
type CascadeReport struct {
	Command ir.Command `json:"command"`
	Origin  ir.ItemRef `json:"origin"`

	// Rejected is set when the guard already held (command, origin); nothing
	// else was done.
	Rejected bool `json:"rejected"`

	// Processed lists the descendants the command succeeded on, depth first.
	Processed []ir.ItemRef `json:"processed"`

	// Skipped lists descendants whose guard entry was already held.
	Skipped []ir.ItemRef `json:"skipped,omitempty"`

	// Failures lists descendants the command failed on. Their subtrees were
	// not visited.
	Failures []ChildFailure `json:"failures,omitempty"`

	// DetachedFrom is the parent the origin was removed from (delete only).
	DetachedFrom *ir.ItemRef `json:"detached_from,omitempty"`
}

// Err returns a PartialFailureError when some children failed, nil otherwise.
func (r *CascadeReport) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	return &PartialFailureError{Command: r.Command, Origin: r.Origin, Failures: r.Failures}
}

// outcome labels the report for metrics.
func (r *CascadeReport) outcome(err error) string {
	switch {
	case err != nil:
		return "error"
	case r.Rejected:
		return "rejected"
	case len(r.Failures) > 0:
		return "partial"
	default:
		return "ok"
	}
}

// cascade is the state of one Propagate call.
type cascade struct {
	cmd    ir.Command
	origin ir.ItemRef
	quota  *QuotaEnforcer
	token  string
	report *CascadeReport
}

// Propagate re-issues cmd on every item linked below ref, depth first.
//
// The returned error is non-nil only for total failure: the origin link
// could not be read or written, or the step quota ran out. Per-child
// failures do not stop the cascade; they are collected in the report and
// surfaced by CascadeReport.Err.
//
// For delete, each child's link is removed before the child is destroyed,
// the origin is detached from its own parent once all children were
// visited, and the origin's link is removed. Children whose destroy failed
// stay listed on the origin's link.
//
// Propagate does not run cmd on ref itself; the caller (normally the
// origin node's own store) does.
func (e *Engine) Propagate(ctx context.Context, cmd ir.Command, ref ir.ItemRef) (*CascadeReport, error) {
	return e.run(ctx, "engine.Propagate", cmd, ref, e.propagate)
}

// Apply runs cmd on ref itself and then cascades it below ref.
//
// This is what an operator action on one child does: the item is treated
// exactly as Propagate treats a child, then detached from its parent. A
// failure on ref itself is a total failure and leaves its link in place.
func (e *Engine) Apply(ctx context.Context, cmd ir.Command, ref ir.ItemRef) (*CascadeReport, error) {
	return e.run(ctx, "engine.Apply", cmd, ref, e.apply)
}

// run holds the guard for (cmd, ref) around fn and records the outcome.
func (e *Engine) run(ctx context.Context, name string, cmd ir.Command, ref ir.ItemRef, fn func(context.Context, *cascade) error) (*CascadeReport, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("propagate: unknown command %q", cmd)
	}
	report := &CascadeReport{Command: cmd, Origin: ref, Processed: []ir.ItemRef{}}

	release, ok := e.guard.Acquire(cmd, ref)
	if !ok {
		report.Rejected = true
		guardRejectionsTotal.WithLabelValues(string(cmd)).Inc()
		cascadesTotal.WithLabelValues(string(cmd), report.outcome(nil)).Inc()
		e.logger.Debug().
			Str("command", string(cmd)).
			Stringer("ref", ref).
			Msg("cascade already in progress, ignoring")
		return report, nil
	}
	defer release()

	op := e.operationFor(ctx, nil)
	ctx = WithOperation(ctx, op)

	ctx, span := e.tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("command", string(cmd)),
			attribute.String("origin", ref.String()),
			attribute.String("operation", op.Token),
		),
	)
	defer span.End()

	quota := NewQuotaEnforcer(e.maxSteps)
	start := time.Now()
	err := fn(ctx, &cascade{
		cmd:    cmd,
		origin: ref,
		quota:  quota,
		token:  op.Token,
		report: report,
	})

	cascadeDuration.WithLabelValues(string(cmd)).Observe(time.Since(start).Seconds())
	cascadesTotal.WithLabelValues(string(cmd), report.outcome(err)).Inc()

	span.SetAttributes(
		attribute.Int("processed", len(report.Processed)),
		attribute.Int("failures", len(report.Failures)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error().Err(err).
			Str("op", op.Token).
			Str("command", string(cmd)).
			Stringer("ref", ref).
			Int("steps", quota.Current()).
			Msg("cascade failed")
		return report, err
	}

	event := e.logger.Info()
	if len(report.Failures) > 0 {
		event = e.logger.Warn()
	}
	event.Str("op", op.Token).
		Int64("seq", op.Seq).
		Str("command", string(cmd)).
		Stringer("ref", ref).
		Int("processed", len(report.Processed)).
		Int("failures", len(report.Failures)).
		Int("steps", quota.Current()).
		Int("max_steps", quota.MaxSteps()).
		Msg("cascade finished")
	return report, nil
}

// apply runs the command on the origin, then on its subtree.
func (e *Engine) apply(ctx context.Context, c *cascade) error {
	var link ir.Link
	err := e.onNode(ctx, c.origin.Node, func(ctx context.Context) error {
		var err error
		link, err = e.links.GetLink(ctx, c.origin)
		if err != nil {
			return storeFailure("get link", c.origin, err)
		}
		return e.applyCommand(ctx, c.cmd, c.origin, link, false)
	})
	if err != nil {
		return err
	}
	c.report.Processed = append(c.report.Processed, c.origin)

	// Depth 2: for delete the origin is gone, so its children are orphans.
	if err := e.visitChildren(ctx, c, c.origin, link, 2); err != nil {
		return err
	}

	if c.cmd == ir.CommandDelete && link.Parent != nil {
		if err := e.detach(ctx, *link.Parent, c.origin); err != nil {
			return err
		}
		parent := *link.Parent
		c.report.DetachedFrom = &parent
	}
	return nil
}

func (e *Engine) propagate(ctx context.Context, c *cascade) error {
	link, err := e.GetLink(ctx, c.origin)
	if err != nil {
		return err
	}

	if err := e.visitChildren(ctx, c, c.origin, link, 1); err != nil {
		return err
	}

	if c.cmd != ir.CommandDelete {
		return nil
	}

	if link.Parent != nil {
		if err := e.detach(ctx, *link.Parent, c.origin); err != nil {
			return err
		}
		parent := *link.Parent
		c.report.DetachedFrom = &parent
	}

	// Children that could not be destroyed stay listed so nothing is
	// silently dropped from the tree.
	remaining := ir.Link{}
	for _, f := range c.report.Failures {
		if f.Parent == c.origin {
			remaining.SetChild(f.Child.Node, f.Child.Item)
		}
	}
	return e.onNode(ctx, c.origin.Node, func(ctx context.Context) error {
		if remaining.HasChildren() {
			if err := e.links.SetLink(ctx, c.origin, remaining); err != nil {
				return storeFailure("set link", c.origin, err)
			}
			return nil
		}
		if err := e.links.DeleteLink(ctx, c.origin); err != nil {
			return storeFailure("delete link", c.origin, err)
		}
		return nil
	})
}

// visitChildren processes every child of parent in node order. Each child
// subtree is finished before the next sibling starts.
func (e *Engine) visitChildren(ctx context.Context, c *cascade, parent ir.ItemRef, link ir.Link, depth int) error {
	for _, child := range link.ChildRefs() {
		if err := c.quota.Check(c.token); err != nil {
			return &Error{Code: ErrCodeQuotaExceeded, Op: "propagate " + string(c.cmd), Ref: c.origin, Err: err}
		}
		if err := e.visitChild(ctx, c, parent, child, depth); err != nil {
			return err
		}
	}
	return nil
}

// visitChild runs the command on one child and descends into its children.
//
// The child's guard entry is held for the whole visit, so the notification
// the child's node fires when the command runs is absorbed.
func (e *Engine) visitChild(ctx context.Context, c *cascade, parent, child ir.ItemRef, depth int) error {
	log := e.logger.With().
		Str("op", c.token).
		Str("command", string(c.cmd)).
		Stringer("parent", parent).
		Stringer("child", child).
		Int("depth", depth).
		Logger()

	release, ok := e.guard.Acquire(c.cmd, child)
	if !ok {
		c.report.Skipped = append(c.report.Skipped, child)
		log.Debug().Msg("child already in progress, skipping")
		return nil
	}
	defer release()

	var childLink ir.Link
	err := e.onNode(ctx, child.Node, func(ctx context.Context) error {
		var err error
		childLink, err = e.links.GetLink(ctx, child)
		if err != nil {
			return storeFailure("get link", child, err)
		}
		return e.applyCommand(ctx, c.cmd, child, childLink, depth > 1)
	})
	if err != nil {
		c.report.Failures = append(c.report.Failures, ChildFailure{Child: child, Parent: parent, Err: err})
		cascadeChildrenTotal.WithLabelValues(string(c.cmd), "failed").Inc()
		log.Warn().Err(err).Msg("child command failed")
		return nil
	}

	c.report.Processed = append(c.report.Processed, child)
	cascadeChildrenTotal.WithLabelValues(string(c.cmd), "ok").Inc()
	log.Debug().Msg("child processed")

	return e.visitChildren(ctx, c, child, childLink, depth+1)
}

// applyCommand runs cmd on child; child's node is active in ctx.
//
// For delete the child's link goes first. If the destroy then fails the
// link is written back so the child stays reachable; when the child's own
// parent was already destroyed (orphaned is true) it comes back without the
// parent pointer.
func (e *Engine) applyCommand(ctx context.Context, cmd ir.Command, child ir.ItemRef, childLink ir.Link, orphaned bool) error {
	switch cmd {
	case ir.CommandDelete:
		if err := e.links.DeleteLink(ctx, child); err != nil {
			return storeFailure("delete link", child, err)
		}
		err := e.items.Destroy(ctx, child)
		if err == nil || content.IsNotFound(err) {
			return nil
		}
		restored := childLink.Clone()
		if orphaned {
			restored.Parent = nil
		}
		if rerr := e.links.SetLink(ctx, child, restored); rerr != nil {
			e.logger.Error().Err(rerr).Stringer("child", child).Msg("restore link after failed destroy")
		}
		return storeFailure("destroy", child, err)
	case ir.CommandTrash:
		if err := e.items.Trash(ctx, child); err != nil {
			return itemFailure("trash", child, err)
		}
		return nil
	case ir.CommandUntrash:
		if err := e.items.Restore(ctx, child); err != nil {
			return itemFailure("restore", child, err)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// detach removes child from parent's children, writing while parent's node
// is active. A parent that no longer lists child is left untouched.
func (e *Engine) detach(ctx context.Context, parent, child ir.ItemRef) error {
	return e.onNode(ctx, parent.Node, func(ctx context.Context) error {
		link, err := e.links.GetLink(ctx, parent)
		if err != nil {
			return storeFailure("get link", parent, err)
		}
		if id, ok := link.Child(child.Node); !ok || id != child.Item {
			return nil
		}
		link.RemoveChild(child.Node)
		if err := e.links.SetLink(ctx, parent, link); err != nil {
			return storeFailure("set link", parent, err)
		}
		return nil
	})
}
