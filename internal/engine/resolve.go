package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
)

// Lookup returns the counterpart of origin on target without creating one.
// An item is its own counterpart on its own node.
func (e *Engine) Lookup(ctx context.Context, origin ir.ItemRef, target ir.NodeID) (ir.ItemID, bool, error) {
	if target == origin.Node {
		return origin.Item, true, nil
	}
	link, err := e.GetLink(ctx, origin)
	if err != nil {
		return 0, false, err
	}
	id, ok := link.Child(target)
	return id, ok, nil
}

// ResolveOrCreate returns the counterpart of origin on target, creating it
// with dup when none is linked.
//
// Order: operation cache, origin's link, the resolve_miss hook, then dup.
// dup is called at most once per (origin, target) within op and is never
// retried; links are written only after it succeeds. A nil op uses the
// operation in ctx, or a fresh one.
//
// dup may resolve other pairs through the same operation (a parent item,
// say) but must not resolve (origin, target) itself.
func (e *Engine) ResolveOrCreate(ctx context.Context, op *Operation, origin ir.ItemRef, target ir.NodeID, dup content.Duplicator) (ir.ItemID, error) {
	op = e.operationFor(ctx, op)
	ctx = WithOperation(ctx, op)

	if target == origin.Node {
		resolutionsTotal.WithLabelValues("same_node").Inc()
		return origin.Item, nil
	}
	if id, ok := op.Cached(origin, target); ok {
		resolutionsTotal.WithLabelValues("cache").Inc()
		return id, nil
	}

	// Concurrent callers sharing op wait for one resolution.
	key := fmt.Sprintf("%s>%d", origin, target)
	v, err, _ := op.flight.Do(key, func() (any, error) {
		if id, ok := op.Cached(origin, target); ok {
			return id, nil
		}
		return e.resolve(ctx, op, origin, target, dup)
	})
	if err != nil {
		resolutionsTotal.WithLabelValues("error").Inc()
		return 0, err
	}
	return v.(ir.ItemID), nil
}

func (e *Engine) resolve(ctx context.Context, op *Operation, origin ir.ItemRef, target ir.NodeID, dup content.Duplicator) (ir.ItemID, error) {
	ctx, span := e.tracer.Start(ctx, "engine.ResolveOrCreate",
		trace.WithAttributes(
			attribute.String("origin", origin.String()),
			attribute.Int64("target", int64(target)),
			attribute.String("operation", op.Token),
		),
	)
	defer span.End()

	log := e.logger.With().
		Str("op", op.Token).
		Stringer("origin", origin).
		Int64("target", int64(target)).
		Logger()

	link, err := e.GetLink(ctx, origin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	if id, ok := link.Child(target); ok {
		op.remember(origin, target, id)
		resolutionsTotal.WithLabelValues("link").Inc()
		span.SetAttributes(attribute.String("source", "link"))
		return id, nil
	}

	results, err := e.dispatch(ctx, hooks.EventResolveMiss, hooks.DuplicateRequest{Origin: origin, Target: target})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, &Error{Code: ErrCodeDuplicationFailure, Op: "resolve miss hook", Ref: origin, Err: err}
	}
	for _, r := range results {
		if id, ok := r.(ir.ItemID); ok && id > 0 {
			// A plugin answered; the link store is left alone.
			op.remember(origin, target, id)
			resolutionsTotal.WithLabelValues("hook").Inc()
			span.SetAttributes(attribute.String("source", "hook"))
			log.Debug().Int64("item", int64(id)).Msg("counterpart supplied by hook")
			return id, nil
		}
	}

	if dup == nil {
		return 0, &Error{Code: ErrCodeDuplicationFailure, Op: "duplicate", Ref: origin, Err: fmt.Errorf("no duplicator for node %d", target)}
	}
	id, err := dup.Duplicate(ctx, origin, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Msg("duplication failed")
		return 0, &Error{Code: ErrCodeDuplicationFailure, Op: "duplicate", Ref: origin, Err: err}
	}
	if id < 1 {
		return 0, &Error{Code: ErrCodeDuplicationFailure, Op: "duplicate", Ref: origin, Err: fmt.Errorf("duplicator returned invalid item id %d", id)}
	}
	copyRef := ir.ItemRef{Node: target, Item: id}

	// Child side first: if the origin write then fails, the copy's previous
	// link is put back and neither side names the other.
	prevCopy, err := e.GetLink(ctx, copyRef)
	if err != nil {
		return 0, err
	}
	copyLink := prevCopy.Clone()
	copyLink.Parent = &origin
	if err := e.setLink(ctx, copyRef, copyLink); err != nil {
		span.RecordError(err)
		return 0, err
	}

	// Re-read: the duplicator may have touched the origin's link.
	link, err = e.GetLink(ctx, origin)
	if err == nil {
		link.SetChild(target, id)
		err = e.setLink(ctx, origin, link)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if uerr := e.setLink(ctx, copyRef, prevCopy); uerr != nil {
			log.Error().Err(uerr).Stringer("copy", copyRef).Msg("undo copy link")
		}
		return 0, err
	}

	op.remember(origin, target, id)
	resolutionsTotal.WithLabelValues("duplicated").Inc()
	span.SetAttributes(attribute.String("source", "duplicated"))
	log.Info().Int64("item", int64(id)).Msg("created counterpart")
	return id, nil
}
