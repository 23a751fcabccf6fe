package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/memstore"
	"github.com/roach88/linkcast/internal/testutil"
)

// Harness is the scenario execution environment: an in-memory store with
// the engine wired over it, the way the CLI wires it over SQLite.
type Harness struct {
	store  *memstore.Store
	bus    *hooks.Bus
	items  *content.Notifier
	engine *engine.Engine
	clock  *testutil.DeterministicClock
	logger zerolog.Logger
}

// Run executes a scenario and returns the result.
//
// The returned error covers fixtures that cannot be set up; failed
// expectations and assertions are recorded in the result.
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{Store: h.store, Engine: h.engine, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) (*Harness, error) {
	st := memstore.New(scenario.Nodes...)
	for _, f := range scenario.Items {
		ref, err := ir.ParseRef(f.Ref)
		if err != nil {
			return nil, err
		}
		item := ir.Item{Ref: ref, Name: f.Name, Type: f.Type, Status: f.Status, Parent: f.Parent}
		if item.Type == "" {
			item.Type = "post"
		}
		if item.Status == "" {
			item.Status = "publish"
		}
		st.Put(item)
	}
	if err := seedLinks(st, scenario.Links); err != nil {
		return nil, err
	}
	for _, f := range scenario.Failures {
		if err := injectFailure(st, f); err != nil {
			return nil, err
		}
	}

	prefix := scenario.TokenPrefix
	if prefix == "" {
		prefix = scenario.Name
	}
	bus := hooks.NewBus()
	items := content.NewNotifier(st, bus)
	eng := engine.New(st, items,
		engine.WithBus(bus),
		engine.WithNodeLister(st),
		engine.WithLogger(zerolog.Nop()),
		engine.WithTokenGenerator(testutil.NewSeqTokens(prefix)),
	)
	if err := eng.Dispatcher().Bind(bus); err != nil {
		return nil, err
	}

	copier := content.Copier{Store: st}
	err := bus.Register(hooks.EventDuplicateItem, func(ctx context.Context, payload any) (any, error) {
		req, ok := payload.(hooks.DuplicateRequest)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", payload)
		}
		return copier.Duplicate(ctx, req.Origin, req.Target)
	})
	if err != nil {
		return nil, err
	}

	return &Harness{
		store:  st,
		bus:    bus,
		items:  items,
		engine: eng,
		clock:  testutil.NewDeterministicClock(),
		logger: zerolog.Nop(),
	}, nil
}

// seedLinks writes each fixture link on the parent and its children.
func seedLinks(st *memstore.Store, links []LinkFixture) error {
	stored := map[ir.ItemRef]ir.Link{}
	var order []ir.ItemRef
	get := func(ref ir.ItemRef) ir.Link {
		if _, ok := stored[ref]; !ok {
			order = append(order, ref)
		}
		return stored[ref]
	}

	for _, l := range links {
		parent, err := ir.ParseRef(l.Parent)
		if err != nil {
			return err
		}
		pl := get(parent)
		for _, c := range l.Children {
			child, err := ir.ParseRef(c)
			if err != nil {
				return err
			}
			pl.SetChild(child.Node, child.Item)
			cl := get(child)
			p := parent
			cl.Parent = &p
			stored[child] = cl
		}
		stored[parent] = pl
	}
	for _, ref := range order {
		st.PutLink(ref, stored[ref])
	}
	return nil
}

func injectFailure(st *memstore.Store, f FailureFixture) error {
	ref, err := parseFailureRef(f)
	if err != nil {
		return err
	}
	msg := f.Message
	if msg == "" {
		msg = "injected " + f.Op + " failure"
	}
	st.Fail(memstore.OpKind(f.Op), ref, errors.New(msg))
	return nil
}

// executeStep runs one step, traces its mutations and checks its expect
// clause. Only malformed steps return an error.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	result.AddStepTrace(describeStep(step), h.clock.Next())
	h.store.ResetTrace()

	out, err := h.dispatchStep(ctx, step)
	if err != nil {
		return err
	}

	for _, op := range h.store.Trace() {
		result.AddMutationTrace(string(op.Kind), op.Ref.String(), h.clock.Next())
	}

	h.logger.Debug().Int("step", i).Str("op", step.Op).Err(out.err).Msg("step completed")

	if step.Expect != nil {
		for _, msg := range checkExpect(step.Expect, out) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, describeStep(step), msg))
		}
	} else if out.err != nil {
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", i, describeStep(step), out.err))
	}
	return nil
}

// stepOutcome is what a step produced, in the shape Expect checks.
type stepOutcome struct {
	err        error
	cascade    *engine.CascadeReport
	item       *ir.ItemRef
	outcomes   map[ir.NodeID]string
	violations []engine.Violation
}

func (h *Harness) dispatchStep(ctx context.Context, step Step) (stepOutcome, error) {
	var out stepOutcome
	switch step.Op {
	case OpNotify:
		cmd, ref, err := commandAndRef(step)
		if err != nil {
			return out, err
		}
		out.err = h.notify(ctx, cmd, ref)
	case OpPropagate, OpApply:
		cmd, ref, err := commandAndRef(step)
		if err != nil {
			return out, err
		}
		if step.Op == OpPropagate {
			out.cascade, out.err = h.engine.Propagate(ctx, cmd, ref)
		} else {
			out.cascade, out.err = h.engine.Apply(ctx, cmd, ref)
		}
	case OpResolve:
		ref, err := ir.ParseRef(step.Ref)
		if err != nil {
			return out, err
		}
		op := h.engine.Begin(ctx)
		id, rerr := h.engine.ResolveOrCreate(ctx, op, ref, step.Target, hooks.Duplicator{Bus: h.bus})
		op.End()
		out.err = rerr
		if rerr == nil {
			out.item = &ir.ItemRef{Node: step.Target, Item: id}
		}
	case OpScan:
		ref, err := ir.ParseRef(step.Ref)
		if err != nil {
			return out, err
		}
		report, serr := h.engine.FindUnlinkedChildren(ctx, ref, step.Nodes)
		out.err = serr
		if report != nil {
			out.outcomes = map[ir.NodeID]string{}
			for _, ns := range report.Nodes {
				out.outcomes[ns.Node] = string(ns.Outcome)
			}
		}
	case OpAction:
		ref, err := ir.ParseRef(step.Ref)
		if err != nil {
			return out, err
		}
		a := ir.Action{Kind: ir.ActionKind(step.Kind), Origin: ref, Nodes: step.Nodes}
		report, aerr := h.engine.Dispatcher().Handle(ctx, a)
		out.err = aerr
		if report != nil {
			out.outcomes = map[ir.NodeID]string{}
			for _, res := range report.Results {
				out.outcomes[res.Node] = res.Outcome
			}
		}
	case OpCheck:
		out.violations, out.err = h.engine.Check(ctx)
	case OpFail:
		if err := injectFailure(h.store, *step.Fail); err != nil {
			return out, err
		}
	case OpClearFailures:
		h.store.ClearFailures()
	case OpRemoveNode:
		for _, n := range step.Nodes {
			h.store.RemoveNode(n)
		}
	default:
		return out, fmt.Errorf("unknown op %q", step.Op)
	}
	return out, nil
}

// notify runs cmd on ref the way ref's own node would: through the
// notifying store with the node active.
func (h *Harness) notify(ctx context.Context, cmd ir.Command, ref ir.ItemRef) error {
	ctx = content.WithNode(ctx, ref.Node)
	switch cmd {
	case ir.CommandDelete:
		return h.items.Destroy(ctx, ref)
	case ir.CommandTrash:
		return h.items.Trash(ctx, ref)
	default:
		return h.items.Restore(ctx, ref)
	}
}

func commandAndRef(step Step) (ir.Command, ir.ItemRef, error) {
	cmd, err := ir.ParseCommand(step.Command)
	if err != nil {
		return "", ir.ItemRef{}, err
	}
	ref, err := ir.ParseRef(step.Ref)
	if err != nil {
		return "", ir.ItemRef{}, err
	}
	return cmd, ref, nil
}

// describeStep renders a step for the trace, e.g. "apply trash 1:1".
func describeStep(s Step) string {
	switch s.Op {
	case OpNotify, OpPropagate, OpApply:
		return fmt.Sprintf("%s %s %s", s.Op, s.Command, s.Ref)
	case OpResolve:
		return fmt.Sprintf("resolve %s -> %d", s.Ref, s.Target)
	case OpScan:
		return fmt.Sprintf("scan %s %v", s.Ref, s.Nodes)
	case OpAction:
		return fmt.Sprintf("action %s %s %v", s.Kind, s.Ref, s.Nodes)
	case OpFail:
		return fmt.Sprintf("fail %s %s", s.Fail.Op, s.Fail.Ref)
	case OpRemoveNode:
		return fmt.Sprintf("remove_node %v", s.Nodes)
	default:
		return s.Op
	}
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(x *Expect, out stepOutcome) []string {
	var errs []string
	switch {
	case x.Error == "" && out.err != nil:
		errs = append(errs, fmt.Sprintf("unexpected error: %v", out.err))
	case x.Error == "any" && out.err == nil:
		errs = append(errs, "expected an error, got none")
	case x.Error != "" && x.Error != "any":
		if out.err == nil {
			errs = append(errs, fmt.Sprintf("expected %s error, got none", x.Error))
		} else if code := errorCode(out.err); code != x.Error {
			errs = append(errs, fmt.Sprintf("expected %s error, got %s (%v)", x.Error, code, out.err))
		}
	}

	if x.Rejected != nil || x.Processed != nil || x.Failed != nil || x.Skipped != nil {
		r := out.cascade
		if r == nil {
			return append(errs, "step produced no cascade report")
		}
		if x.Rejected != nil && *x.Rejected != r.Rejected {
			errs = append(errs, fmt.Sprintf("rejected: expected %v, got %v", *x.Rejected, r.Rejected))
		}
		failed := make([]ir.ItemRef, len(r.Failures))
		for i, f := range r.Failures {
			failed[i] = f.Child
		}
		errs = append(errs, compareRefs("processed", x.Processed, r.Processed)...)
		errs = append(errs, compareRefs("failed", x.Failed, failed)...)
		errs = append(errs, compareRefs("skipped", x.Skipped, r.Skipped)...)
	}

	if x.Item != "" {
		if out.item == nil {
			errs = append(errs, fmt.Sprintf("item: expected %s, got none", x.Item))
		} else if out.item.String() != x.Item {
			errs = append(errs, fmt.Sprintf("item: expected %s, got %s", x.Item, out.item))
		}
	}

	for node, want := range x.Outcomes {
		if got := out.outcomes[node]; got != want {
			errs = append(errs, fmt.Sprintf("node %d: expected outcome %q, got %q", node, want, got))
		}
	}
	for node, got := range out.outcomes {
		if _, ok := x.Outcomes[node]; !ok && x.Outcomes != nil {
			errs = append(errs, fmt.Sprintf("node %d: unexpected outcome %q", node, got))
		}
	}

	if x.Violations != nil {
		got := make([]string, len(out.violations))
		for i, v := range out.violations {
			got[i] = string(v.Kind)
		}
		if !slices.Equal(x.Violations, got) {
			errs = append(errs, fmt.Sprintf("violations: expected %v, got %v", x.Violations, got))
		}
	}
	return errs
}

// compareRefs checks an expected ref list when one was given.
func compareRefs(field string, want []string, got []ir.ItemRef) []string {
	if want == nil {
		return nil
	}
	gotS := make([]string, len(got))
	for i, r := range got {
		gotS[i] = r.String()
	}
	if !slices.Equal(want, gotS) {
		return []string{fmt.Sprintf("%s: expected %v, got %v", field, want, gotS)}
	}
	return nil
}

// errorCode returns the engine error code of err, or "ERROR".
func errorCode(err error) string {
	var e *engine.Error
	if errors.As(err, &e) {
		return string(e.Code)
	}
	if engine.IsQuotaError(err) {
		return string(engine.ErrCodeQuotaExceeded)
	}
	return "ERROR"
}
