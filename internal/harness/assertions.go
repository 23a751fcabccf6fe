package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/engine"
	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/memstore"
)

// AssertionContext provides what state assertions read.
type AssertionContext struct {
	Store  *memstore.Store
	Engine *engine.Engine
	Ctx    context.Context
}

// AssertionError is returned when an assertion fails.
// It includes the mutation trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		if event.Type == EventStep {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event.Op)
		} else {
			fmt.Fprintf(&buf, "  [%d]   %s\n", i+1, event)
		}
	}

	return buf.String()
}

// assertTraceContains checks that the mutation occurred at least once.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type == EventMutation && event.String() == a.Op {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("mutation %q", a.Op),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the mutations appear in the given order.
// Other mutations may occur in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventMutation {
			continue
		}
		s := event.String()
		if slices.Contains(a.Ops, s) && positions[s] == 0 {
			positions[s] = i + 1 // 1-indexed for readability
		}
	}

	for _, op := range a.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all mutations present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing mutation: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("mutations in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks that the mutation occurred exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventMutation && event.String() == a.Op {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%q %d time(s)", a.Op, a.Count),
			Actual:   fmt.Sprintf("%d time(s)", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertLink checks the stored link of a.Ref exactly.
func assertLink(actx *AssertionContext, a Assertion) error {
	ref, err := ir.ParseRef(a.Ref)
	if err != nil {
		return err
	}
	link, err := actx.Engine.GetLink(actx.Ctx, ref)
	if err != nil {
		return fmt.Errorf("link %s: %w", ref, err)
	}

	gotParent := ""
	if link.Parent != nil {
		gotParent = link.Parent.String()
	}
	gotChildren := []string{}
	for _, c := range link.ChildRefs() {
		gotChildren = append(gotChildren, c.String())
	}
	wantChildren := a.Children
	if wantChildren == nil {
		wantChildren = []string{}
	}

	if gotParent != a.Parent || !slices.Equal(gotChildren, wantChildren) {
		return &AssertionError{
			Type:     AssertLink,
			Expected: fmt.Sprintf("%s parent=%q children=%v", ref, a.Parent, wantChildren),
			Actual:   fmt.Sprintf("parent=%q children=%v", gotParent, gotChildren),
		}
	}
	return nil
}

// assertItem checks that a.Ref exists with a.Status, or is absent.
func assertItem(actx *AssertionContext, a Assertion) error {
	ref, err := ir.ParseRef(a.Ref)
	if err != nil {
		return err
	}
	item, err := actx.Store.Fetch(content.WithNode(actx.Ctx, ref.Node), ref)
	absent := content.IsNotFound(err)
	if err != nil && !absent {
		return fmt.Errorf("item %s: %w", ref, err)
	}

	if a.Type == AssertAbsent {
		if !absent {
			return &AssertionError{
				Type:     AssertAbsent,
				Expected: fmt.Sprintf("%s does not exist", ref),
				Actual:   fmt.Sprintf("exists with status %q", item.Status),
			}
		}
		return nil
	}

	if absent {
		return &AssertionError{
			Type:     AssertItem,
			Expected: fmt.Sprintf("%s with status %q", ref, a.Status),
			Actual:   "item does not exist",
		}
	}
	if item.Status != a.Status {
		return &AssertionError{
			Type:     AssertItem,
			Expected: fmt.Sprintf("%s with status %q", ref, a.Status),
			Actual:   fmt.Sprintf("status %q", item.Status),
		}
	}
	return nil
}

// assertForestOK runs Check and expects no violations.
func assertForestOK(actx *AssertionContext) error {
	violations, err := actx.Engine.Check(actx.Ctx)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		got := make([]string, len(violations))
		for i, v := range violations {
			got[i] = v.String()
		}
		return &AssertionError{
			Type:     AssertForestOK,
			Expected: "no violations",
			Actual:   strings.Join(got, "; "),
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertLink:
			err = assertLink(actx, a)
		case AssertItem, AssertAbsent:
			err = assertItem(actx, a)
		case AssertForestOK:
			err = assertForestOK(actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}
