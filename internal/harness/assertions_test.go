package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcast/internal/ir"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventStep, Op: "propagate delete 1:1", Seq: 1},
		{Type: EventMutation, Op: "delete_link", Ref: "2:1", Seq: 2},
		{Type: EventMutation, Op: "destroy", Ref: "2:1", Seq: 3},
		{Type: EventMutation, Op: "delete_link", Ref: "3:1", Seq: 4},
		{Type: EventMutation, Op: "destroy", Ref: "3:1", Seq: 5},
		{Type: EventStep, Op: "propagate delete 1:1", Seq: 6},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Op: "destroy 3:1"}))

	err := assertTraceContains(trace, Assertion{Type: AssertTraceContains, Op: "trash 2:1"})
	require.Error(t, err)
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Len(t, aerr.Trace, len(trace))

	// Step descriptions never match a mutation.
	assert.Error(t, assertTraceContains(trace, Assertion{Op: "propagate delete 1:1"}))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []string{"delete_link 2:1", "destroy 3:1"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Ops: []string{"destroy 2:1"}}))

	err := assertTraceOrder(trace, Assertion{Ops: []string{"destroy 3:1", "destroy 2:1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Ops: []string{"destroy 2:1", "destroy 4:1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing mutation: destroy 4:1")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Op: "destroy 2:1", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Op: "trash 2:1", Count: 0}))

	err := assertTraceCount(trace, Assertion{Type: AssertTraceCount, Op: "destroy 2:1", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expected: \"destroy 2:1\" 2 time(s)")
	assert.Contains(t, err.Error(), "Actual: 1 time(s)")
}

func TestAssertionError_ListsTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceContains,
		Expected: "x",
		Actual:   "y",
		Trace:    sampleTrace()[:2],
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_contains")
	assert.Contains(t, msg, "[1] propagate delete 1:1")
	assert.Contains(t, msg, "[2]   delete_link 2:1")
}

func TestEvaluateAssertions_StateChecks(t *testing.T) {
	s := broadcastScenario(
		[]Step{{Op: OpApply, Command: "delete", Ref: "3:1"}},
		Assertion{Type: AssertAbsent, Ref: "3:1"},
		Assertion{Type: AssertLink, Ref: "1:1", Children: []string{"2:1"}},
		// Each of these is wrong on purpose.
		Assertion{Type: AssertAbsent, Ref: "2:1"},
		Assertion{Type: AssertItem, Ref: "3:1", Status: "publish"},
		Assertion{Type: AssertItem, Ref: "2:1", Status: "draft"},
		Assertion{Type: AssertLink, Ref: "2:1"},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "assertion 2:")
	assert.Contains(t, result.Errors[0], "exists with status")
	assert.Contains(t, result.Errors[1], "item does not exist")
	assert.Contains(t, result.Errors[2], `status "publish"`)
	assert.Contains(t, result.Errors[3], `parent="1:1"`)
}

func TestEvaluateAssertions_ForestViolations(t *testing.T) {
	s := broadcastScenario(
		[]Step{{Op: OpRemoveNode, Nodes: []ir.NodeID{2}}},
		Assertion{Type: AssertForestOK},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "missing_parent: 1:1 / 2:1")
}
