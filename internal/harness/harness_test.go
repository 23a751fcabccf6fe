package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcast/internal/ir"
)

// broadcastScenario is 1:1 linked to 2:1 and 3:1.
func broadcastScenario(steps []Step, assertions ...Assertion) *Scenario {
	if len(assertions) == 0 {
		assertions = []Assertion{{Type: AssertForestOK}}
	}
	return &Scenario{
		Name:        "broadcast",
		Description: "root with two linked copies",
		Nodes:       []ir.NodeID{1, 2, 3},
		Items: []ItemFixture{
			{Ref: "1:1", Name: "hello"},
			{Ref: "2:1", Name: "hello"},
			{Ref: "3:1", Name: "hello"},
		},
		Links:      []LinkFixture{{Parent: "1:1", Children: []string{"2:1", "3:1"}}},
		Steps:      steps,
		Assertions: assertions,
	}
}

func TestRun_TraceShape(t *testing.T) {
	result, err := Run(broadcastScenario([]Step{
		{Op: OpPropagate, Command: "trash", Ref: "1:1"},
	}))
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)

	require.Len(t, result.Trace, 3)
	assert.Equal(t, TraceEvent{Type: EventStep, Op: "propagate trash 1:1", Seq: 1}, result.Trace[0])
	assert.Equal(t, TraceEvent{Type: EventMutation, Op: "trash", Ref: "2:1", Seq: 2}, result.Trace[1])
	assert.Equal(t, TraceEvent{Type: EventMutation, Op: "trash", Ref: "3:1", Seq: 3}, result.Trace[2])
	assert.Equal(t, []string{"trash 2:1", "trash 3:1"}, result.Mutations())
}

func TestRun_SeedsBothSidesOfLinks(t *testing.T) {
	result, err := Run(broadcastScenario(
		[]Step{{Op: OpCheck, Expect: &Expect{Violations: []string{}}}},
		Assertion{Type: AssertLink, Ref: "1:1", Children: []string{"2:1", "3:1"}},
		Assertion{Type: AssertLink, Ref: "2:1", Parent: "1:1"},
		Assertion{Type: AssertLink, Ref: "3:1", Parent: "1:1"},
		Assertion{Type: AssertItem, Ref: "2:1", Status: "publish"},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Mutations())
}

func TestRun_NotifyIsAbsorbedByGuard(t *testing.T) {
	result, err := Run(broadcastScenario(
		[]Step{{Op: OpNotify, Command: "trash", Ref: "2:1"}},
		Assertion{Type: AssertTraceCount, Op: "trash 2:1", Count: 1},
		Assertion{Type: AssertItem, Ref: "1:1", Status: "publish"},
		Assertion{Type: AssertItem, Ref: "3:1", Status: "publish"},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, []string{"trash 2:1"}, result.Mutations())
}

func TestRun_FailedExpectationIsRecorded(t *testing.T) {
	result, err := Run(broadcastScenario([]Step{
		{
			Op: OpPropagate, Command: "trash", Ref: "1:1",
			Expect: &Expect{Processed: []string{"2:1"}},
		},
	}))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 0 (propagate trash 1:1)")
	assert.Contains(t, result.Errors[0], "processed: expected [2:1], got [2:1 3:1]")
}

func TestRun_UnexpectedErrorIsRecorded(t *testing.T) {
	result, err := Run(broadcastScenario([]Step{
		{Op: OpApply, Command: "trash", Ref: "1:9"},
	}))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_ExpectedErrorCode(t *testing.T) {
	result, err := Run(broadcastScenario([]Step{
		{Op: OpApply, Command: "trash", Ref: "1:9", Expect: &Expect{Error: "NOT_FOUND"}},
		{Op: OpResolve, Ref: "1:9", Target: 2, Expect: &Expect{Error: "any"}},
	}))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_InjectedFailureStep(t *testing.T) {
	result, err := Run(broadcastScenario(
		[]Step{
			{Op: OpFail, Fail: &FailureFixture{Op: "trash", Ref: "2:1"}},
			{
				Op: OpPropagate, Command: "trash", Ref: "1:1",
				Expect: &Expect{Processed: []string{"3:1"}, Failed: []string{"2:1"}},
			},
			{Op: OpClearFailures},
			{
				Op: OpPropagate, Command: "trash", Ref: "1:1",
				Expect: &Expect{Processed: []string{"2:1", "3:1"}, Failed: []string{}},
			},
		},
		Assertion{Type: AssertItem, Ref: "2:1", Status: "trash"},
		Assertion{Type: AssertTraceCount, Op: "trash 2:1", Count: 1},
		Assertion{Type: AssertTraceCount, Op: "trash 3:1", Count: 2},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)

	var steps []string
	for _, e := range result.Trace {
		if e.Type == EventStep {
			steps = append(steps, e.Op)
		}
	}
	assert.Equal(t, []string{
		"fail trash 2:1",
		"propagate trash 1:1",
		"clear_failures",
		"propagate trash 1:1",
	}, steps)
}

func TestRun_CreateFailureSurfacesAsDuplicationError(t *testing.T) {
	s := broadcastScenario(
		[]Step{{Op: OpResolve, Ref: "1:1", Target: 4, Expect: &Expect{Error: "any"}}},
		Assertion{Type: AssertLink, Ref: "1:1", Children: []string{"2:1", "3:1"}},
	)
	s.Nodes = append(s.Nodes, 4)
	s.Failures = []FailureFixture{{Op: "create", Ref: "4:0"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Mutations())
}

func TestRun_ActionOutcomes(t *testing.T) {
	result, err := Run(broadcastScenario(
		[]Step{{
			Op: OpAction, Kind: "trash", Ref: "1:1", Nodes: []ir.NodeID{3},
			Expect: &Expect{Outcomes: map[ir.NodeID]string{3: "ok"}},
		}},
		Assertion{Type: AssertItem, Ref: "3:1", Status: "trash"},
		Assertion{Type: AssertItem, Ref: "2:1", Status: "publish"},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_UnexpectedOutcomeIsRecorded(t *testing.T) {
	result, err := Run(broadcastScenario([]Step{{
		Op: OpAction, Kind: "trash", Ref: "1:1",
		Expect: &Expect{Outcomes: map[ir.NodeID]string{3: "ok"}},
	}}))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `node 2: unexpected outcome "ok"`)
}

func TestDescribeStep(t *testing.T) {
	tests := []struct {
		step Step
		want string
	}{
		{Step{Op: OpNotify, Command: "delete", Ref: "1:1"}, "notify delete 1:1"},
		{Step{Op: OpResolve, Ref: "1:1", Target: 3}, "resolve 1:1 -> 3"},
		{Step{Op: OpScan, Ref: "1:1", Nodes: []ir.NodeID{2, 3}}, "scan 1:1 [2 3]"},
		{Step{Op: OpAction, Kind: "unlink", Ref: "1:1"}, "action unlink 1:1 []"},
		{Step{Op: OpFail, Fail: &FailureFixture{Op: "create", Ref: "2:0"}}, "fail create 2:0"},
		{Step{Op: OpRemoveNode, Nodes: []ir.NodeID{4}}, "remove_node [4]"},
		{Step{Op: OpCheck}, "check"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, describeStep(tt.step))
	}
}
