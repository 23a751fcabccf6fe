package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runGoldenScenario(t *testing.T, name string) {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)

	// To regenerate after an intended change to mutation order:
	//   go test ./internal/harness -run TestGolden -update
	require.NoError(t, RunWithGolden(t, scenario))
}

func TestGolden_TrashCascade(t *testing.T) {
	runGoldenScenario(t, "trash_cascade")
}

func TestGolden_DeletePartialFailure(t *testing.T) {
	runGoldenScenario(t, "delete_partial_failure")
}

func TestGolden_ResolveScanUnlink(t *testing.T) {
	runGoldenScenario(t, "resolve_scan_unlink")
}

func TestGolden_ApplyDeleteSubtree(t *testing.T) {
	runGoldenScenario(t, "apply_delete_subtree")
}

func TestMarshalSnapshot_Canonical(t *testing.T) {
	result := NewResult()
	result.AddStepTrace("notify trash 1:1", 1)
	result.AddMutationTrace("trash", "2:1", 2)

	data, err := MarshalSnapshot("tiny", result)
	require.NoError(t, err)
	require.Equal(t,
		`{"scenario_name":"tiny","trace":[{"op":"notify trash 1:1","seq":1,"type":"step"},{"op":"trash","ref":"2:1","seq":2,"type":"mutation"}]}`,
		string(data))
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "trash_cascade.yaml"))
	require.NoError(t, err)

	var first []byte
	for i := 0; i < 5; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		data, err := MarshalSnapshot(scenario.Name, result)
		require.NoError(t, err)
		if first == nil {
			first = data
			continue
		}
		require.Equal(t, string(first), string(data), "run %d differs", i)
	}
}
