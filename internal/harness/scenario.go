package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/memstore"
)

// Scenario is one engine test: fixtures, steps and final assertions.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Nodes are created empty before items are placed.
	Nodes []ir.NodeID `yaml:"nodes"`

	// Items are placed as-is. Their nodes are created if missing.
	Items []ItemFixture `yaml:"items,omitempty"`

	// Links are written on both endpoints.
	Links []LinkFixture `yaml:"links,omitempty"`

	// Failures are injected before the first step.
	Failures []FailureFixture `yaml:"failures,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`

	// TokenPrefix prefixes operation tokens. Defaults to the scenario name.
	TokenPrefix string `yaml:"token_prefix,omitempty"`
}

// ItemFixture places one item.
type ItemFixture struct {
	Ref    string    `yaml:"ref"`
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type,omitempty"`   // default "post"
	Status string    `yaml:"status,omitempty"` // default "publish"
	Parent ir.ItemID `yaml:"parent,omitempty"`
}

// LinkFixture links children to parent on both sides.
type LinkFixture struct {
	Parent   string   `yaml:"parent"`
	Children []string `yaml:"children"`
}

// FailureFixture makes every op on ref fail. For create, ref names only
// the node ("3:0").
type FailureFixture struct {
	Op      string `yaml:"op"`
	Ref     string `yaml:"ref"`
	Message string `yaml:"message,omitempty"`
}

// Step is one engine call. Which fields apply depends on Op.
type Step struct {
	Op      string      `yaml:"op"`
	Command string      `yaml:"command,omitempty"` // notify, propagate, apply
	Kind    string      `yaml:"kind,omitempty"`    // action
	Ref     string      `yaml:"ref,omitempty"`
	Target  ir.NodeID   `yaml:"target,omitempty"` // resolve
	Nodes   []ir.NodeID `yaml:"nodes,omitempty"`  // scan, action, remove_node

	// Fail configures a fail step.
	Fail *FailureFixture `yaml:"fail,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect checks a step's outcome. Unset fields are not checked.
type Expect struct {
	// Error is an engine error code ("NOT_FOUND", ...), "any", or empty for
	// success.
	Error string `yaml:"error,omitempty"`

	Rejected  *bool    `yaml:"rejected,omitempty"`
	Processed []string `yaml:"processed,omitempty"`
	Failed    []string `yaml:"failed,omitempty"`
	Skipped   []string `yaml:"skipped,omitempty"`

	// Item is the resolved counterpart.
	Item string `yaml:"item,omitempty"`

	// Outcomes maps node to scan or action outcome.
	Outcomes map[ir.NodeID]string `yaml:"outcomes,omitempty"`

	// Violations lists the kinds Check must report, in order.
	Violations []string `yaml:"violations,omitempty"`
}

// Step ops.
const (
	OpNotify        = "notify"
	OpPropagate     = "propagate"
	OpApply         = "apply"
	OpResolve       = "resolve"
	OpScan          = "scan"
	OpAction        = "action"
	OpCheck         = "check"
	OpFail          = "fail"
	OpClearFailures = "clear_failures"
	OpRemoveNode    = "remove_node"
)

// Assertion validates final state or the trace.
type Assertion struct {
	Type string `yaml:"type"`

	// Ref is the item checked by link, item and absent; for trace_contains
	// and trace_count it is unused.
	Ref string `yaml:"ref,omitempty"`

	// Parent and Children are the exact link expected (link). An empty
	// parent means none.
	Parent   string   `yaml:"parent,omitempty"`
	Children []string `yaml:"children,omitempty"`

	// Status is the expected item status (item).
	Status string `yaml:"status,omitempty"`

	// Op is a mutation "<kind> <ref>" (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Ops are mutations expected in this relative order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the exact number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLink          = "link"
	AssertItem          = "item"
	AssertAbsent        = "absent"
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertForestOK      = "forest_ok"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and that every ref parses.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, it := range s.Items {
		if _, err := ir.ParseRef(it.Ref); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
		if it.Name == "" {
			return fmt.Errorf("items[%d]: name is required", i)
		}
	}
	for i, l := range s.Links {
		if _, err := ir.ParseRef(l.Parent); err != nil {
			return fmt.Errorf("links[%d].parent: %w", i, err)
		}
		if len(l.Children) == 0 {
			return fmt.Errorf("links[%d]: children is required", i)
		}
		for _, c := range l.Children {
			if _, err := ir.ParseRef(c); err != nil {
				return fmt.Errorf("links[%d].children: %w", i, err)
			}
		}
	}
	for i, f := range s.Failures {
		if err := validateFailure(f); err != nil {
			return fmt.Errorf("failures[%d]: %w", i, err)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

var failureOps = []memstore.OpKind{
	memstore.OpCreate, memstore.OpDestroy, memstore.OpTrash, memstore.OpRestore,
	memstore.OpSetLink, memstore.OpDeleteLink,
}

func validateFailure(f FailureFixture) error {
	if !slices.Contains(failureOps, memstore.OpKind(f.Op)) {
		return fmt.Errorf("unknown op %q", f.Op)
	}
	if _, err := parseFailureRef(f); err != nil {
		return err
	}
	return nil
}

// parseFailureRef parses the ref of a failure. Create failures are keyed by
// node only, so "3:0" is allowed there.
func parseFailureRef(f FailureFixture) (ir.ItemRef, error) {
	if memstore.OpKind(f.Op) == memstore.OpCreate {
		var node int64
		var item int64
		if _, err := fmt.Sscanf(f.Ref, "%d:%d", &node, &item); err != nil || node < 1 {
			return ir.ItemRef{}, fmt.Errorf("invalid create failure ref %q: expected node:0", f.Ref)
		}
		return ir.ItemRef{Node: ir.NodeID(node)}, nil
	}
	return ir.ParseRef(f.Ref)
}

func validateStep(s Step) error {
	needRef := func() error {
		if _, err := ir.ParseRef(s.Ref); err != nil {
			return fmt.Errorf("%s: %w", s.Op, err)
		}
		return nil
	}

	switch s.Op {
	case OpNotify, OpPropagate, OpApply:
		if _, err := ir.ParseCommand(s.Command); err != nil {
			return fmt.Errorf("%s: %w", s.Op, err)
		}
		return needRef()
	case OpResolve:
		if s.Target < 1 {
			return fmt.Errorf("resolve: target is required")
		}
		return needRef()
	case OpScan:
		return needRef()
	case OpAction:
		if _, err := ir.ParseActionKind(s.Kind); err != nil {
			return fmt.Errorf("action: %w", err)
		}
		return needRef()
	case OpFail:
		if s.Fail == nil {
			return fmt.Errorf("fail: fail is required")
		}
		return validateFailure(*s.Fail)
	case OpRemoveNode:
		if len(s.Nodes) == 0 {
			return fmt.Errorf("remove_node: nodes is required")
		}
		return nil
	case OpCheck, OpClearFailures:
		return nil
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertLink, AssertItem, AssertAbsent:
		if _, err := ir.ParseRef(a.Ref); err != nil {
			return fmt.Errorf("%s: %w", a.Type, err)
		}
		if a.Type == AssertItem && a.Status == "" {
			return fmt.Errorf("item: status is required")
		}
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("trace_contains: op is required")
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("trace_count: op is required")
		}
		if a.Count < 0 {
			return fmt.Errorf("trace_count: count must be non-negative")
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("trace_order: ops list is required")
		}
	case AssertForestOK:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
