package harness

import "fmt"

// Trace event types.
const (
	EventStep     = "step"
	EventMutation = "mutation"
)

// TraceEvent is one entry of a scenario trace: the start of a step or a
// store mutation the step caused.
type TraceEvent struct {
	Type string `json:"type"`
	Op   string `json:"op"`
	Ref  string `json:"ref,omitempty"`
	Seq  int64  `json:"seq"`
}

// String renders a mutation as "<kind> <ref>", the form assertions use.
func (e TraceEvent) String() string {
	if e.Ref == "" {
		return e.Op
	}
	return fmt.Sprintf("%s %s", e.Op, e.Ref)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists steps and mutations in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation or assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStepTrace records the start of a step.
func (r *Result) AddStepTrace(desc string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventStep, Op: desc, Seq: seq})
}

// AddMutationTrace records a store mutation.
func (r *Result) AddMutationTrace(kind, ref string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventMutation, Op: kind, Ref: ref, Seq: seq})
}

// Mutations returns the mutation events rendered as "<kind> <ref>".
func (r *Result) Mutations() []string {
	var out []string
	for _, e := range r.Trace {
		if e.Type == EventMutation {
			out = append(out, e.String())
		}
	}
	return out
}
