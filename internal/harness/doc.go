// Package harness runs YAML scenarios against the link engine.
//
// A scenario seeds an in-memory multi-node store with items, links and
// injected failures, runs a list of steps through the engine, and checks
// the outcome of each step plus final assertions over links, items and the
// mutation trace.
//
// # Scenario Format
//
//	name: trash_cascade
//	description: "Trashing a root trashes every linked copy"
//	nodes: [1, 2, 3]
//	items:
//	  - { ref: "1:1", name: hello }
//	  - { ref: "2:1", name: hello }
//	links:
//	  - { parent: "1:1", children: ["2:1"] }
//	failures:
//	  - { op: trash, ref: "2:1" }
//	steps:
//	  - op: apply
//	    command: trash
//	    ref: "1:1"
//	    expect:
//	      processed: ["1:1"]
//	      failed: ["2:1"]
//	assertions:
//	  - { type: item, ref: "1:1", status: trash }
//	  - { type: trace_order, ops: ["trash 1:1"] }
//
// # Step Ops
//
//   - notify: run the command through the node's own store, which fires the
//     lifecycle notification the engine cascades from
//   - propagate, apply: call the engine directly and check the report
//   - resolve: find or create the counterpart of ref on target
//   - scan: find unlinked children of ref on nodes
//   - action: run an operator action (kind) against ref
//   - check: verify the whole link forest
//   - fail, clear_failures, remove_node: change the store between steps
//
// # Assertion Types
//
//   - link: the stored link of ref has exactly parent and children
//   - item: ref exists with status
//   - absent: ref does not exist
//   - trace_contains, trace_count, trace_order: mutation trace checks; ops
//     are written "<kind> <node>:<item>", e.g. "destroy 2:1"
//   - forest_ok: Check reports no violations
//
// # Deterministic Testing
//
// Operation tokens come from testutil.SeqTokens and trace seq values from
// testutil.DeterministicClock, so identical scenarios produce byte-identical
// golden traces.
package harness
