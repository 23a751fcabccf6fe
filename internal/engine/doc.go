// Package engine implements the linkcast link engine: the reentrancy guard,
// the cascade propagator, the equivalence resolver, the unlinked-child
// scanner and the command dispatcher that feeds them.
//
// ARCHITECTURE:
//
// Single logical thread per top-level request. Cross-node work is a sequence
// of context switches (enter node, operate, restore) through
// content.Switcher, never concurrent within one call.
//
// Reentrancy:
// Running a command on a child node makes that node's store fire the same
// lifecycle notification synchronously, which reaches the dispatcher and
// calls Propagate again for the child. The Guard, keyed by
// (command, node, item), absorbs that call. The cascade holds each child's
// guard entry while it operates on the child and while it descends.
//
// Link writes:
// The propagator and resolver are the only writers of links. Both endpoints
// of a link are updated in the same call; each write happens while the
// written item's node is active.
//
// Termination:
// The guard stops cycles; the step quota bounds pathological fan-out.
package engine
