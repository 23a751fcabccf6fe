// Package content defines the collaborators the link engine consumes but
// does not own: the per-node content store, the node context switch, the
// duplication operation and the node directory.
//
// Implementations live in memstore (in-memory) and store (SQLite).
package content
