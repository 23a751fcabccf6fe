package hooks

import "github.com/roach88/linkcast/internal/ir"

// Lifecycle notifications fired by a node's content store.
const (
	EventDeleteItem  = "delete_item"
	EventTrashItem   = "trash_item"
	EventUntrashItem = "untrash_item"
)

// Requests the engine sends to other subsystems.
const (
	// EventDuplicateItem asks for a new copy. Payload DuplicateRequest, result ir.ItemID.
	EventDuplicateItem = "duplicate_item"

	// EventResolveMiss fires before duplicating. Payload DuplicateRequest; an
	// ir.ItemID result is used instead of duplicating.
	EventResolveMiss = "resolve_miss"

	// EventScanNodes narrows default scan targets. Payload ScanNodes; a
	// []ir.NodeID result replaces the list.
	EventScanNodes = "scan_nodes"

	// EventFilterCandidates narrows scanner candidates. Payload Candidates; a
	// []ir.Item result replaces the list.
	EventFilterCandidates = "filter_candidates"
)

// ItemEvent is the payload of lifecycle notifications.
type ItemEvent struct {
	Ref ir.ItemRef
}

// DuplicateRequest is the payload of EventDuplicateItem and EventResolveMiss.
type DuplicateRequest struct {
	Origin ir.ItemRef
	Target ir.NodeID
}

// ScanNodes is the payload of EventScanNodes.
type ScanNodes struct {
	Origin ir.ItemRef
	Nodes  []ir.NodeID
}

// Candidates is the payload of EventFilterCandidates.
type Candidates struct {
	Origin     ir.ItemRef
	Target     ir.NodeID
	Candidates []ir.Item
}

// CommandEvent maps a lifecycle command to its notification name.
func CommandEvent(cmd ir.Command) string {
	switch cmd {
	case ir.CommandDelete:
		return EventDeleteItem
	case ir.CommandTrash:
		return EventTrashItem
	case ir.CommandUntrash:
		return EventUntrashItem
	default:
		return ""
	}
}
