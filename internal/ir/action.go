package ir

import (
	"fmt"
	"slices"
)

// Command is a lifecycle command that cascades across links.
type Command string

const (
	CommandDelete  Command = "delete"  // permanent delete
	CommandTrash   Command = "trash"   // move to trash
	CommandUntrash Command = "untrash" // restore from trash
)

// Commands lists every valid command in a stable order.
var Commands = []Command{CommandDelete, CommandTrash, CommandUntrash}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	return slices.Contains(Commands, c)
}

// ParseCommand converts a string into a Command.
func ParseCommand(s string) (Command, error) {
	c := Command(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown command %q: must be one of delete, trash, untrash", s)
	}
	return c, nil
}

// ActionKind is an operator-issued action against an item's children.
type ActionKind string

const (
	ActionDelete       ActionKind = "delete"
	ActionTrash        ActionKind = "trash"
	ActionRestore      ActionKind = "restore"
	ActionUnlink       ActionKind = "unlink"
	ActionFindUnlinked ActionKind = "find_unlinked"
)

// ActionKinds lists every valid action kind in a stable order.
var ActionKinds = []ActionKind{ActionDelete, ActionTrash, ActionRestore, ActionUnlink, ActionFindUnlinked}

// Valid reports whether k is one of the known action kinds.
func (k ActionKind) Valid() bool {
	return slices.Contains(ActionKinds, k)
}

// Command returns the lifecycle command the action cascades, if any.
// Unlink and find_unlinked do not map to a command.
func (k ActionKind) Command() (Command, bool) {
	switch k {
	case ActionDelete:
		return CommandDelete, true
	case ActionTrash:
		return CommandTrash, true
	case ActionRestore:
		return CommandUntrash, true
	default:
		return "", false
	}
}

// ParseActionKind converts a string into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown action %q: must be one of delete, trash, restore, unlink, find_unlinked", s)
	}
	return k, nil
}

// Action is a typed operator request against one origin item.
//
// Nodes restricts the action to the listed child nodes (for find_unlinked,
// the nodes to scan). Empty means every child, or every node.
type Action struct {
	Kind   ActionKind `json:"kind" yaml:"kind"`
	Origin ItemRef    `json:"origin" yaml:"origin"`
	Nodes  []NodeID   `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// Validate checks the action for structural problems.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown action %q", a.Kind)
	}
	if a.Origin.Node < 1 || a.Origin.Item < 1 {
		return fmt.Errorf("action %s: invalid origin %s", a.Kind, a.Origin)
	}
	return nil
}

// Selects reports whether node passes the action's node filter.
func (a Action) Selects(node NodeID) bool {
	return len(a.Nodes) == 0 || slices.Contains(a.Nodes, node)
}
