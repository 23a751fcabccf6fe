package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders the reference as "node:item".
func (r ItemRef) String() string {
	return fmt.Sprintf("%d:%d", r.Node, r.Item)
}

// ParseRef parses a "node:item" reference. Both ids must be positive.
func ParseRef(s string) (ItemRef, error) {
	nodePart, itemPart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ItemRef{}, fmt.Errorf("invalid item ref %q: expected node:item", s)
	}
	node, err := ParseNodeID(nodePart)
	if err != nil {
		return ItemRef{}, fmt.Errorf("invalid item ref %q: %w", s, err)
	}
	item, err := ParseItemID(itemPart)
	if err != nil {
		return ItemRef{}, fmt.Errorf("invalid item ref %q: %w", s, err)
	}
	return ItemRef{Node: node, Item: item}, nil
}

// ParseNodeID parses a positive node id.
func ParseNodeID(s string) (NodeID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, fmt.Errorf("node id: %w", err)
	}
	return NodeID(n), nil
}

// ParseItemID parses a positive item id.
func ParseItemID(s string) (ItemID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, fmt.Errorf("item id: %w", err)
	}
	return ItemID(n), nil
}

// ParseNodeList parses a comma separated list of node ids. Empty input yields nil.
func ParseNodeList(s string) ([]NodeID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []NodeID
	for _, part := range strings.Split(s, ",") {
		n, err := ParseNodeID(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseItemList parses a comma separated list of item ids. Empty input yields nil.
func ParseItemList(s string) ([]ItemID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []ItemID
	for _, part := range strings.Split(s, ",") {
		id, err := ParseItemID(part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func parsePositive(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d must be positive", n)
	}
	return n, nil
}
