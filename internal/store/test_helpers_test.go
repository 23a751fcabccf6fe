package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/linkcast/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestNodes registers nodes 1..n.
func createTestNodes(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if err := s.AddNode(context.Background(), ir.NodeID(i), ""); err != nil {
			t.Fatalf("AddNode(%d) failed: %v", i, err)
		}
	}
}

// createTestItem creates a published post and returns its ref.
func createTestItem(t *testing.T, s *Store, node ir.NodeID, name string) ir.ItemRef {
	t.Helper()
	id, err := s.Create(context.Background(), node, ir.Item{Name: name, Type: "post", Status: "publish"})
	if err != nil {
		t.Fatalf("Create(%d, %q) failed: %v", node, name, err)
	}
	return ir.ItemRef{Node: node, Item: id}
}
