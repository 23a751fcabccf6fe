package store

import (
	"context"
	"fmt"

	"github.com/roach88/linkcast/internal/ir"
)

// Node is a registered node.
type Node struct {
	ID   ir.NodeID `json:"id"`
	Name string    `json:"name"`
}

// AddNode registers a node. Re-adding an existing id updates its name.
func (s *Store) AddNode(ctx context.Context, id ir.NodeID, name string) error {
	if id < 1 {
		return fmt.Errorf("add node: invalid id %d", id)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, int64(id), name)
	if err != nil {
		return fmt.Errorf("add node: %w", err)
	}
	return nil
}

// RemoveNode deletes a node and, by cascade, its items. Links that point
// at the node are left for Prune to clean up.
func (s *Store) RemoveNode(ctx context.Context, id ir.NodeID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("remove node: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove node: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("remove node %d: not found", id)
	}
	return nil
}

// ListNodes returns every registered node ordered by id.
func (s *Store) ListNodes(ctx context.Context) ([]Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM nodes ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []Node{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, Node{ID: ir.NodeID(id), Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// Nodes implements content.NodeLister.
func (s *Store) Nodes(ctx context.Context) ([]ir.NodeID, error) {
	nodes, err := s.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]ir.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids, nil
}
