package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/ir"
)

// Fetch implements content.Store.
func (s *Store) Fetch(ctx context.Context, ref ir.ItemRef) (ir.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT node_id, item_id, name, type, status, parent_item
		FROM items
		WHERE node_id = ? AND item_id = ?
	`, int64(ref.Node), int64(ref.Item))

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Item{}, fmt.Errorf("fetch %s: %w", ref, content.ErrNotFound)
	}
	if err != nil {
		return ir.Item{}, fmt.Errorf("fetch %s: %w", ref, err)
	}
	return item, nil
}

// Query implements content.Store. Names are compared in NFC form.
func (s *Store) Query(ctx context.Context, node ir.NodeID, f ir.Filter) ([]ir.Item, error) {
	query := `
		SELECT node_id, item_id, name, type, status, parent_item
		FROM items
		WHERE node_id = ? AND name = ? AND type = ? AND status = ?`
	args := []any{int64(node), ir.NormalizeSlug(f.Name), f.Type, f.Status}
	if f.Parent != nil {
		query += ` AND parent_item = ?`
		args = append(args, int64(*f.Parent))
	}
	query += ` ORDER BY item_id ASC`

	return s.queryItems(ctx, query, args...)
}

// ListItems returns every item on node ordered by id.
func (s *Store) ListItems(ctx context.Context, node ir.NodeID) ([]ir.Item, error) {
	return s.queryItems(ctx, `
		SELECT node_id, item_id, name, type, status, parent_item
		FROM items
		WHERE node_id = ?
		ORDER BY item_id ASC
	`, int64(node))
}

// HierarchicalChildren returns items on ref's node whose parent is ref.
func (s *Store) HierarchicalChildren(ctx context.Context, ref ir.ItemRef) ([]ir.Item, error) {
	return s.queryItems(ctx, `
		SELECT node_id, item_id, name, type, status, parent_item
		FROM items
		WHERE node_id = ? AND parent_item = ?
		ORDER BY item_id ASC
	`, int64(ref.Node), int64(ref.Item))
}

// Create implements content.Store. Ids are allocated per node as max+1.
func (s *Store) Create(ctx context.Context, node ir.NodeID, item ir.Item) (ir.ItemID, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create item: begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE id = ?`, int64(node)).Scan(&exists); err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("create item on node %d: unknown node", node)
	}

	var next int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(item_id), 0) + 1 FROM items WHERE node_id = ?
	`, int64(node)).Scan(&next); err != nil {
		return 0, fmt.Errorf("create item: allocate id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO items (node_id, item_id, name, type, status, parent_item)
		VALUES (?, ?, ?, ?, ?, ?)
	`, int64(node), next, ir.NormalizeSlug(item.Name), item.Type, item.Status, int64(item.Parent)); err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create item: commit: %w", err)
	}
	return ir.ItemID(next), nil
}

// Destroy implements content.Store. The item's link is not touched.
func (s *Store) Destroy(ctx context.Context, ref ir.ItemRef) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM items WHERE node_id = ? AND item_id = ?
	`, int64(ref.Node), int64(ref.Item))
	if err != nil {
		return fmt.Errorf("destroy %s: %w", ref, err)
	}
	return requireAffected(res, "destroy", ref)
}

// Trash implements content.Store. The current status is remembered for Restore.
func (s *Store) Trash(ctx context.Context, ref ir.ItemRef) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET prev_status = CASE WHEN status = ? THEN prev_status ELSE status END,
		    status = ?
		WHERE node_id = ? AND item_id = ?
	`, ir.StatusTrash, ir.StatusTrash, int64(ref.Node), int64(ref.Item))
	if err != nil {
		return fmt.Errorf("trash %s: %w", ref, err)
	}
	return requireAffected(res, "trash", ref)
}

// Restore implements content.Store. Items without a remembered status come
// back as drafts; items not in the trash are left alone.
func (s *Store) Restore(ctx context.Context, ref ir.ItemRef) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET status = CASE
		        WHEN status != ? THEN status
		        WHEN prev_status = '' THEN 'draft'
		        ELSE prev_status
		    END,
		    prev_status = CASE WHEN status = ? THEN '' ELSE prev_status END
		WHERE node_id = ? AND item_id = ?
	`, ir.StatusTrash, ir.StatusTrash, int64(ref.Node), int64(ref.Item))
	if err != nil {
		return fmt.Errorf("restore %s: %w", ref, err)
	}
	return requireAffected(res, "restore", ref)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]ir.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []ir.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (ir.Item, error) {
	var (
		node, id, parent int64
		item             ir.Item
	)
	if err := row.Scan(&node, &id, &item.Name, &item.Type, &item.Status, &parent); err != nil {
		return ir.Item{}, err
	}
	item.Ref = ir.ItemRef{Node: ir.NodeID(node), Item: ir.ItemID(id)}
	item.Parent = ir.ItemID(parent)
	return item, nil
}

func requireAffected(res sql.Result, op string, ref ir.ItemRef) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, ref, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, ref, content.ErrNotFound)
	}
	return nil
}
