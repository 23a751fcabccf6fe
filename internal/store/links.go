package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/linkcast/internal/ir"
)

// GetLink returns the link of ref. A missing link is empty, never an error.
func (s *Store) GetLink(ctx context.Context, ref ir.ItemRef) (ir.Link, error) {
	var link ir.Link

	var parentNode, parentItem sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT parent_node, parent_item FROM links
		WHERE node_id = ? AND item_id = ?
	`, int64(ref.Node), int64(ref.Item)).Scan(&parentNode, &parentItem)
	if errors.Is(err, sql.ErrNoRows) {
		return link, nil
	}
	if err != nil {
		return link, fmt.Errorf("get link %s: %w", ref, err)
	}
	if parentNode.Valid {
		link.Parent = &ir.ItemRef{Node: ir.NodeID(parentNode.Int64), Item: ir.ItemID(parentItem.Int64)}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT child_node, child_item FROM link_children
		WHERE node_id = ? AND item_id = ?
		ORDER BY child_node ASC
	`, int64(ref.Node), int64(ref.Item))
	if err != nil {
		return ir.Link{}, fmt.Errorf("get link %s: children: %w", ref, err)
	}
	defer rows.Close()

	for rows.Next() {
		var node, item int64
		if err := rows.Scan(&node, &item); err != nil {
			return ir.Link{}, fmt.Errorf("get link %s: scan child: %w", ref, err)
		}
		link.SetChild(ir.NodeID(node), ir.ItemID(item))
	}
	if err := rows.Err(); err != nil {
		return ir.Link{}, fmt.Errorf("get link %s: iterate children: %w", ref, err)
	}
	return link, nil
}

// SetLink replaces the link of ref in one transaction. An empty link
// removes the record.
func (s *Store) SetLink(ctx context.Context, ref ir.ItemRef, link ir.Link) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set link %s: begin tx: %w", ref, err)
	}
	defer tx.Rollback() // No-op if committed

	if link.IsEmpty() {
		if err := deleteLinkTx(ctx, tx, ref); err != nil {
			return fmt.Errorf("set link %s: %w", ref, err)
		}
		return tx.Commit()
	}

	var parentNode, parentItem sql.NullInt64
	if link.Parent != nil {
		parentNode = sql.NullInt64{Int64: int64(link.Parent.Node), Valid: true}
		parentItem = sql.NullInt64{Int64: int64(link.Parent.Item), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO links (node_id, item_id, parent_node, parent_item)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(node_id, item_id) DO UPDATE SET
			parent_node = excluded.parent_node,
			parent_item = excluded.parent_item
	`, int64(ref.Node), int64(ref.Item), parentNode, parentItem); err != nil {
		return fmt.Errorf("set link %s: %w", ref, err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM link_children WHERE node_id = ? AND item_id = ?
	`, int64(ref.Node), int64(ref.Item)); err != nil {
		return fmt.Errorf("set link %s: clear children: %w", ref, err)
	}

	for _, child := range link.ChildRefs() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO link_children (node_id, item_id, child_node, child_item)
			VALUES (?, ?, ?, ?)
		`, int64(ref.Node), int64(ref.Item), int64(child.Node), int64(child.Item)); err != nil {
			return fmt.Errorf("set link %s: child %s: %w", ref, child, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set link %s: commit: %w", ref, err)
	}
	return nil
}

// DeleteLink removes the link of ref. Deleting a missing link is not an error.
func (s *Store) DeleteLink(ctx context.Context, ref ir.ItemRef) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete link %s: begin tx: %w", ref, err)
	}
	defer tx.Rollback()

	if err := deleteLinkTx(ctx, tx, ref); err != nil {
		return fmt.Errorf("delete link %s: %w", ref, err)
	}
	return tx.Commit()
}

func deleteLinkTx(ctx context.Context, tx *sql.Tx, ref ir.ItemRef) error {
	// link_children rows go with the parent row via ON DELETE CASCADE
	_, err := tx.ExecContext(ctx, `
		DELETE FROM links WHERE node_id = ? AND item_id = ?
	`, int64(ref.Node), int64(ref.Item))
	return err
}

// Links returns every stored link ordered by node then item.
func (s *Store) Links(ctx context.Context) ([]ir.LinkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.node_id, l.item_id, l.parent_node, l.parent_item, c.child_node, c.child_item
		FROM links l
		LEFT JOIN link_children c ON c.node_id = l.node_id AND c.item_id = l.item_id
		ORDER BY l.node_id ASC, l.item_id ASC, c.child_node ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	var records []ir.LinkRecord
	for rows.Next() {
		var (
			node, item             int64
			parentNode, parentItem sql.NullInt64
			childNode, childItem   sql.NullInt64
		)
		if err := rows.Scan(&node, &item, &parentNode, &parentItem, &childNode, &childItem); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		ref := ir.ItemRef{Node: ir.NodeID(node), Item: ir.ItemID(item)}
		if len(records) == 0 || records[len(records)-1].Ref != ref {
			rec := ir.LinkRecord{Ref: ref}
			if parentNode.Valid {
				rec.Link.Parent = &ir.ItemRef{Node: ir.NodeID(parentNode.Int64), Item: ir.ItemID(parentItem.Int64)}
			}
			records = append(records, rec)
		}
		if childNode.Valid {
			records[len(records)-1].Link.SetChild(ir.NodeID(childNode.Int64), ir.ItemID(childItem.Int64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return records, nil
}

// ListedBy returns the items whose links list ref as a child. In a healthy
// forest this is at most the item's own parent.
func (s *Store) ListedBy(ctx context.Context, ref ir.ItemRef) ([]ir.ItemRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, item_id FROM link_children
		WHERE child_node = ? AND child_item = ?
		ORDER BY node_id ASC, item_id ASC
	`, int64(ref.Node), int64(ref.Item))
	if err != nil {
		return nil, fmt.Errorf("query listed by %s: %w", ref, err)
	}
	defer rows.Close()

	refs := []ir.ItemRef{}
	for rows.Next() {
		var node, item int64
		if err := rows.Scan(&node, &item); err != nil {
			return nil, fmt.Errorf("scan listed by: %w", err)
		}
		refs = append(refs, ir.ItemRef{Node: ir.NodeID(node), Item: ir.ItemID(item)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listed by: %w", err)
	}
	return refs, nil
}
