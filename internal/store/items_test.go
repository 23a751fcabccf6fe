package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/ir"
)

// =============================================================================
// Nodes
// =============================================================================

func TestNodes_AddListRemove(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.AddNode(ctx, 2, "shop"))
	require.NoError(t, s.AddNode(ctx, 1, "main"))
	require.NoError(t, s.AddNode(ctx, 2, "store"), "re-adding renames")

	nodes, err := s.ListNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Node{{ID: 1, Name: "main"}, {ID: 2, Name: "store"}}, nodes)

	ids, err := s.Nodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.NodeID{1, 2}, ids)

	require.NoError(t, s.RemoveNode(ctx, 2))
	assert.Error(t, s.RemoveNode(ctx, 2))
	assert.Error(t, s.AddNode(ctx, 0, "bad"))
}

func TestNodes_RemoveCascadesItems(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 2)
	ref := createTestItem(t, s, 2, "hello")

	require.NoError(t, s.RemoveNode(ctx, 2))
	_, err := s.Fetch(ctx, ref)
	assert.True(t, content.IsNotFound(err))
}

// =============================================================================
// Items
// =============================================================================

func TestCreate_AllocatesPerNode(t *testing.T) {
	s := createTestStore(t)
	createTestNodes(t, s, 2)

	a := createTestItem(t, s, 1, "a")
	b := createTestItem(t, s, 1, "b")
	c := createTestItem(t, s, 2, "c")

	assert.Equal(t, ir.ItemRef{Node: 1, Item: 1}, a)
	assert.Equal(t, ir.ItemRef{Node: 1, Item: 2}, b)
	assert.Equal(t, ir.ItemRef{Node: 2, Item: 1}, c)
}

func TestCreate_UnknownNode(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Create(context.Background(), 5, ir.Item{Name: "x", Type: "post", Status: "publish"})
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 1)

	id, err := s.Create(ctx, 1, ir.Item{Name: "child", Type: "page", Status: "draft", Parent: 4})
	require.NoError(t, err)

	item, err := s.Fetch(ctx, ir.ItemRef{Node: 1, Item: id})
	require.NoError(t, err)
	assert.Equal(t, ir.Item{
		Ref:    ir.ItemRef{Node: 1, Item: id},
		Name:   "child",
		Type:   "page",
		Status: "draft",
		Parent: 4,
	}, item)

	_, err = s.Fetch(ctx, ir.ItemRef{Node: 1, Item: 99})
	assert.True(t, content.IsNotFound(err))
}

func TestQuery_MatchesAndParentScope(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 1)

	_, err := s.Create(ctx, 1, ir.Item{Name: "about", Type: "page", Status: "publish", Parent: 10})
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, ir.Item{Name: "about", Type: "page", Status: "publish", Parent: 20})
	require.NoError(t, err)
	_, err = s.Create(ctx, 1, ir.Item{Name: "about", Type: "page", Status: "draft"})
	require.NoError(t, err)

	items, err := s.Query(ctx, 1, ir.Filter{Name: "about", Type: "page", Status: "publish"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, ir.ItemID(1), items[0].Ref.Item)
	assert.Equal(t, ir.ItemID(2), items[1].Ref.Item)

	parent := ir.ItemID(20)
	items, err = s.Query(ctx, 1, ir.Filter{Name: "about", Type: "page", Status: "publish", Parent: &parent})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ir.ItemID(2), items[0].Ref.Item)

	items, err = s.Query(ctx, 1, ir.Filter{Name: "missing", Type: "page", Status: "publish"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestQuery_NFCNames(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 1)

	_, err := s.Create(ctx, 1, ir.Item{Name: "cafe\u0301", Type: "post", Status: "publish"})
	require.NoError(t, err)

	items, err := s.Query(ctx, 1, ir.Filter{Name: "caf\u00e9", Type: "post", Status: "publish"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestTrashRestore(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 1)
	id, err := s.Create(ctx, 1, ir.Item{Name: "x", Type: "post", Status: "private"})
	require.NoError(t, err)
	ref := ir.ItemRef{Node: 1, Item: id}

	require.NoError(t, s.Trash(ctx, ref))
	require.NoError(t, s.Trash(ctx, ref), "trashing twice keeps the remembered status")
	item, err := s.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ir.StatusTrash, item.Status)

	require.NoError(t, s.Restore(ctx, ref))
	item, err = s.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "private", item.Status)

	require.NoError(t, s.Restore(ctx, ref), "restoring a live item is a no-op")
	item, _ = s.Fetch(ctx, ref)
	assert.Equal(t, "private", item.Status)
}

func TestRestore_DefaultsToDraft(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 1)
	id, err := s.Create(ctx, 1, ir.Item{Name: "x", Type: "post", Status: ir.StatusTrash})
	require.NoError(t, err)

	require.NoError(t, s.Restore(ctx, ir.ItemRef{Node: 1, Item: id}))
	item, _ := s.Fetch(ctx, ir.ItemRef{Node: 1, Item: id})
	assert.Equal(t, "draft", item.Status)
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 1)
	ref := createTestItem(t, s, 1, "x")

	require.NoError(t, s.Destroy(ctx, ref))
	_, err := s.Fetch(ctx, ref)
	assert.True(t, content.IsNotFound(err))

	assert.True(t, content.IsNotFound(s.Destroy(ctx, ref)))
	assert.True(t, content.IsNotFound(s.Trash(ctx, ref)))
	assert.True(t, content.IsNotFound(s.Restore(ctx, ref)))
}

func TestListItemsAndHierarchicalChildren(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestNodes(t, s, 1)
	parent := createTestItem(t, s, 1, "parent")
	_, err := s.Create(ctx, 1, ir.Item{Name: "kid", Type: "page", Status: "publish", Parent: parent.Item})
	require.NoError(t, err)

	all, err := s.ListItems(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	kids, err := s.HierarchicalChildren(ctx, parent)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, "kid", kids[0].Name)
}
