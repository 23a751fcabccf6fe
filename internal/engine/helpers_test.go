package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcast/internal/content"
	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/memstore"
)

// fixture wires an engine the way a deployment does: the content store
// fires lifecycle notifications on the bus and the dispatcher listens.
type fixture struct {
	store  *memstore.Store
	bus    *hooks.Bus
	items  *content.Notifier
	engine *Engine
}

func newFixture(t *testing.T, nodes ...ir.NodeID) *fixture {
	t.Helper()
	store := memstore.New(nodes...)
	bus := hooks.NewBus()
	items := content.NewNotifier(store, bus)
	e := New(store, items,
		WithBus(bus),
		WithNodeLister(store),
		WithLogger(zerolog.Nop()),
	)
	require.NoError(t, e.Dispatcher().Bind(bus))
	return &fixture{store: store, bus: bus, items: items, engine: e}
}

func ref(n, i int64) ir.ItemRef { return ir.ItemRef{Node: ir.NodeID(n), Item: ir.ItemID(i)} }

// put stores a published post.
func (f *fixture) put(r ir.ItemRef, name string) {
	f.store.Put(ir.Item{Ref: r, Name: name, Type: "post", Status: "publish"})
}

// linkTree stores parent -> children links on both endpoints.
func (f *fixture) linkTree(parent ir.ItemRef, children ...ir.ItemRef) {
	link := f.link(parent)
	for _, c := range children {
		link.SetChild(c.Node, c.Item)
		cl := f.link(c)
		p := parent
		cl.Parent = &p
		f.store.PutLink(c, cl)
	}
	f.store.PutLink(parent, link)
}

// link reads a link bypassing the engine.
func (f *fixture) link(r ir.ItemRef) ir.Link {
	link, err := f.store.GetLink(context.Background(), r)
	if err != nil {
		panic(err)
	}
	return link
}

func (f *fixture) exists(t *testing.T, r ir.ItemRef) bool {
	t.Helper()
	_, err := f.store.Fetch(context.Background(), r)
	if content.IsNotFound(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

func (f *fixture) status(t *testing.T, r ir.ItemRef) string {
	t.Helper()
	item, err := f.store.Fetch(context.Background(), r)
	require.NoError(t, err)
	return item.Status
}

func (f *fixture) linkCount(t *testing.T) int {
	t.Helper()
	records, err := f.store.Links(context.Background())
	require.NoError(t, err)
	return len(records)
}

// onNode returns a context with node active, as a node's own request would.
func onNode(node ir.NodeID) context.Context {
	return content.WithNode(context.Background(), node)
}
