package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/linkcast/internal/hooks"
	"github.com/roach88/linkcast/internal/ir"
	"github.com/roach88/linkcast/internal/memstore"
)

func scanOutcome(t *testing.T, report *ScanReport, node ir.NodeID) NodeScan {
	t.Helper()
	for _, ns := range report.Nodes {
		if ns.Node == node {
			return ns
		}
	}
	t.Fatalf("no scan result for node %d", node)
	return NodeScan{}
}

func TestFindUnlinked_SingleMatchAdopted(t *testing.T) {
	f := newFixture(t, 1, 2)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(2, 7), "hello")
	f.put(ref(2, 8), "other")

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Adopted())
	ns := scanOutcome(t, report, 2)
	assert.Equal(t, ScanAdopted, ns.Outcome)
	assert.Equal(t, ir.ItemID(7), ns.Item)

	require.NotNil(t, f.link(ref(2, 7)).Parent)
	assert.Equal(t, origin, *f.link(ref(2, 7)).Parent)
	id, ok := f.link(origin).Child(2)
	require.True(t, ok)
	assert.Equal(t, ir.ItemID(7), id)
}

func TestFindUnlinked_AmbiguousAdoptsNeither(t *testing.T) {
	f := newFixture(t, 1, 2)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(2, 7), "hello")
	f.put(ref(2, 8), "hello")

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2})
	require.NoError(t, err)

	ns := scanOutcome(t, report, 2)
	assert.Equal(t, ScanAmbiguous, ns.Outcome)
	assert.Equal(t, 2, ns.Candidates)
	assert.Zero(t, report.Adopted())
	assert.Equal(t, 0, f.linkCount(t), "link count unchanged")
}

func TestFindUnlinked_MatchesNameTypeAndStatus(t *testing.T) {
	f := newFixture(t, 1, 2, 3, 4)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.store.Put(ir.Item{Ref: ref(2, 1), Name: "hello", Type: "page", Status: "publish"})
	f.store.Put(ir.Item{Ref: ref(3, 1), Name: "hello", Type: "post", Status: "draft"})
	f.store.Put(ir.Item{Ref: ref(4, 1), Name: "hello-2", Type: "post", Status: "publish"})

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2, 3, 4})
	require.NoError(t, err)

	for _, n := range []ir.NodeID{2, 3, 4} {
		assert.Equal(t, ScanNone, scanOutcome(t, report, n).Outcome, "node %d", n)
	}
}

func TestFindUnlinked_NormalizedSlugs(t *testing.T) {
	f := newFixture(t, 1, 2)
	origin := ref(1, 1)
	f.put(origin, "cafe\u0301")
	f.put(ref(2, 3), "caf\u00e9")

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2})
	require.NoError(t, err)
	assert.Equal(t, ScanAdopted, scanOutcome(t, report, 2).Outcome)
}

func TestFindUnlinked_ConflictingCandidate(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(2, 7), "hello")
	f.put(ref(3, 7), "hello")
	// 2:7 is already the root of another tree.
	f.linkTree(ref(2, 7), ref(3, 7))

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2, 3})
	require.NoError(t, err)

	assert.Equal(t, ScanConflict, scanOutcome(t, report, 2).Outcome, "candidate with children")
	assert.Equal(t, ScanConflict, scanOutcome(t, report, 3).Outcome, "candidate with a parent")
	assert.True(t, f.link(origin).IsEmpty())
}

func TestFindUnlinked_SkipsOwnAndLinkedNodes(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(1, 2), "hello")
	f.put(ref(2, 1), "hello")
	f.put(ref(3, 1), "hello")
	f.linkTree(origin, ref(2, 1))

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{1, 2, 3, 3})
	require.NoError(t, err)

	require.Len(t, report.Nodes, 2, "origin node skipped, duplicates ignored")
	assert.Equal(t, ScanAlreadyLinked, scanOutcome(t, report, 2).Outcome)
	assert.Equal(t, ScanAdopted, scanOutcome(t, report, 3).Outcome)
	assert.Len(t, f.link(origin).Children, 2)
}

func TestFindUnlinked_DefaultTargetsFromNodeLister(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(2, 1), "hello")
	f.put(ref(3, 1), "hello")

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Adopted())
}

func TestFindUnlinked_ScanNodesHookNarrowsTargets(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(2, 1), "hello")
	f.put(ref(3, 1), "hello")
	require.NoError(t, f.bus.Register(hooks.EventScanNodes, func(ctx context.Context, payload any) (any, error) {
		assert.Equal(t, []ir.NodeID{1, 2, 3}, payload.(hooks.ScanNodes).Nodes)
		return []ir.NodeID{3}, nil
	}))

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, nil)
	require.NoError(t, err)

	require.Len(t, report.Nodes, 1)
	assert.Equal(t, ir.NodeID(3), report.Nodes[0].Node)
}

func TestFindUnlinked_FilterCandidatesHook(t *testing.T) {
	f := newFixture(t, 1, 2)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(2, 7), "hello")
	f.put(ref(2, 8), "hello")
	require.NoError(t, f.bus.Register(hooks.EventFilterCandidates, func(ctx context.Context, payload any) (any, error) {
		c := payload.(hooks.Candidates)
		require.Len(t, c.Candidates, 2)
		return c.Candidates[1:], nil
	}))

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2})
	require.NoError(t, err)

	ns := scanOutcome(t, report, 2)
	assert.Equal(t, ScanAdopted, ns.Outcome)
	assert.Equal(t, ir.ItemID(8), ns.Item)
}

func TestFindUnlinked_ParentDisambiguates(t *testing.T) {
	f := newFixture(t, 1, 2)
	section := ref(1, 1)
	origin := ref(1, 2)
	f.put(section, "docs")
	f.store.Put(ir.Item{Ref: origin, Name: "intro", Type: "post", Status: "publish", Parent: section.Item})

	// Node 2 has the section's counterpart and two "intro" pages under
	// different parents.
	f.put(ref(2, 10), "docs")
	f.put(ref(2, 11), "blog")
	f.linkTree(section, ref(2, 10))
	f.store.Put(ir.Item{Ref: ref(2, 20), Name: "intro", Type: "post", Status: "publish", Parent: 11})
	f.store.Put(ir.Item{Ref: ref(2, 21), Name: "intro", Type: "post", Status: "publish", Parent: 10})

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2})
	require.NoError(t, err)

	ns := scanOutcome(t, report, 2)
	assert.Equal(t, ScanAdopted, ns.Outcome)
	assert.Equal(t, ir.ItemID(21), ns.Item)
	assert.Equal(t, 1, ns.Candidates)
}

func TestFindUnlinked_RedirectsToLinkedParent(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	root, child := ref(1, 1), ref(2, 1)
	f.put(root, "hello")
	f.put(child, "hello")
	f.put(ref(3, 1), "hello")
	f.linkTree(root, child)

	report, err := f.engine.FindUnlinkedChildren(context.Background(), child, []ir.NodeID{3})
	require.NoError(t, err)

	assert.Equal(t, child, report.Requested)
	assert.Equal(t, root, report.Origin)
	assert.Equal(t, ScanAdopted, scanOutcome(t, report, 3).Outcome)
	require.NotNil(t, f.link(ref(3, 1)).Parent)
	assert.Equal(t, root, *f.link(ref(3, 1)).Parent, "adopted under the root, not the child")
	assert.Len(t, f.link(root).Children, 2)
}

func TestFindUnlinked_WriteFailureLeavesNoHalfLink(t *testing.T) {
	f := newFixture(t, 1, 2)
	origin := ref(1, 1)
	f.put(origin, "hello")
	f.put(ref(2, 7), "hello")
	f.store.Fail(memstore.OpSetLink, origin, errBoom)

	report, err := f.engine.FindUnlinkedChildren(context.Background(), origin, []ir.NodeID{2})
	require.NoError(t, err, "per-node failures are reported, not raised")

	ns := scanOutcome(t, report, 2)
	assert.Equal(t, ScanFailed, ns.Outcome)
	assert.ErrorIs(t, ns.Err, errBoom)
	assert.Equal(t, 0, f.linkCount(t))
}

func TestFindUnlinked_MissingOrigin(t *testing.T) {
	f := newFixture(t, 1, 2)
	_, err := f.engine.FindUnlinkedChildren(context.Background(), ref(1, 99), []ir.NodeID{2})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
