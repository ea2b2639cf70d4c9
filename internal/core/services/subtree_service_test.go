package services

import (
	"context"
	"testing"

	"sponsornet/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownlineIDs_ExcludesRootAndSiblings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	a := env.addMember(t, "A", root)
	b := env.addMember(t, "B", root)
	a1 := env.addMember(t, "A1", a)
	a2 := env.addMember(t, "A2", a)
	a11 := env.addMember(t, "A11", a1)
	env.addMember(t, "B1", b)

	ids, err := env.subtree.DownlineIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a1.ID, a2.ID, a11.ID}, ids)
	assert.NotContains(t, ids, a.ID)

	ids, err = env.subtree.DownlineIDs(ctx, a11.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = env.subtree.DownlineIDs(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestIsInDownline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	a := env.addMember(t, "A", root)
	a1 := env.addMember(t, "A1", a)
	b := env.addMember(t, "B", root)

	ok, err := env.subtree.IsInDownline(ctx, root.ID, a1.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.subtree.IsInDownline(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = env.subtree.IsInDownline(ctx, a.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanAccess_Symmetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	a := env.addMember(t, "A", root)
	a1 := env.addMember(t, "A1", a)
	b := env.addMember(t, "B", root)

	cases := []struct {
		viewer, target uint
		want           bool
	}{
		{a.ID, a.ID, true},
		{a.ID, a1.ID, true},
		{a1.ID, a.ID, false},
		{a.ID, b.ID, false},
		{b.ID, a1.ID, false},
		{root.ID, a1.ID, true},
		{a.ID, 99999, false},
	}
	for _, tc := range cases {
		got, err := env.subtree.CanAccess(ctx, tc.viewer, tc.target)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "viewer=%d target=%d", tc.viewer, tc.target)
	}

	assert.ErrorIs(t, env.subtree.Authorize(ctx, a1.ID, domain.RoleAssociate, a.ID), domain.ErrForbidden)
	// unknown ids look the same as members outside the downline
	assert.ErrorIs(t, env.subtree.Authorize(ctx, a.ID, domain.RoleAssociate, 99999), domain.ErrForbidden)
	assert.ErrorIs(t, env.subtree.Authorize(ctx, a.ID, domain.RoleAssociate, b.ID), domain.ErrForbidden)
	assert.NoError(t, env.subtree.Authorize(ctx, b.ID, domain.RoleAdmin, a1.ID))
}

func TestClampDepth(t *testing.T) {
	svc := NewSubtreeService(nil, TreeLimits{MemberMaxDepth: 5, AdminMaxDepth: 12, DefaultDepth: 3})

	assert.Equal(t, 3, svc.ClampDepth(0, false))
	assert.Equal(t, 3, svc.ClampDepth(-2, true))
	assert.Equal(t, 4, svc.ClampDepth(4, false))
	assert.Equal(t, 5, svc.ClampDepth(50, false))
	assert.Equal(t, 12, svc.ClampDepth(50, true))
}

func TestBoundedSubtree_DepthAndExpansion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	l1 := env.addMember(t, "L1", root)
	l2 := env.addMember(t, "L2", l1)
	l3 := env.addMember(t, "L3", l2)
	l3b := env.addMember(t, "L3b", l2)
	l4 := env.addMember(t, "L4", l3)

	nodes, err := env.subtree.BoundedSubtree(ctx, SubtreeRequest{RootID: root.ID, MaxDepth: 2})
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, root.ID, nodes[0].ID)
	assert.Nil(t, nodes[0].ParentID)
	assert.Equal(t, 0, nodes[0].Depth)
	assert.Equal(t, l2.ID, nodes[2].ID)
	assert.Equal(t, 2, nodes[2].Depth)
	assert.Equal(t, int64(2), nodes[2].ChildrenCount)

	// expanding l2 reveals exactly its children, not their children
	nodes, err = env.subtree.BoundedSubtree(ctx, SubtreeRequest{
		RootID:   root.ID,
		MaxDepth: 2,
		Expanded: []uint{l2.ID},
	})
	require.NoError(t, err)
	ids := make([]uint, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	assert.ElementsMatch(t, []uint{root.ID, l1.ID, l2.ID, l3.ID, l3b.ID}, ids)
	assert.NotContains(t, ids, l4.ID)

	// breadth-first order: depths never decrease
	for i := 1; i < len(nodes); i++ {
		assert.GreaterOrEqual(t, nodes[i].Depth, nodes[i-1].Depth)
	}
}

func TestBoundedSubtree_ClampsClientDepth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.subtree = NewSubtreeService(env.members, TreeLimits{MemberMaxDepth: 2, AdminMaxDepth: 4, DefaultDepth: 1})

	prev := env.addMember(t, "N0", nil)
	root := prev
	for _, name := range []string{"N1", "N2", "N3", "N4", "N5"} {
		prev = env.addMember(t, name, prev)
	}

	nodes, err := env.subtree.BoundedSubtree(ctx, SubtreeRequest{RootID: root.ID, MaxDepth: 100})
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	nodes, err = env.subtree.BoundedSubtree(ctx, SubtreeRequest{RootID: root.ID, MaxDepth: 100, Admin: true})
	require.NoError(t, err)
	assert.Len(t, nodes, 5)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	a := env.addMember(t, "A", root)
	b := env.addMember(t, "B", root)
	env.addMember(t, "A1", a)
	require.NoError(t, env.members.UpdateStatus(ctx, b.ID, string(domain.StatusSuspended)))

	stats, err := env.subtree.Stats(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DirectCount)
	assert.Equal(t, 3, stats.DownlineCount)
	assert.Equal(t, 2, stats.ActiveDownline)
}
