package services

import (
	"context"
	"testing"

	"sponsornet/internal/adapters/persistence/models"
	"sponsornet/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint { return &v }

func TestReassignSponsor_SelfReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	x := env.addMember(t, "X", root)

	err := env.paths.ReassignSponsor(ctx, root.ID, x.ID, uintPtr(x.ID))
	assert.ErrorIs(t, err, domain.ErrSelfReference)
	assert.Equal(t, root.ID, *env.reload(t, x).SponsorID)
}

func TestReassignSponsor_Cycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.addMember(t, "A", nil)
	b := env.addMember(t, "B", a)
	c := env.addMember(t, "C", b)

	err := env.paths.ReassignSponsor(ctx, a.ID, a.ID, uintPtr(c.ID))
	assert.ErrorIs(t, err, domain.ErrCycleDetected)

	// nothing changed
	assert.Nil(t, env.reload(t, a).SponsorID)
	assert.Equal(t, b.ChildPath(), env.reload(t, c).Path)
	env.requireConsistent(t)
}

func TestReassignSponsor_SponsorNotFound(t *testing.T) {
	env := newTestEnv(t)
	a := env.addMember(t, "A", nil)
	b := env.addMember(t, "B", a)

	err := env.paths.ReassignSponsor(context.Background(), a.ID, b.ID, uintPtr(9999))
	assert.ErrorIs(t, err, domain.ErrSponsorNotFound)
}

func TestReassignSponsor_InactiveSponsor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	a := env.addMember(t, "A", root)
	b := env.addMember(t, "B", root)
	require.NoError(t, env.members.UpdateStatus(ctx, b.ID, string(domain.StatusSuspended)))

	err := env.paths.ReassignSponsor(ctx, root.ID, a.ID, uintPtr(b.ID))
	assert.ErrorIs(t, err, domain.ErrSponsorInactive)
	assert.Equal(t, root.ID, *env.reload(t, a).SponsorID)
	assert.NotContains(t, env.audit.actions(), domain.ActionReassignSponsor)

	require.NoError(t, env.members.UpdateStatus(ctx, b.ID, string(domain.StatusActive)))
	require.NoError(t, env.paths.ReassignSponsor(ctx, root.ID, a.ID, uintPtr(b.ID)))
	assert.Equal(t, b.ChildPath(), env.reload(t, a).Path)
	env.requireConsistent(t)
}

func TestReassignSponsor_MemberNotFound(t *testing.T) {
	env := newTestEnv(t)
	a := env.addMember(t, "A", nil)

	err := env.paths.ReassignSponsor(context.Background(), a.ID, 9999, uintPtr(a.ID))
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestReassignSponsor_CascadesToDepthFour(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	other := env.addMember(t, "Other", root)
	x := env.addMember(t, "X", root)
	d1 := env.addMember(t, "D1", x)
	d2 := env.addMember(t, "D2", d1)
	d3 := env.addMember(t, "D3", d2)
	d4 := env.addMember(t, "D4", d3)
	sib := env.addMember(t, "Sib", d1)

	require.NoError(t, env.paths.ReassignSponsor(ctx, root.ID, x.ID, uintPtr(other.ID)))

	movedX := env.reload(t, x)
	assert.Equal(t, []uint{root.ID, other.ID}, movedX.PathIDs())
	assert.Equal(t, []uint{root.ID, other.ID, x.ID, d1.ID, d2.ID, d3.ID}, env.reload(t, d4).PathIDs())
	assert.Equal(t, []uint{root.ID, other.ID, x.ID, d1.ID}, env.reload(t, sib).PathIDs())

	env.requireConsistent(t)
	assert.Contains(t, env.audit.actions(), domain.ActionReassignSponsor)
}

func TestReassignSponsor_ToRoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	x := env.addMember(t, "X", root)
	y := env.addMember(t, "Y", x)

	require.NoError(t, env.paths.ReassignSponsor(ctx, root.ID, x.ID, nil))

	assert.Nil(t, env.reload(t, x).SponsorID)
	assert.Equal(t, "", env.reload(t, x).Path)
	assert.Equal(t, []uint{x.ID}, env.reload(t, y).PathIDs())
	env.requireConsistent(t)
}

func TestInvariantPreservation_RandomishSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	nodes := []*models.Member{root}
	for i := 0; i < 12; i++ {
		parent := nodes[(i*7)%len(nodes)]
		nodes = append(nodes, env.addMember(t, "M"+string(rune('a'+i)), parent))
		env.requireConsistent(t)
	}

	moves := [][2]int{{3, 1}, {5, 12}, {2, 9}, {8, 4}, {12, 6}, {1, 11}}
	for _, mv := range moves {
		mover, target := nodes[mv[0]], nodes[mv[1]]
		err := env.paths.ReassignSponsor(ctx, root.ID, mover.ID, uintPtr(target.ID))
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrCycleDetected)
		}
		env.requireConsistent(t)
	}
}

func TestRecomputePath_RepairsSubtree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	x := env.addMember(t, "X", root)
	y := env.addMember(t, "Y", x)

	require.NoError(t, env.members.UpdatePath(ctx, x.ID, "77"))
	require.NoError(t, env.members.UpdatePath(ctx, y.ID, "77/2"))

	require.NoError(t, env.paths.RecomputePath(ctx, 0, x.ID))
	env.requireConsistent(t)
	assert.Equal(t, []uint{root.ID, x.ID}, env.reload(t, y).PathIDs())

	// every repair leaves an audit trail with the old and new path
	require.Equal(t, []string{domain.ActionPathRecompute}, env.audit.actions())
	e := env.audit.events[0]
	assert.Equal(t, uint(0), e.ActorID)
	assert.Equal(t, x.ID, e.EntityID)
	assert.Equal(t, "77", e.Before["path"])
	assert.Equal(t, env.reload(t, x).Path, e.After["path"])
	assert.Equal(t, 2, e.After["touched"])

	err := env.paths.RecomputePath(ctx, root.ID, 99999)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	assert.Len(t, env.audit.actions(), 1)
}

func TestUpline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.addMember(t, "A", nil)
	b := env.addMember(t, "B", a)
	c := env.addMember(t, "C", b)
	d := env.addMember(t, "D", c)

	up, err := env.paths.Upline(ctx, d.ID, 2)
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, c.ID, up[0].ID)
	assert.Equal(t, b.ID, up[1].ID)

	up, err = env.paths.Upline(ctx, b.ID, 5)
	require.NoError(t, err)
	require.Len(t, up, 1)
	assert.Equal(t, a.ID, up[0].ID)

	_, err = env.paths.Upline(ctx, 9999, 2)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestConsistencyCheck_ReportsViolations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	x := env.addMember(t, "X", root)
	y := env.addMember(t, "Y", x)
	z := env.addMember(t, "Z", root)

	// ancestry: wrong path under a valid sponsor
	require.NoError(t, env.members.UpdatePath(ctx, y.ID, "5"))
	// rootedness: root with a path
	require.NoError(t, env.members.UpdatePath(ctx, root.ID, "42"))
	// dangling: sponsor points nowhere
	require.NoError(t, env.members.UpdateSponsor(ctx, z.ID, uintPtr(9999)))

	report, err := env.paths.ConsistencyCheck(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), report.Checked)
	assert.False(t, report.OK())

	kinds := map[uint][]domain.ViolationKind{}
	for _, v := range report.Violations {
		kinds[v.MemberID] = append(kinds[v.MemberID], v.Kind)
	}
	assert.Contains(t, kinds[y.ID], domain.ViolationAncestry)
	assert.Contains(t, kinds[root.ID], domain.ViolationRootedness)
	assert.Contains(t, kinds[z.ID], domain.ViolationDanglingSponsor)
	// x's expected path derives from root's broken path
	assert.Contains(t, kinds[x.ID], domain.ViolationAncestry)
}

func TestConsistencyCheck_SelfInPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	x := env.addMember(t, "X", root)
	require.NoError(t, env.members.UpdatePath(ctx, x.ID, models.FormatPath([]uint{root.ID, x.ID})))

	report, err := env.paths.ConsistencyCheck(ctx)
	require.NoError(t, err)

	var found bool
	for _, v := range report.Violations {
		if v.MemberID == x.ID && v.Kind == domain.ViolationCycle {
			found = true
		}
	}
	assert.True(t, found)
}
