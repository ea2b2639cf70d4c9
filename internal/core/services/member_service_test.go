package services

import (
	"context"
	"testing"

	"sponsornet/internal/core/domain"
	"sponsornet/internal/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinInput(name, code string) *JoinInput {
	return &JoinInput{
		InviteCode: code,
		Name:       name,
		Email:      name + "@example.com",
		City:       "Pune",
		Password:   "secret-pass",
	}
}

func TestJoin_FirstMemberIsRootAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	out, err := env.member.Join(ctx, joinInput("root", ""))
	require.NoError(t, err)
	assert.Nil(t, out.Member.SponsorID)
	assert.Empty(t, out.Path)
	assert.Equal(t, string(domain.RoleAdmin), out.Member.Role)
	assert.NotEmpty(t, out.InviteCode)
	assert.Empty(t, out.SponsorNewCode)

	// second join needs a code
	_, err = env.member.Join(ctx, joinInput("second", ""))
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestJoin_UnderSponsor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root, err := env.member.Join(ctx, joinInput("root", ""))
	require.NoError(t, err)

	a, err := env.member.Join(ctx, joinInput("alice", root.InviteCode))
	require.NoError(t, err)
	assert.Equal(t, []uint{root.Member.ID}, a.Path)
	assert.Equal(t, string(domain.RoleAssociate), a.Member.Role)
	assert.NotEmpty(t, a.SponsorNewCode)
	assert.NotEqual(t, root.InviteCode, a.SponsorNewCode)

	// the consumed code is gone
	_, err = env.member.Join(ctx, joinInput("bob", root.InviteCode))
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	b, err := env.member.Join(ctx, joinInput("bob", a.InviteCode))
	require.NoError(t, err)
	assert.Equal(t, []uint{root.Member.ID, a.Member.ID}, b.Path)

	c, err := env.member.Join(ctx, joinInput("carol", a.SponsorNewCode))
	require.NoError(t, err)
	assert.Equal(t, []uint{root.Member.ID}, c.Path)

	env.requireConsistent(t)

	for _, id := range []uint{root.Member.ID, a.Member.ID, b.Member.ID, c.Member.ID} {
		unused, err := env.codes.ListUnusedByOwner(ctx, id)
		require.NoError(t, err)
		assert.Len(t, unused, 1, "member %d", id)
	}
	assert.Contains(t, env.audit.actions(), domain.ActionMemberJoined)
	assert.Contains(t, env.audit.actions(), domain.ActionCodeConsumed)
}

func TestJoin_EmailTaken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root, err := env.member.Join(ctx, joinInput("root", ""))
	require.NoError(t, err)

	dup := joinInput("root", root.InviteCode)
	dup.Email = "ROOT@example.com"
	_, err = env.member.Join(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	// code was not consumed by the failed join
	_, err = env.invites.ResolveActiveCode(ctx, root.InviteCode)
	assert.NoError(t, err)
}

func TestJoin_InactiveSponsor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root, err := env.member.Join(ctx, joinInput("root", ""))
	require.NoError(t, err)
	require.NoError(t, env.member.ChangeStatus(ctx, root.Member.ID, root.Member.ID, domain.StatusSuspended))

	_, err = env.member.Join(ctx, joinInput("alice", root.InviteCode))
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestChangeStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.addMember(t, "M", nil)

	assert.ErrorIs(t, env.member.ChangeStatus(ctx, 1, m.ID, domain.Status("BOGUS")), domain.ErrInvalidStatus)
	assert.ErrorIs(t, env.member.ChangeStatus(ctx, 1, 9999, domain.StatusActive), domain.ErrMemberNotFound)

	require.NoError(t, env.member.ChangeStatus(ctx, 1, m.ID, domain.StatusDeactivated))
	assert.Equal(t, string(domain.StatusDeactivated), env.reload(t, m).Status)
	assert.Contains(t, env.audit.actions(), domain.ActionStatusChange)
}

func TestChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.addMember(t, "M", nil)

	assert.ErrorIs(t, env.member.ChangeRole(ctx, 1, m.ID, domain.Role("CEO")), domain.ErrInvalidRole)
	require.NoError(t, env.member.ChangeRole(ctx, 1, m.ID, domain.RoleManager))
	assert.Equal(t, string(domain.RoleManager), env.reload(t, m).Role)
}

func TestDeleteLeaf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.addMember(t, "Root", nil)
	leaf := env.addMember(t, "Leaf", root)
	_, err := env.invites.EnsureActiveCode(ctx, leaf.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.member.DeleteLeaf(ctx, root.ID, root.ID), domain.ErrHasChildren)

	require.NoError(t, env.member.DeleteLeaf(ctx, root.ID, leaf.ID))
	_, err = env.member.GetMember(ctx, leaf.ID)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	unused, err := env.codes.ListUnusedByOwner(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Empty(t, unused)

	require.NoError(t, env.member.DeleteLeaf(ctx, root.ID, root.ID))
}

func TestBootstrapRoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root, err := env.member.BootstrapRoot(ctx, &RootInput{Name: "Admin", Email: "Admin@Example.com", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", root.Email)
	assert.NotEmpty(t, env.reload(t, root).ActiveInviteCode)

	_, err = env.member.BootstrapRoot(ctx, &RootInput{Name: "Other", Email: "o@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, domain.ErrTreeNotEmpty)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	out, err := env.member.Join(ctx, joinInput("root", ""))
	require.NoError(t, err)

	res, err := env.auth.Login(ctx, &LoginInput{Email: "Root@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	claims, err := jwt.ValidateAccessToken(res.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, out.Member.ID, claims.MemberID)
	assert.Equal(t, string(domain.RoleAdmin), claims.Role)

	_, err = env.auth.Login(ctx, &LoginInput{Email: "root@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, &LoginInput{Email: "nobody@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, env.member.ChangeStatus(ctx, 1, out.Member.ID, domain.StatusSuspended))
	_, err = env.auth.Login(ctx, &LoginInput{Email: "root@example.com", Password: "secret-pass"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
