package services

import (
	"context"
	"testing"

	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type teamFixture struct {
	svc   TeamService
	users *fakeUserRepo
	teams *fakeTeamRepo
}

func newTeamFixture(t *testing.T) *teamFixture {
	t.Helper()
	f := &teamFixture{
		users: newFakeUserRepo(),
		teams: newFakeTeamRepo(),
	}
	f.svc = NewTeamService(f.teams, f.users, nil)
	return f
}

func (f *teamFixture) addUser(t *testing.T, nickname string) *models.User {
	t.Helper()
	u := &models.User{Nickname: nickname, Email: nickname + "@example.com", Role: models.RolePlayer}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestCreateTeamAttachesCaptain(t *testing.T) {
	f := newTeamFixture(t)
	captain := f.addUser(t, "alice")

	team, err := f.svc.Create(context.Background(), "wreck", captain.ID)
	require.NoError(t, err)

	assert.Equal(t, captain.ID, team.CaptainID)
	assert.NotEmpty(t, team.InviteToken)
	assert.False(t, team.Locked)

	stored, err := f.users.GetByID(context.Background(), captain.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TeamID)
	assert.Equal(t, team.ID, *stored.TeamID)
}

func TestJoinLockedTeamIsRefused(t *testing.T) {
	f := newTeamFixture(t)
	captain := f.addUser(t, "alice")
	team, err := f.svc.Create(context.Background(), "wreck", captain.ID)
	require.NoError(t, err)

	require.NoError(t, f.teams.SetLocked(context.Background(), nil, team.ID, true))

	newcomer := f.addUser(t, "bob")
	_, err = f.svc.JoinByInviteToken(context.Background(), newcomer.ID, team.InviteToken)
	assert.ErrorIs(t, err, ErrTeamLocked)
}

func TestLeaveLockedTeamIsRefused(t *testing.T) {
	f := newTeamFixture(t)
	captain := f.addUser(t, "alice")
	team, err := f.svc.Create(context.Background(), "wreck", captain.ID)
	require.NoError(t, err)

	member := f.addUser(t, "bob")
	_, err = f.svc.JoinByInviteToken(context.Background(), member.ID, team.InviteToken)
	require.NoError(t, err)

	require.NoError(t, f.teams.SetLocked(context.Background(), nil, team.ID, true))

	err = f.svc.Leave(context.Background(), member.ID, team.ID)
	assert.ErrorIs(t, err, ErrTeamLocked)

	// После разблокировки выход разрешён
	require.NoError(t, f.teams.SetLocked(context.Background(), nil, team.ID, false))
	require.NoError(t, f.svc.Leave(context.Background(), member.ID, team.ID))
}

func TestCaptainCannotLeave(t *testing.T) {
	f := newTeamFixture(t)
	captain := f.addUser(t, "alice")
	team, err := f.svc.Create(context.Background(), "wreck", captain.ID)
	require.NoError(t, err)

	err = f.svc.Leave(context.Background(), captain.ID, team.ID)
	assert.ErrorIs(t, err, ErrCannotRemoveCaptain)
}

func TestRotateInviteTokenIsCaptainOnly(t *testing.T) {
	f := newTeamFixture(t)
	captain := f.addUser(t, "alice")
	team, err := f.svc.Create(context.Background(), "wreck", captain.ID)
	require.NoError(t, err)

	member := f.addUser(t, "bob")
	_, err = f.svc.JoinByInviteToken(context.Background(), member.ID, team.InviteToken)
	require.NoError(t, err)

	_, err = f.svc.RotateInviteToken(context.Background(), team.ID, member.ID)
	assert.ErrorIs(t, err, ErrCaptainActionForbidden)

	rotated, err := f.svc.RotateInviteToken(context.Background(), team.ID, captain.ID)
	require.NoError(t, err)
	assert.NotEqual(t, team.InviteToken, rotated)

	// Старый токен перестал действовать, новый работает
	stranger := f.addUser(t, "carol")
	_, err = f.svc.JoinByInviteToken(context.Background(), stranger.ID, team.InviteToken)
	assert.ErrorIs(t, err, ErrTeamNotFound)
	_, err = f.svc.JoinByInviteToken(context.Background(), stranger.ID, rotated)
	require.NoError(t, err)
}

func TestUserCannotJoinSecondTeam(t *testing.T) {
	f := newTeamFixture(t)
	captain := f.addUser(t, "alice")
	_, err := f.svc.Create(context.Background(), "wreck", captain.ID)
	require.NoError(t, err)

	other := f.addUser(t, "bob")
	team2, err := f.svc.Create(context.Background(), "crash", other.ID)
	require.NoError(t, err)

	_, err = f.svc.JoinByInviteToken(context.Background(), captain.ID, team2.InviteToken)
	assert.ErrorIs(t, err, ErrUserAlreadyInTeam)
}
