package services

import (
	"context"
	"sort"
	"time"

	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/repositories"
)

// Фейки хранят состояние в памяти и эмулируют поведение стора, включая
// уникальные ограничения на заявки. Транзакционности нет: тесты сервисов
// проверяют бизнес-логику, не работу пула соединений.

type fakeTxRunner struct{}

func (fakeTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeFlusher struct {
	flushed []int
}

func (f *fakeFlusher) FlushScoreboard(gameID int) {
	f.flushed = append(f.flushed, gameID)
}

type staticTokenSource struct{}

func (staticTokenSource) GetToken(game *models.Game, team *models.Team) (string, error) {
	return "static-token", nil
}

type fakeUserRepo struct {
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = len(r.users) + 1
	// Храним копию, как настоящий стор: мутации структуры у вызывающей
	// стороны не должны менять "записанное"
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateTeam(ctx context.Context, exec repositories.SQLExecutor, userID int, teamID *int) error {
	user, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.TeamID = teamID
	return nil
}

func (r *fakeUserRepo) ListByTeam(ctx context.Context, teamID int) ([]models.User, error) {
	var members []models.User
	for _, user := range r.users {
		if user.TeamID != nil && *user.TeamID == teamID {
			members = append(members, *user)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

type fakeTeamRepo struct {
	teams map[int]*models.Team
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team)}
}

func (r *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	for _, existing := range r.teams {
		if existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.ID = len(r.teams) + 1
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) GetByInviteToken(ctx context.Context, token string) (*models.Team, error) {
	for _, team := range r.teams {
		if team.InviteToken == token {
			copied := *team
			return &copied, nil
		}
	}
	return nil, repositories.ErrTeamNotFound
}

func (r *fakeTeamRepo) UpdateInviteToken(ctx context.Context, teamID int, token string) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.InviteToken = token
	return nil
}

func (r *fakeTeamRepo) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.LogoKey = logoKey
	return nil
}

func (r *fakeTeamRepo) SetLocked(ctx context.Context, exec repositories.SQLExecutor, teamID int, locked bool) error {
	team, ok := r.teams[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.Locked = locked
	return nil
}

type fakeGameRepo struct {
	games map[int]*models.Game
}

func newFakeGameRepo() *fakeGameRepo {
	return &fakeGameRepo{games: make(map[int]*models.Game)}
}

func (r *fakeGameRepo) Create(ctx context.Context, game *models.Game) error {
	game.ID = len(r.games) + 1
	r.games[game.ID] = game
	return nil
}

func (r *fakeGameRepo) GetByID(ctx context.Context, id int) (*models.Game, error) {
	game, ok := r.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	copied := *game
	return &copied, nil
}

func (r *fakeGameRepo) List(ctx context.Context) ([]*models.Game, error) {
	games := make([]*models.Game, 0, len(r.games))
	for _, game := range r.games {
		copied := *game
		games = append(games, &copied)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games, nil
}

func (r *fakeGameRepo) ListRunning(ctx context.Context) ([]*models.Game, error) {
	games, _ := r.List(ctx)
	running := make([]*models.Game, 0, len(games))
	for _, game := range games {
		if game.IsRunning(time.Now()) {
			running = append(running, game)
		}
	}
	return running, nil
}

func (r *fakeGameRepo) Update(ctx context.Context, game *models.Game) error {
	if _, ok := r.games[game.ID]; !ok {
		return repositories.ErrGameNotFound
	}
	r.games[game.ID] = game
	return nil
}

func (r *fakeGameRepo) UpdatePosterKey(ctx context.Context, gameID int, posterKey *string) error {
	game, ok := r.games[gameID]
	if !ok {
		return repositories.ErrGameNotFound
	}
	game.PosterKey = posterKey
	return nil
}

type fakeChallengeRepo struct {
	nextID     int
	challenges map[int]*models.Challenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{challenges: make(map[int]*models.Challenge)}
}

func (r *fakeChallengeRepo) Create(ctx context.Context, challenge *models.Challenge) error {
	r.nextID++
	challenge.ID = r.nextID
	r.challenges[challenge.ID] = challenge
	return nil
}

func (r *fakeChallengeRepo) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	challenge, ok := r.challenges[id]
	if !ok {
		return nil, repositories.ErrChallengeNotFound
	}
	copied := *challenge
	return &copied, nil
}

func (r *fakeChallengeRepo) ListByGame(ctx context.Context, exec repositories.SQLExecutor, gameID int) ([]models.Challenge, error) {
	result := make([]models.Challenge, 0)
	for _, challenge := range r.challenges {
		if challenge.GameID == gameID {
			result = append(result, *challenge)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeChallengeRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.challenges[id]; !ok {
		return repositories.ErrChallengeNotFound
	}
	delete(r.challenges, id)
	return nil
}

type fakeParticipationRepo struct {
	nextID         int
	participations map[int]*models.Participation
	members        []models.ParticipationMember
	instances      map[int]map[int]struct{}
}

func newFakeParticipationRepo() *fakeParticipationRepo {
	return &fakeParticipationRepo{
		participations: make(map[int]*models.Participation),
		instances:      make(map[int]map[int]struct{}),
	}
}

// Create эмулирует оба уникальных ограничения стора: одну не-denied заявку
// на пару (team, game) и одну запись участника на пару (user, game).
func (r *fakeParticipationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, p *models.Participation, creatorUserID int) error {
	for _, existing := range r.participations {
		if existing.TeamID == p.TeamID && existing.GameID == p.GameID && existing.Status != models.ParticipationDenied {
			return repositories.ErrParticipationConflict
		}
	}
	for _, m := range r.members {
		if m.UserID == creatorUserID && m.GameID == p.GameID {
			return repositories.ErrParticipationConflict
		}
	}

	r.nextID++
	p.ID = r.nextID
	r.participations[p.ID] = p

	member := models.ParticipationMember{
		ID:              len(r.members) + 1,
		ParticipationID: p.ID,
		UserID:          creatorUserID,
		GameID:          p.GameID,
		TeamID:          p.TeamID,
	}
	r.members = append(r.members, member)
	p.Members = append(p.Members, member)
	return nil
}

func (r *fakeParticipationRepo) GetByID(ctx context.Context, id int) (*models.Participation, error) {
	p, ok := r.participations[id]
	if !ok {
		return nil, repositories.ErrParticipationNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipationRepo) GetByTeamAndGame(ctx context.Context, teamID, gameID int) (*models.Participation, error) {
	for _, p := range r.participations {
		if p.TeamID == teamID && p.GameID == gameID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipationNotFound
}

func (r *fakeParticipationRepo) GetByUserAndGame(ctx context.Context, userID, gameID int) (*models.Participation, error) {
	for _, m := range r.members {
		if m.UserID == userID && m.GameID == gameID {
			return r.GetByID(ctx, m.ParticipationID)
		}
	}
	return nil, repositories.ErrParticipationNotFound
}

func (r *fakeParticipationRepo) ListByGame(ctx context.Context, gameID int) ([]*models.Participation, error) {
	result := make([]*models.Participation, 0)
	for _, p := range r.participations {
		if p.GameID == gameID {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TeamID < result[j].TeamID })
	return result, nil
}

func (r *fakeParticipationRepo) CountByGame(ctx context.Context, gameID int) (int, error) {
	count := 0
	for _, p := range r.participations {
		if p.GameID == gameID {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipationRepo) CheckRepeatParticipation(ctx context.Context, userID, gameID int) (bool, error) {
	for _, m := range r.members {
		if m.UserID == userID && m.GameID == gameID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeParticipationRepo) ListAcceptedByGame(ctx context.Context, exec repositories.SQLExecutor, gameID int) ([]*models.Participation, error) {
	result := make([]*models.Participation, 0)
	for _, p := range r.participations {
		if p.GameID == gameID && p.Status == models.ParticipationAccepted {
			copied := *p
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TeamID < result[j].TeamID })
	return result, nil
}

func (r *fakeParticipationRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.ParticipationStatus) error {
	p, ok := r.participations[id]
	if !ok {
		return repositories.ErrParticipationNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeParticipationRepo) ListInstanceChallengeIDs(ctx context.Context, exec repositories.SQLExecutor, participationID int) ([]int, error) {
	ids := make([]int, 0)
	for id := range r.instances[participationID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeParticipationRepo) ListInstances(ctx context.Context, participationID int) ([]models.Challenge, error) {
	ids, _ := r.ListInstanceChallengeIDs(ctx, nil, participationID)
	challenges := make([]models.Challenge, 0, len(ids))
	for _, id := range ids {
		challenges = append(challenges, models.Challenge{ID: id})
	}
	return challenges, nil
}

func (r *fakeParticipationRepo) AddInstances(ctx context.Context, exec repositories.SQLExecutor, participationID int, challengeIDs []int) error {
	set, ok := r.instances[participationID]
	if !ok {
		set = make(map[int]struct{})
		r.instances[participationID] = set
	}
	for _, id := range challengeIDs {
		set[id] = struct{}{}
	}
	return nil
}

func (r *fakeParticipationRepo) HasNonDeniedByUserAndGame(ctx context.Context, exec repositories.SQLExecutor, userID, gameID int) (bool, error) {
	for _, m := range r.members {
		if m.UserID != userID || m.GameID != gameID {
			continue
		}
		if p, ok := r.participations[m.ParticipationID]; ok && p.Status != models.ParticipationDenied {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeParticipationRepo) DeleteMembersByUserAndGame(ctx context.Context, exec repositories.SQLExecutor, userID, gameID int) error {
	kept := r.members[:0]
	for _, m := range r.members {
		if m.UserID == userID && m.GameID == gameID {
			continue
		}
		kept = append(kept, m)
	}
	r.members = kept
	return nil
}
