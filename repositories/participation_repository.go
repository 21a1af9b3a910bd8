package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/nurlan-dev/ctf-arena/models"
)

var (
	ErrParticipationNotFound = errors.New("participation not found")
	// ErrParticipationConflict возвращается, когда стор отклоняет дубликат:
	// частичный уникальный индекс по (team_id, game_id) для не-denied заявок
	// или уникальность (user_id, game_id) по записям участников. Это
	// авторитетная защита от гонки check-then-act.
	ErrParticipationConflict    = errors.New("participation conflict: team or user already registered for this game")
	ErrParticipationTeamInvalid = errors.New("participation team conflict or invalid")
	ErrParticipationGameInvalid = errors.New("participation game conflict or invalid")
	ErrParticipationUserInvalid = errors.New("participation member user conflict or invalid")
)

type ParticipationRepository interface {
	// Create вставляет заявку и запись участника-создателя одним exec'ом;
	// атомарность обеспечивает вызывающая сторона через TxRunner.
	Create(ctx context.Context, exec SQLExecutor, p *models.Participation, creatorUserID int) error
	GetByID(ctx context.Context, id int) (*models.Participation, error)
	GetByTeamAndGame(ctx context.Context, teamID, gameID int) (*models.Participation, error)
	GetByUserAndGame(ctx context.Context, userID, gameID int) (*models.Participation, error)
	ListByGame(ctx context.Context, gameID int) ([]*models.Participation, error)
	CountByGame(ctx context.Context, gameID int) (int, error)
	CheckRepeatParticipation(ctx context.Context, userID, gameID int) (bool, error)
	ListAcceptedByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]*models.Participation, error)

	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipationStatus) error

	ListInstanceChallengeIDs(ctx context.Context, exec SQLExecutor, participationID int) ([]int, error)
	ListInstances(ctx context.Context, participationID int) ([]models.Challenge, error)
	AddInstances(ctx context.Context, exec SQLExecutor, participationID int, challengeIDs []int) error

	HasNonDeniedByUserAndGame(ctx context.Context, exec SQLExecutor, userID, gameID int) (bool, error)
	DeleteMembersByUserAndGame(ctx context.Context, exec SQLExecutor, userID, gameID int) error
}

type postgresParticipationRepository struct {
	db *sql.DB
}

func NewPostgresParticipationRepository(db *sql.DB) ParticipationRepository {
	return &postgresParticipationRepository{db: db}
}

func (r *postgresParticipationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec == nil {
		return r.db
	}
	return exec
}

func handleParticipationError(err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "participations_team_game_active_key" ||
				pqErr.Constraint == "participation_members_user_id_game_id_key" {
				return ErrParticipationConflict
			}
		case "23503": // foreign_key_violation
			switch pqErr.Constraint {
			case "participations_team_id_fkey":
				return ErrParticipationTeamInvalid
			case "participations_game_id_fkey":
				return ErrParticipationGameInvalid
			case "participation_members_user_id_fkey":
				return ErrParticipationUserInvalid
			}
		}
	}
	return err
}

func (r *postgresParticipationRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participation, creatorUserID int) error {
	exec = r.getExecutor(exec)

	query := `
		INSERT INTO participations (game_id, team_id, organization, token, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		p.GameID,
		p.TeamID,
		p.Organization,
		p.Token,
		p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create participation: %w", handleParticipationError(err))
	}

	memberQuery := `
		INSERT INTO participation_members (participation_id, user_id, game_id, team_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	member := models.ParticipationMember{
		ParticipationID: p.ID,
		UserID:          creatorUserID,
		GameID:          p.GameID,
		TeamID:          p.TeamID,
	}
	err = exec.QueryRowContext(ctx, memberQuery,
		member.ParticipationID,
		member.UserID,
		member.GameID,
		member.TeamID,
	).Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create participation member: %w", handleParticipationError(err))
	}

	p.Members = append(p.Members, member)
	return nil
}

func (r *postgresParticipationRepository) scanParticipation(rowScanner interface {
	Scan(dest ...interface{}) error
}, p *models.Participation) error {
	return rowScanner.Scan(
		&p.ID,
		&p.GameID,
		&p.TeamID,
		&p.Organization,
		&p.Token,
		&p.Status,
		&p.CreatedAt,
	)
}

func (r *postgresParticipationRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Participation, error) {
	p := &models.Participation{}
	err := r.scanParticipation(r.db.QueryRowContext(ctx, query, args...), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipationNotFound
		}
		return nil, fmt.Errorf("failed to find participation: %w", err)
	}
	return p, nil
}

func (r *postgresParticipationRepository) GetByID(ctx context.Context, id int) (*models.Participation, error) {
	query := `
		SELECT id, game_id, team_id, organization, token, status, created_at
		FROM participations WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresParticipationRepository) GetByTeamAndGame(ctx context.Context, teamID, gameID int) (*models.Participation, error) {
	query := `
		SELECT id, game_id, team_id, organization, token, status, created_at
		FROM participations WHERE team_id = $1 AND game_id = $2`
	return r.findOne(ctx, query, teamID, gameID)
}

func (r *postgresParticipationRepository) GetByUserAndGame(ctx context.Context, userID, gameID int) (*models.Participation, error) {
	query := `
		SELECT p.id, p.game_id, p.team_id, p.organization, p.token, p.status, p.created_at
		FROM participations p
		JOIN participation_members m ON m.participation_id = p.id
		WHERE m.user_id = $1 AND m.game_id = $2`
	return r.findOne(ctx, query, userID, gameID)
}

// ListByGame возвращает заявки игры, упорядоченные по team_id для
// детерминированного вывода, с командой и её составом.
func (r *postgresParticipationRepository) ListByGame(ctx context.Context, gameID int) ([]*models.Participation, error) {
	query := `
		SELECT
			p.id, p.game_id, p.team_id, p.organization, p.token, p.status, p.created_at,
			t.id, t.name, t.captain_id, t.invite_token, t.locked, t.logo_key, t.created_at
		FROM participations p
		JOIN teams t ON p.team_id = t.id
		WHERE p.game_id = $1
		ORDER BY p.team_id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participations by game: %w", err)
	}
	defer rows.Close()

	participations := make([]*models.Participation, 0)
	for rows.Next() {
		p := &models.Participation{}
		t := &models.Team{}
		err := rows.Scan(
			&p.ID, &p.GameID, &p.TeamID, &p.Organization, &p.Token, &p.Status, &p.CreatedAt,
			&t.ID, &t.Name, &t.CaptainID, &t.InviteToken, &t.Locked, &t.LogoKey, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation row: %w", err)
		}
		p.Team = t
		participations = append(participations, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participation rows: %w", err)
	}

	if err := r.populateRosters(ctx, gameID, participations); err != nil {
		return nil, err
	}
	return participations, nil
}

func (r *postgresParticipationRepository) populateRosters(ctx context.Context, gameID int, participations []*models.Participation) error {
	if len(participations) == 0 {
		return nil
	}

	query := `
		SELECT u.id, u.nickname, u.email, u.role, u.team_id, u.created_at
		FROM users u
		JOIN participation_members m ON m.user_id = u.id
		WHERE m.game_id = $1
		ORDER BY u.id`

	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return fmt.Errorf("failed to load participation rosters: %w", err)
	}
	defer rows.Close()

	byTeam := make(map[int][]models.User)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Nickname, &u.Email, &u.Role, &u.TeamID, &u.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan roster row: %w", err)
		}
		if u.TeamID != nil {
			byTeam[*u.TeamID] = append(byTeam[*u.TeamID], u)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating roster rows: %w", err)
	}

	for _, p := range participations {
		if p.Team != nil {
			p.Team.Members = byTeam[p.TeamID]
		}
	}
	return nil
}

func (r *postgresParticipationRepository) CountByGame(ctx context.Context, gameID int) (int, error) {
	query := `SELECT COUNT(*) FROM participations WHERE game_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, gameID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participations: %w", err)
	}
	return count, nil
}

// CheckRepeatParticipation: пользователь уже связан с какой-либо заявкой на
// эту игру через любую команду, независимо от статуса.
func (r *postgresParticipationRepository) CheckRepeatParticipation(ctx context.Context, userID, gameID int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM participation_members WHERE user_id = $1 AND game_id = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, gameID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check repeat participation: %w", err)
	}
	return exists, nil
}

func (r *postgresParticipationRepository) ListAcceptedByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]*models.Participation, error) {
	exec = r.getExecutor(exec)
	query := `
		SELECT id, game_id, team_id, organization, token, status, created_at
		FROM participations
		WHERE game_id = $1 AND status = $2
		ORDER BY team_id`

	rows, err := exec.QueryContext(ctx, query, gameID, models.ParticipationAccepted)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted participations: %w", err)
	}
	defer rows.Close()

	participations := make([]*models.Participation, 0)
	for rows.Next() {
		p := &models.Participation{}
		if err := r.scanParticipation(rows, p); err != nil {
			return nil, fmt.Errorf("failed to scan participation row: %w", err)
		}
		participations = append(participations, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participation rows: %w", err)
	}
	return participations, nil
}

func (r *postgresParticipationRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.ParticipationStatus) error {
	exec = r.getExecutor(exec)
	query := `UPDATE participations SET status = $1 WHERE id = $2`

	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update participation status: %w", handleParticipationError(err))
	}
	return checkAffectedRows(result, ErrParticipationNotFound)
}

func (r *postgresParticipationRepository) ListInstanceChallengeIDs(ctx context.Context, exec SQLExecutor, participationID int) ([]int, error) {
	exec = r.getExecutor(exec)
	query := `SELECT challenge_id FROM participation_instances WHERE participation_id = $1`

	rows, err := exec.QueryContext(ctx, query, participationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instance challenge ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan instance row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instance rows: %w", err)
	}
	return ids, nil
}

func (r *postgresParticipationRepository) ListInstances(ctx context.Context, participationID int) ([]models.Challenge, error) {
	query := `
		SELECT c.id, c.game_id, c.title, c.category, c.points, c.created_at
		FROM challenges c
		JOIN participation_instances i ON i.challenge_id = c.id
		WHERE i.participation_id = $1
		ORDER BY c.id`

	rows, err := r.db.QueryContext(ctx, query, participationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	challenges := make([]models.Challenge, 0)
	for rows.Next() {
		var c models.Challenge
		if err := rows.Scan(&c.ID, &c.GameID, &c.Title, &c.Category, &c.Points, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan instance challenge row: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instance challenge rows: %w", err)
	}
	return challenges, nil
}

// AddInstances добавляет недостающие задачи в instance set заявки.
// ON CONFLICT DO NOTHING делает операцию идемпотентной: повторное добавление
// уже выданной задачи — no-op, удаления здесь не бывает никогда.
func (r *postgresParticipationRepository) AddInstances(ctx context.Context, exec SQLExecutor, participationID int, challengeIDs []int) error {
	if len(challengeIDs) == 0 {
		return nil
	}
	exec = r.getExecutor(exec)

	query := `
		INSERT INTO participation_instances (participation_id, challenge_id)
		SELECT $1, unnest($2::int[])
		ON CONFLICT (participation_id, challenge_id) DO NOTHING`

	if _, err := exec.ExecContext(ctx, query, participationID, pq.Array(challengeIDs)); err != nil {
		return fmt.Errorf("failed to add instances: %w", err)
	}
	return nil
}

func (r *postgresParticipationRepository) HasNonDeniedByUserAndGame(ctx context.Context, exec SQLExecutor, userID, gameID int) (bool, error) {
	exec = r.getExecutor(exec)
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM participation_members m
			JOIN participations p ON p.id = m.participation_id
			WHERE m.user_id = $1 AND m.game_id = $2 AND p.status <> $3
		)`

	var exists bool
	if err := exec.QueryRowContext(ctx, query, userID, gameID, models.ParticipationDenied).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check non-denied participation: %w", err)
	}
	return exists, nil
}

func (r *postgresParticipationRepository) DeleteMembersByUserAndGame(ctx context.Context, exec SQLExecutor, userID, gameID int) error {
	exec = r.getExecutor(exec)
	query := `DELETE FROM participation_members WHERE user_id = $1 AND game_id = $2`

	if _, err := exec.ExecContext(ctx, query, userID, gameID); err != nil {
		return fmt.Errorf("failed to delete participation members: %w", err)
	}
	return nil
}
