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
	ErrTeamNotFound            = errors.New("team not found")
	ErrTeamNameConflict        = errors.New("team name already in use")
	ErrTeamInviteTokenConflict = errors.New("team invite token conflict")
	ErrTeamCaptainInvalid      = errors.New("team captain conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetByInviteToken(ctx context.Context, token string) (*models.Team, error)
	UpdateInviteToken(ctx context.Context, teamID int, token string) error
	UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error
	// SetLocked переключает блокировку состава; вызывается внутри транзакции
	// смены статуса заявки.
	SetLocked(ctx context.Context, exec SQLExecutor, teamID int, locked bool) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, captain_id, invite_token, locked)
		VALUES ($1, $2, $3, false)
		RETURNING id, locked, created_at`

	err := r.db.QueryRowContext(ctx, query,
		team.Name,
		team.CaptainID,
		team.InviteToken,
	).Scan(&team.ID, &team.Locked, &team.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "teams_name_key" {
					return ErrTeamNameConflict
				}
				if pqErr.Constraint == "teams_invite_token_key" {
					return ErrTeamInviteTokenConflict
				}
			case "23503":
				if pqErr.Constraint == "teams_captain_id_fkey" {
					return ErrTeamCaptainInvalid
				}
			}
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *postgresTeamRepository) findOne(ctx context.Context, query string, args ...interface{}) (*models.Team, error) {
	team := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&team.ID,
		&team.Name,
		&team.CaptainID,
		&team.InviteToken,
		&team.Locked,
		&team.LogoKey,
		&team.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return team, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, name, captain_id, invite_token, locked, logo_key, created_at FROM teams WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *postgresTeamRepository) GetByInviteToken(ctx context.Context, token string) (*models.Team, error) {
	query := `SELECT id, name, captain_id, invite_token, locked, logo_key, created_at FROM teams WHERE invite_token = $1`
	return r.findOne(ctx, query, token)
}

func (r *postgresTeamRepository) UpdateInviteToken(ctx context.Context, teamID int, token string) error {
	query := `UPDATE teams SET invite_token = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, token, teamID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrTeamInviteTokenConflict
		}
		return fmt.Errorf("failed to update team invite token: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	query := `UPDATE teams SET logo_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, logoKey, teamID)
	if err != nil {
		return fmt.Errorf("failed to update team logo: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SetLocked(ctx context.Context, exec SQLExecutor, teamID int, locked bool) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE teams SET locked = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, locked, teamID)
	if err != nil {
		return fmt.Errorf("failed to update team lock: %w", err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
