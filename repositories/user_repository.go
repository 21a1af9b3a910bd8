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
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("user email already in use")
	ErrUserNicknameConflict = errors.New("user nickname already in use")
	ErrUserTeamInvalid      = errors.New("user team conflict or invalid")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateTeam(ctx context.Context, exec SQLExecutor, userID int, teamID *int) error
	ListByTeam(ctx context.Context, teamID int) ([]models.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (nickname, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Nickname,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrUserEmailConflict
			case "users_nickname_key":
				return ErrUserNicknameConflict
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Nickname,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TeamID,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, nickname, email, password_hash, role, team_id, created_at FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, nickname, email, password_hash, role, team_id, created_at FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET nickname = $1, email = $2, password_hash = $3, role = $4, team_id = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		user.Nickname,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TeamID,
		user.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "users_email_key" {
					return ErrUserEmailConflict
				}
				if pqErr.Constraint == "users_nickname_key" {
					return ErrUserNicknameConflict
				}
			case "23503":
				if pqErr.Constraint == "users_team_id_fkey" {
					return ErrUserTeamInvalid
				}
			}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateTeam(ctx context.Context, exec SQLExecutor, userID int, teamID *int) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE users SET team_id = $1 WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, teamID, userID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrUserTeamInvalid
		}
		return fmt.Errorf("failed to update user team: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ListByTeam(ctx context.Context, teamID int) ([]models.User, error) {
	query := `SELECT id, nickname, email, password_hash, role, team_id, created_at FROM users WHERE team_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by team: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Nickname, &u.Email, &u.PasswordHash, &u.Role, &u.TeamID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}
