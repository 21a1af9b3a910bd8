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
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrChallengeGameInvalid = errors.New("challenge game conflict or invalid")
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id int) (*models.Challenge, error)
	ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.Challenge, error)
	// Delete удаляет задачу из каталога игры. Уже выданные instance-записи
	// остаются нетронутыми: что было доступно команде, остаётся доступным.
	Delete(ctx context.Context, id int) error
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

func (r *postgresChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	query := `
		INSERT INTO challenges (game_id, title, category, points)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		challenge.GameID,
		challenge.Title,
		challenge.Category,
		challenge.Points,
	).Scan(&challenge.ID, &challenge.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "challenges_game_id_fkey" {
				return ErrChallengeGameInvalid
			}
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *postgresChallengeRepository) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	query := `SELECT id, game_id, title, category, points, created_at FROM challenges WHERE id = $1`

	c := &models.Challenge{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.GameID, &c.Title, &c.Category, &c.Points, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to find challenge: %w", err)
	}
	return c, nil
}

func (r *postgresChallengeRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameID int) ([]models.Challenge, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT id, game_id, title, category, points, created_at FROM challenges WHERE game_id = $1 ORDER BY id`

	rows, err := exec.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges by game: %w", err)
	}
	defer rows.Close()

	challenges := make([]models.Challenge, 0)
	for rows.Next() {
		var c models.Challenge
		if err := rows.Scan(&c.ID, &c.GameID, &c.Title, &c.Category, &c.Points, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating challenge rows: %w", err)
	}
	return challenges, nil
}

func (r *postgresChallengeRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM challenges WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return checkAffectedRows(result, ErrChallengeNotFound)
}
