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
	ErrGameNotFound      = errors.New("game not found")
	ErrGameTitleConflict = errors.New("game title already in use")
)

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, id int) (*models.Game, error)
	List(ctx context.Context) ([]*models.Game, error)
	ListRunning(ctx context.Context) ([]*models.Game, error)
	Update(ctx context.Context, game *models.Game) error
	UpdatePosterKey(ctx context.Context, gameID int, posterKey *string) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (title, summary, organizations, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		game.Title,
		game.Summary,
		pq.Array(game.Organizations),
		game.StartTime,
		game.EndTime,
	).Scan(&game.ID, &game.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "games_title_key" {
				return ErrGameTitleConflict
			}
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) scanGame(rowScanner interface {
	Scan(dest ...interface{}) error
}, game *models.Game) error {
	return rowScanner.Scan(
		&game.ID,
		&game.Title,
		&game.Summary,
		pq.Array(&game.Organizations),
		&game.StartTime,
		&game.EndTime,
		&game.PosterKey,
		&game.CreatedAt,
	)
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `
		SELECT id, title, summary, organizations, start_time, end_time, poster_key, created_at
		FROM games WHERE id = $1`

	game := &models.Game{}
	err := r.scanGame(r.db.QueryRowContext(ctx, query, id), game)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to find game: %w", err)
	}
	return game, nil
}

func (r *postgresGameRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Game, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		game := &models.Game{}
		if err := r.scanGame(rows, game); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}
	return games, nil
}

func (r *postgresGameRepository) List(ctx context.Context) ([]*models.Game, error) {
	query := `
		SELECT id, title, summary, organizations, start_time, end_time, poster_key, created_at
		FROM games ORDER BY start_time DESC`
	return r.list(ctx, query)
}

func (r *postgresGameRepository) ListRunning(ctx context.Context) ([]*models.Game, error) {
	query := `
		SELECT id, title, summary, organizations, start_time, end_time, poster_key, created_at
		FROM games
		WHERE start_time <= now() AND end_time > now()
		ORDER BY start_time`
	return r.list(ctx, query)
}

func (r *postgresGameRepository) Update(ctx context.Context, game *models.Game) error {
	query := `
		UPDATE games
		SET title = $1, summary = $2, organizations = $3, start_time = $4, end_time = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		game.Title,
		game.Summary,
		pq.Array(game.Organizations),
		game.StartTime,
		game.EndTime,
		game.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrGameTitleConflict
		}
		return fmt.Errorf("failed to update game: %w", err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) UpdatePosterKey(ctx context.Context, gameID int, posterKey *string) error {
	query := `UPDATE games SET poster_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, posterKey, gameID)
	if err != nil {
		return fmt.Errorf("failed to update game poster: %w", err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}
