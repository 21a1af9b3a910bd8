package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/repositories"
	"github.com/nurlan-dev/ctf-arena/storage"
)

type CreateChallengeInput struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Points   int    `json:"points"`
}

// GameService управляет играми и каталогом задач. Удаление задачи из
// каталога не трогает уже выданные instance set'ы — сверкой занимается
// ParticipationService.
type GameService interface {
	Create(ctx context.Context, game *models.Game) (*models.Game, error)
	GetByID(ctx context.Context, gameID int) (*models.Game, error)
	List(ctx context.Context) ([]*models.Game, error)
	Update(ctx context.Context, game *models.Game) error
	UploadPoster(ctx context.Context, gameID int, contentType string, reader io.Reader) (*models.Game, error)

	AddChallenge(ctx context.Context, gameID int, input CreateChallengeInput) (*models.Challenge, error)
	RemoveChallenge(ctx context.Context, challengeID int) error
	ListChallenges(ctx context.Context, gameID int) ([]models.Challenge, error)
}

type gameService struct {
	gameRepo      repositories.GameRepository
	challengeRepo repositories.ChallengeRepository
	uploader      storage.FileUploader
}

func NewGameService(
	gameRepo repositories.GameRepository,
	challengeRepo repositories.ChallengeRepository,
	uploader storage.FileUploader,
) GameService {
	return &gameService{
		gameRepo:      gameRepo,
		challengeRepo: challengeRepo,
		uploader:      uploader,
	}
}

func (s *gameService) Create(ctx context.Context, game *models.Game) (*models.Game, error) {
	if game.Title == "" {
		return nil, ErrGameTitleRequired
	}
	if !game.StartTime.Before(game.EndTime) {
		return nil, ErrGameInvalidDateRange
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		if errors.Is(err, repositories.ErrGameTitleConflict) {
			return nil, ErrGameTitleConflict
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

func (s *gameService) GetByID(ctx context.Context, gameID int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", gameID, err)
	}

	challenges, err := s.challengeRepo.ListByGame(ctx, nil, gameID)
	if err != nil {
		return nil, err
	}
	game.Challenges = challenges

	populateGamePosterURL(game, s.uploader)
	return game, nil
}

func (s *gameService) List(ctx context.Context) ([]*models.Game, error) {
	games, err := s.gameRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, game := range games {
		populateGamePosterURL(game, s.uploader)
	}
	return games, nil
}

func (s *gameService) Update(ctx context.Context, game *models.Game) error {
	if game.Title == "" {
		return ErrGameTitleRequired
	}
	if !game.StartTime.Before(game.EndTime) {
		return ErrGameInvalidDateRange
	}

	err := s.gameRepo.Update(ctx, game)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		if errors.Is(err, repositories.ErrGameTitleConflict) {
			return ErrGameTitleConflict
		}
	}
	return err
}

func (s *gameService) UploadPoster(ctx context.Context, gameID int, contentType string, reader io.Reader) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", gameID, err)
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("games/%d/poster%s", gameID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload game poster: %w", err)
	}

	if err := s.gameRepo.UpdatePosterKey(ctx, gameID, &key); err != nil {
		return nil, err
	}

	game.PosterKey = &key
	populateGamePosterURL(game, s.uploader)
	return game, nil
}

func (s *gameService) AddChallenge(ctx context.Context, gameID int, input CreateChallengeInput) (*models.Challenge, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("%w: challenge title is required", ErrValidationFailed)
	}

	if _, err := s.gameRepo.GetByID(ctx, gameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", gameID, err)
	}

	challenge := &models.Challenge{
		GameID:   gameID,
		Title:    input.Title,
		Category: input.Category,
		Points:   input.Points,
	}

	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		if errors.Is(err, repositories.ErrChallengeGameInvalid) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return challenge, nil
}

func (s *gameService) RemoveChallenge(ctx context.Context, challengeID int) error {
	err := s.challengeRepo.Delete(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return ErrChallengeNotFound
		}
	}
	return err
}

func (s *gameService) ListChallenges(ctx context.Context, gameID int) ([]models.Challenge, error) {
	return s.challengeRepo.ListByGame(ctx, nil, gameID)
}

func populateGamePosterURL(game *models.Game, uploader storage.FileUploader) {
	if game != nil && game.PosterKey != nil && *game.PosterKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*game.PosterKey)
		if url != "" {
			game.PosterURL = &url
		}
	}
}
