package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/repositories"
)

// ScoreboardFlusher принимает сигнал инвалидации кеша результатов игры.
// Сигнал best-effort: его доставка не должна блокировать и не может
// провалить транзакцию заявки.
type ScoreboardFlusher interface {
	FlushScoreboard(gameID int)
}

type JoinGameInput struct {
	UserID       int
	TeamID       int
	GameID       int
	Organization *string
}

// ParticipationService управляет жизненным циклом заявок: создание,
// смена статуса с блокировкой команды, сверка instance set'а с каталогом
// игры и очистка отклонённых заявок.
type ParticipationService interface {
	JoinGame(ctx context.Context, input JoinGameInput) (*models.Participation, error)
	UpdateStatus(ctx context.Context, participationID int, status models.ParticipationStatus) error
	EnsureInstances(ctx context.Context, participationID int) (bool, error)
	SyncInstances(ctx context.Context) error
	RemoveDeniedParticipation(ctx context.Context, userID, gameID int) (bool, error)

	GetByID(ctx context.Context, id int) (*models.Participation, error)
	GetByTeamAndGame(ctx context.Context, teamID, gameID int) (*models.Participation, error)
	GetByUserAndGame(ctx context.Context, userID, gameID int) (*models.Participation, error)
	ListByGame(ctx context.Context, gameID int) ([]*models.Participation, error)
	CountByGame(ctx context.Context, gameID int) (int, error)
}

type participationService struct {
	tx                repositories.TxRunner
	participationRepo repositories.ParticipationRepository
	userRepo          repositories.UserRepository
	teamRepo          repositories.TeamRepository
	gameRepo          repositories.GameRepository
	challengeRepo     repositories.ChallengeRepository
	tokens            TokenSource
	flusher           ScoreboardFlusher
	logger            *slog.Logger
}

func NewParticipationService(
	tx repositories.TxRunner,
	participationRepo repositories.ParticipationRepository,
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	gameRepo repositories.GameRepository,
	challengeRepo repositories.ChallengeRepository,
	tokens TokenSource,
	flusher ScoreboardFlusher,
	logger *slog.Logger,
) ParticipationService {
	return &participationService{
		tx:                tx,
		participationRepo: participationRepo,
		userRepo:          userRepo,
		teamRepo:          teamRepo,
		gameRepo:          gameRepo,
		challengeRepo:     challengeRepo,
		tokens:            tokens,
		flusher:           flusher,
		logger:            logger,
	}
}

// JoinGame создаёт заявку команды на игру от имени пользователя.
// CheckRepeatParticipation здесь — быстрый путь отказа; настоящую защиту от
// гонки двух параллельных заявок даёт уникальный индекс в сторе, его
// нарушение приходит как ErrAlreadyJoined.
func (s *participationService) JoinGame(ctx context.Context, input JoinGameInput) (*models.Participation, error) {
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", input.UserID, err)
	}

	team, err := s.teamRepo.GetByID(ctx, input.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", input.TeamID, err)
	}

	game, err := s.gameRepo.GetByID(ctx, input.GameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", input.GameID, err)
	}

	if user.TeamID == nil || *user.TeamID != team.ID {
		return nil, ErrUserNotInTeam
	}

	if input.Organization != nil && len(game.Organizations) > 0 && !game.HasOrganization(*input.Organization) {
		return nil, ErrInvalidOrganization
	}

	repeated, err := s.participationRepo.CheckRepeatParticipation(ctx, user.ID, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check repeat participation: %w", err)
	}
	if repeated {
		return nil, ErrAlreadyJoined
	}

	token, err := s.tokens.GetToken(game, team)
	if err != nil {
		return nil, err
	}

	participation := &models.Participation{
		GameID:       game.ID,
		TeamID:       team.ID,
		Organization: input.Organization,
		Token:        token,
		Status:       models.ParticipationPending,
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.participationRepo.Create(ctx, exec, participation, user.ID)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrParticipationConflict) {
			return nil, ErrAlreadyJoined
		}
		return nil, err
	}

	return participation, nil
}

// UpdateStatus переводит заявку в новый статус. Переход в accepted — одна
// транзакция: статус, Team.Locked=true и сверка instance set'а; частичное
// применение недопустимо. Остальные переходы только пишут статус, блокировку
// команды они не трогают.
func (s *participationService) UpdateStatus(ctx context.Context, participationID int, status models.ParticipationStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	participation, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipationNotFound) {
			return ErrParticipationNotFound
		}
		return fmt.Errorf("failed to get participation %d: %w", participationID, err)
	}

	if status != models.ParticipationAccepted {
		return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
			return s.participationRepo.UpdateStatus(ctx, exec, participationID, status)
		})
	}

	var changed bool
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.participationRepo.UpdateStatus(ctx, exec, participationID, status); err != nil {
			return err
		}
		if err := s.teamRepo.SetLocked(ctx, exec, participation.TeamID, true); err != nil {
			return err
		}
		changed, err = s.ensureInstances(ctx, exec, participation.ID, participation.GameID)
		return err
	})
	if err != nil {
		return err
	}

	// Кеш результатов сбрасывается только когда набор доступных задач
	// реально вырос: лишь это меняет, на чём команда может набирать очки.
	if changed {
		s.flushScoreboard(participation.GameID)
	}
	return nil
}

// ensureInstances приводит instance set заявки к каталогу игры: добавляет
// недостающее, никогда ничего не удаляет. Возвращает, было ли что-то
// добавлено. Операция коммутативна и идемпотентна, её безопасно вызывать
// на каждом принятии без дополнительных блокировок.
func (s *participationService) ensureInstances(ctx context.Context, exec repositories.SQLExecutor, participationID, gameID int) (bool, error) {
	have, err := s.participationRepo.ListInstanceChallengeIDs(ctx, exec, participationID)
	if err != nil {
		return false, err
	}

	catalog, err := s.challengeRepo.ListByGame(ctx, exec, gameID)
	if err != nil {
		return false, err
	}

	missing := missingChallengeIDs(catalog, have)
	if len(missing) == 0 {
		return false, nil
	}

	if err := s.participationRepo.AddInstances(ctx, exec, participationID, missing); err != nil {
		return false, err
	}
	return true, nil
}

// EnsureInstances — публичная сверка в собственной транзакции. Сигнал
// инвалидации здесь не шлётся: им управляет вызывающая сторона
// (UpdateStatus, SyncInstances).
func (s *participationService) EnsureInstances(ctx context.Context, participationID int) (bool, error) {
	participation, err := s.participationRepo.GetByID(ctx, participationID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipationNotFound) {
			return false, ErrParticipationNotFound
		}
		return false, fmt.Errorf("failed to get participation %d: %w", participationID, err)
	}

	var changed bool
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		changed, err = s.ensureInstances(ctx, exec, participation.ID, participation.GameID)
		return err
	})
	return changed, err
}

// SyncInstances — периодический проход по принятым заявкам идущих игр:
// догоняет instance set'ы после изменений каталога. На игру с изменениями
// кеш сбрасывается один раз.
func (s *participationService) SyncInstances(ctx context.Context) error {
	games, err := s.gameRepo.ListRunning(ctx)
	if err != nil {
		return fmt.Errorf("failed to list running games: %w", err)
	}

	for _, game := range games {
		accepted, err := s.participationRepo.ListAcceptedByGame(ctx, nil, game.ID)
		if err != nil {
			return err
		}

		gameChanged := false
		for _, participation := range accepted {
			var changed bool
			err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
				changed, err = s.ensureInstances(ctx, exec, participation.ID, game.ID)
				return err
			})
			if err != nil {
				return err
			}
			gameChanged = gameChanged || changed
		}

		if gameChanged {
			s.flushScoreboard(game.ID)
		}
	}
	return nil
}

// RemoveDeniedParticipation убирает следы отклонённых заявок пользователя в
// игре, чтобы он мог попробовать зайти через другую команду. Если у
// пользователя есть хоть одна не-denied заявка на игру, очистка отказывает:
// принятую или ожидающую историю молча стирать нельзя. Отказ — это
// (false, nil), не ошибка.
func (s *participationService) RemoveDeniedParticipation(ctx context.Context, userID, gameID int) (bool, error) {
	removed := false
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		hasActive, err := s.participationRepo.HasNonDeniedByUserAndGame(ctx, exec, userID, gameID)
		if err != nil {
			return err
		}
		if hasActive {
			return nil
		}
		if err := s.participationRepo.DeleteMembersByUserAndGame(ctx, exec, userID, gameID); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

func (s *participationService) GetByID(ctx context.Context, id int) (*models.Participation, error) {
	participation, err := s.participationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipationNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}
	return participation, nil
}

func (s *participationService) GetByTeamAndGame(ctx context.Context, teamID, gameID int) (*models.Participation, error) {
	participation, err := s.participationRepo.GetByTeamAndGame(ctx, teamID, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipationNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}
	return participation, nil
}

// GetByUserAndGame отдаёт заявку пользователя вместе с выданным instance
// set'ом: именно этот набор задач команда видит в игре.
func (s *participationService) GetByUserAndGame(ctx context.Context, userID, gameID int) (*models.Participation, error) {
	participation, err := s.participationRepo.GetByUserAndGame(ctx, userID, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipationNotFound) {
			return nil, ErrParticipationNotFound
		}
		return nil, err
	}

	challenges, err := s.participationRepo.ListInstances(ctx, participation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances for participation %d: %w", participation.ID, err)
	}
	participation.Challenges = challenges
	return participation, nil
}

func (s *participationService) ListByGame(ctx context.Context, gameID int) ([]*models.Participation, error) {
	return s.participationRepo.ListByGame(ctx, gameID)
}

func (s *participationService) CountByGame(ctx context.Context, gameID int) (int, error) {
	return s.participationRepo.CountByGame(ctx, gameID)
}

func (s *participationService) flushScoreboard(gameID int) {
	if s.flusher == nil {
		return
	}
	s.flusher.FlushScoreboard(gameID)
	if s.logger != nil {
		s.logger.Debug("scoreboard flush requested", slog.Int("game_id", gameID))
	}
}
