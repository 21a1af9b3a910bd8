package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/repositories"
	"golang.org/x/sync/errgroup"
)

// Broadcaster рассылает сообщение подписчикам комнаты игры.
type Broadcaster interface {
	BroadcastToGame(gameID int, message interface{})
}

// ScoreboardEntry — строка снапшота: команда и то, на чём она может
// набирать очки. Подсчёт очков по сабмитам — не зона этого сервиса.
type ScoreboardEntry struct {
	TeamID          int    `json:"team_id"`
	TeamName        string `json:"team_name"`
	Organization    string `json:"organization,omitempty"`
	ChallengeCount  int    `json:"challenge_count"`
	AvailablePoints int    `json:"available_points"`
}

type Scoreboard struct {
	GameID      int               `json:"game_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Entries     []ScoreboardEntry `json:"entries"`
}

// ScoreboardService держит кеш снапшотов по играм и принимает сигнал
// инвалидации. Снапшот строится лениво при первом запросе после сброса.
type ScoreboardService struct {
	participationRepo repositories.ParticipationRepository
	challengeRepo     repositories.ChallengeRepository
	hub               Broadcaster
	logger            *slog.Logger

	mu    sync.RWMutex
	cache map[int]*Scoreboard
}

func NewScoreboardService(
	participationRepo repositories.ParticipationRepository,
	challengeRepo repositories.ChallengeRepository,
	hub Broadcaster,
	logger *slog.Logger,
) *ScoreboardService {
	return &ScoreboardService{
		participationRepo: participationRepo,
		challengeRepo:     challengeRepo,
		hub:               hub,
		logger:            logger,
		cache:             make(map[int]*Scoreboard),
	}
}

func (s *ScoreboardService) Get(ctx context.Context, gameID int) (*Scoreboard, error) {
	s.mu.RLock()
	cached, ok := s.cache[gameID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	board, err := s.build(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[gameID] = board
	s.mu.Unlock()
	return board, nil
}

func (s *ScoreboardService) build(ctx context.Context, gameID int) (*Scoreboard, error) {
	var (
		participations []*models.Participation
		catalog        []models.Challenge
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participations, err = s.participationRepo.ListByGame(gCtx, gameID)
		return err
	})
	g.Go(func() error {
		var err error
		catalog, err = s.challengeRepo.ListByGame(gCtx, nil, gameID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pointsByChallenge := make(map[int]int, len(catalog))
	for _, c := range catalog {
		pointsByChallenge[c.ID] = c.Points
	}

	entries := make([]ScoreboardEntry, 0, len(participations))
	for _, p := range participations {
		if p.Status != models.ParticipationAccepted {
			continue
		}

		instanceIDs, err := s.participationRepo.ListInstanceChallengeIDs(ctx, nil, p.ID)
		if err != nil {
			return nil, err
		}

		entry := ScoreboardEntry{
			TeamID:         p.TeamID,
			Organization:   derefString(p.Organization),
			ChallengeCount: len(instanceIDs),
		}
		if p.Team != nil {
			entry.TeamName = p.Team.Name
		}
		for _, id := range instanceIDs {
			entry.AvailablePoints += pointsByChallenge[id]
		}
		entries = append(entries, entry)
	}

	return &Scoreboard{
		GameID:      gameID,
		GeneratedAt: time.Now(),
		Entries:     entries,
	}, nil
}

// FlushScoreboard сбрасывает кеш игры и уведомляет подписчиков. Вызов
// не блокирует и не возвращает ошибок: если подписчиков нет, таблица
// просто пересоберётся при следующем запросе.
func (s *ScoreboardService) FlushScoreboard(gameID int) {
	s.mu.Lock()
	delete(s.cache, gameID)
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.BroadcastToGame(gameID, map[string]interface{}{
			"type":    "SCOREBOARD_FLUSH",
			"game_id": gameID,
		})
	}

	if s.logger != nil {
		s.logger.Info("scoreboard cache flushed", slog.Int("game_id", gameID))
	}
}
