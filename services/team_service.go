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

const teamInviteTokenLength = 16 // 32 символа в hex

// TeamService управляет командами и их составом. Это тот самый
// "соседний компонент", который следит за Team.Locked: пока заявка команды
// принята, состав заморожен и любые попытки его изменить отклоняются.
type TeamService interface {
	Create(ctx context.Context, name string, captainID int) (*models.Team, error)
	GetByID(ctx context.Context, teamID int) (*models.Team, error)
	JoinByInviteToken(ctx context.Context, userID int, inviteToken string) (*models.Team, error)
	Leave(ctx context.Context, userID, teamID int) error
	RotateInviteToken(ctx context.Context, teamID, currentUserID int) (string, error)
	UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, reader io.Reader) (*models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
	userRepo repositories.UserRepository
	uploader storage.FileUploader
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
	uploader storage.FileUploader,
) TeamService {
	return &teamService{
		teamRepo: teamRepo,
		userRepo: userRepo,
		uploader: uploader,
	}
}

func (s *teamService) Create(ctx context.Context, name string, captainID int) (*models.Team, error) {
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	captain, err := s.userRepo.GetByID(ctx, captainID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", captainID, err)
	}
	if captain.TeamID != nil {
		return nil, ErrUserAlreadyInTeam
	}

	token, err := generateSecureToken(teamInviteTokenLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	team := &models.Team{
		Name:        name,
		CaptainID:   captainID,
		InviteToken: token,
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	if err := s.userRepo.UpdateTeam(ctx, nil, captainID, &team.ID); err != nil {
		return nil, fmt.Errorf("failed to attach captain to team %d: %w", team.ID, err)
	}

	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	members, err := s.userRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].PasswordHash = ""
	}
	team.Members = members

	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

func (s *teamService) JoinByInviteToken(ctx context.Context, userID int, inviteToken string) (*models.Team, error) {
	team, err := s.teamRepo.GetByInviteToken(ctx, inviteToken)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by invite token: %w", err)
	}

	if team.Locked {
		return nil, ErrTeamLocked
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.TeamID != nil {
		return nil, ErrUserAlreadyInTeam
	}

	if err := s.userRepo.UpdateTeam(ctx, nil, userID, &team.ID); err != nil {
		return nil, fmt.Errorf("failed to join team %d: %w", team.ID, err)
	}
	return team, nil
}

func (s *teamService) Leave(ctx context.Context, userID, teamID int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.Locked {
		return ErrTeamLocked
	}
	if team.CaptainID == userID {
		return ErrCannotRemoveCaptain
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.TeamID == nil || *user.TeamID != teamID {
		return ErrUserNotInTeam
	}

	if err := s.userRepo.UpdateTeam(ctx, nil, userID, nil); err != nil {
		return fmt.Errorf("failed to leave team %d: %w", teamID, err)
	}
	return nil
}

func (s *teamService) RotateInviteToken(ctx context.Context, teamID, currentUserID int) (string, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return "", ErrTeamNotFound
		}
		return "", fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return "", ErrCaptainActionForbidden
	}

	token, err := generateSecureToken(teamInviteTokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}

	if err := s.teamRepo.UpdateInviteToken(ctx, teamID, token); err != nil {
		return "", fmt.Errorf("failed to rotate invite token for team %d: %w", teamID, err)
	}
	return token, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID, currentUserID int, contentType string, reader io.Reader) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return nil, ErrCaptainActionForbidden
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("teams/%d/logo%s", teamID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, reader); err != nil {
		return nil, fmt.Errorf("failed to upload team logo: %w", err)
	}

	if err := s.teamRepo.UpdateLogoKey(ctx, teamID, &key); err != nil {
		return nil, err
	}

	team.LogoKey = &key
	populateTeamLogoURL(team, s.uploader)
	return team, nil
}

func populateTeamLogoURL(team *models.Team, uploader storage.FileUploader) {
	if team != nil && team.LogoKey != nil && *team.LogoKey != "" && uploader != nil {
		url := uploader.GetPublicURL(*team.LogoKey)
		if url != "" {
			team.LogoURL = &url
		}
	}
}
