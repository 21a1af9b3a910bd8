package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrTeamNameRequired       = errors.New("team name is required")
	ErrGameTitleRequired      = errors.New("game title is required")
	ErrGameInvalidDateRange   = errors.New("game end time must be after start time")
	ErrUserAlreadyInTeam      = errors.New("user is already in a team")
	ErrUserNotInTeam          = errors.New("user is not a member of this team")
	ErrTeamLocked             = errors.New("team roster is locked")
	ErrCannotRemoveCaptain    = errors.New("cannot remove the team captain")
	ErrInvalidOrganization    = errors.New("organization is not allowed for this game")
	ErrInvalidStatus          = errors.New("invalid participation status")
	ErrCleanupRefused         = errors.New("cleanup refused: user has a non-denied participation")

	// Ошибки конфликтов
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserNicknameConflict = errors.New("nickname is already in use")
	ErrTeamNameConflict     = errors.New("team name is already in use")
	ErrGameTitleConflict    = errors.New("game title already exists")
	ErrAlreadyJoined        = errors.New("user or team has already joined this game")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrCaptainActionForbidden = errors.New("only the team captain can perform this action")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound          = errors.New("user not found")
	ErrTeamNotFound          = errors.New("team not found")
	ErrGameNotFound          = errors.New("game not found")
	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrParticipationNotFound = errors.New("participation not found")
)
