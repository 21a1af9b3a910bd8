package models

import "time"

// ParticipationStatus представляет статусы заявки, соответствующие ENUM в БД.
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "pending"
	ParticipationAccepted ParticipationStatus = "accepted"
	ParticipationDenied   ParticipationStatus = "denied"
)

func (s ParticipationStatus) Valid() bool {
	switch s {
	case ParticipationPending, ParticipationAccepted, ParticipationDenied:
		return true
	}
	return false
}

// Participation — заявка команды на участие в игре. Центральная сущность:
// хранит статус, непрозрачный токен пары (игра, команда) и набор задач,
// доступных команде (instance set).
type Participation struct {
	ID           int                 `json:"id" db:"id"`
	GameID       int                 `json:"game_id" db:"game_id"`
	TeamID       int                 `json:"team_id" db:"team_id"`
	Organization *string             `json:"organization,omitempty" db:"organization"`
	Token        string              `json:"-" db:"token"`
	Status       ParticipationStatus `json:"status" db:"status"`
	CreatedAt    time.Time           `json:"created_at" db:"created_at"`

	Game       *Game                 `json:"game,omitempty" db:"-"`
	Team       *Team                 `json:"team,omitempty" db:"-"`
	Challenges []Challenge           `json:"challenges,omitempty" db:"-"`
	Members    []ParticipationMember `json:"members,omitempty" db:"-"`
}

// ParticipationMember связывает пользователя с заявкой. game_id и team_id
// денормализованы, чтобы проверка "пользователь уже участвует в игре через
// любую команду" была одним запросом.
type ParticipationMember struct {
	ID              int       `json:"id" db:"id"`
	ParticipationID int       `json:"participation_id" db:"participation_id"`
	UserID          int       `json:"user_id" db:"user_id"`
	GameID          int       `json:"game_id" db:"game_id"`
	TeamID          int       `json:"team_id" db:"team_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
