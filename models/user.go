package models

import "time"

// UserRole задаёт уровень привилегий пользователя.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleMonitor UserRole = "monitor"
	RolePlayer  UserRole = "player"
)

// rolePrivilege определяет порядок ролей для проверки "роль не ниже требуемой".
var rolePrivilege = map[UserRole]int{
	RolePlayer:  1,
	RoleMonitor: 2,
	RoleAdmin:   3,
}

// AtLeast сообщает, покрывает ли роль r требуемую роль required.
// Неизвестная роль считается самой низкой.
func (r UserRole) AtLeast(required UserRole) bool {
	return rolePrivilege[r] >= rolePrivilege[required]
}

func (r UserRole) Valid() bool {
	_, ok := rolePrivilege[r]
	return ok
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Nickname     string    `json:"nickname" db:"nickname"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	TeamID       *int      `json:"team_id,omitempty" db:"team_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Team *Team `json:"team,omitempty" db:"-"`
}
