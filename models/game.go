package models

import "time"

// Game представляет игру (CTF-событие).
type Game struct {
	ID      int     `json:"id" db:"id"`
	Title   string  `json:"title" db:"title"`
	Summary *string `json:"summary,omitempty" db:"summary"`
	// Organizations — набор меток-дивизионов, которые команда может выбрать
	// при подаче заявки. Может быть пустым.
	Organizations []string  `json:"organizations,omitempty" db:"organizations"`
	StartTime     time.Time `json:"start_time" db:"start_time"`
	EndTime       time.Time `json:"end_time" db:"end_time"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	PosterKey     *string   `json:"-" db:"poster_key"`
	PosterURL     *string   `json:"poster_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Challenges     []Challenge     `json:"challenges,omitempty" db:"-"`
	Participations []Participation `json:"participations,omitempty" db:"-"`
}

// HasOrganization проверяет, входит ли метка в набор дивизионов игры.
func (g *Game) HasOrganization(org string) bool {
	for _, o := range g.Organizations {
		if o == org {
			return true
		}
	}
	return false
}

// IsRunning сообщает, идёт ли игра в данный момент.
func (g *Game) IsRunning(now time.Time) bool {
	return !now.Before(g.StartTime) && now.Before(g.EndTime)
}
