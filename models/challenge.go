package models

import "time"

type Challenge struct {
	ID        int       `json:"id" db:"id"`
	GameID    int       `json:"game_id" db:"game_id"`
	Title     string    `json:"title" db:"title"`
	Category  string    `json:"category" db:"category"`
	Points    int       `json:"points" db:"points"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
