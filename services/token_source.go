package services

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/nurlan-dev/ctf-arena/models"
)

// TokenSource выдаёт непрозрачный токен пары (игра, команда). Токен обязан
// быть стабильным и детерминированным на всё время жизни пары: по нему
// provisioning-бэкенд сопоставляет запросы на инстансы конкретной команде.
type TokenSource interface {
	GetToken(game *models.Game, team *models.Team) (string, error)
}

type jwtTokenSource struct {
	secret []byte
}

func NewJWTTokenSource(secret string) TokenSource {
	return &jwtTokenSource{secret: []byte(secret)}
}

// GetToken подписывает claims {game_id, team_id} HS256. Временных claims
// нет намеренно: одна и та же пара всегда даёт один и тот же токен.
func (s *jwtTokenSource) GetToken(game *models.Game, team *models.Team) (string, error) {
	claims := jwt.MapClaims{
		"game_id": game.ID,
		"team_id": team.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign participation token: %w", err)
	}
	return signed, nil
}
