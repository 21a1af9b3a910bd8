package services

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIsDeterministicPerPair(t *testing.T) {
	source := NewJWTTokenSource("test-secret")
	game := &models.Game{ID: 7}
	team := &models.Team{ID: 3}

	first, err := source.GetToken(game, team)
	require.NoError(t, err)
	second, err := source.GetToken(game, team)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same pair must always produce the same token")
}

func TestTokenDiffersAcrossPairs(t *testing.T) {
	source := NewJWTTokenSource("test-secret")
	game := &models.Game{ID: 7}

	a, err := source.GetToken(game, &models.Team{ID: 3})
	require.NoError(t, err)
	b, err := source.GetToken(game, &models.Team{ID: 4})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestTokenCarriesPairClaims(t *testing.T) {
	secret := "test-secret"
	source := NewJWTTokenSource(secret)

	signed, err := source.GetToken(&models.Game{ID: 7}, &models.Team{ID: 3})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)

	assert.Equal(t, float64(7), claims["game_id"])
	assert.Equal(t, float64(3), claims["team_id"])
	assert.NotContains(t, claims, "iat")
	assert.NotContains(t, claims, "exp")
}
