package services

import (
	"testing"

	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/stretchr/testify/assert"
)

func TestMissingChallengeIDs(t *testing.T) {
	catalog := []models.Challenge{{ID: 1}, {ID: 2}, {ID: 3}}

	assert.Equal(t, []int{1, 2, 3}, missingChallengeIDs(catalog, nil))
	assert.Equal(t, []int{2}, missingChallengeIDs(catalog, []int{1, 3}))
	assert.Empty(t, missingChallengeIDs(catalog, []int{1, 2, 3}))

	// Выданное сверх каталога не считается недостающим и не удаляется
	assert.Empty(t, missingChallengeIDs(catalog[:1], []int{1, 2, 3}))
}

func TestGetExtensionFromContentType(t *testing.T) {
	ext, err := GetExtensionFromContentType("image/png")
	assert.NoError(t, err)
	assert.Equal(t, ".png", ext)

	ext, err = GetExtensionFromContentType("image/svg+xml")
	assert.NoError(t, err)
	assert.Equal(t, ".svg", ext)

	_, err = GetExtensionFromContentType("application/pdf")
	assert.Error(t, err)
}
