package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nurlan-dev/ctf-arena/models"
)

// missingChallengeIDs возвращает задачи каталога, которых ещё нет в
// instance set'е. Работа с наборами, порядок не имеет значения.
func missingChallengeIDs(catalog []models.Challenge, have []int) []int {
	existing := make(map[int]struct{}, len(have))
	for _, id := range have {
		existing[id] = struct{}{}
	}

	missing := make([]int, 0)
	for _, c := range catalog {
		if _, ok := existing[c.ID]; !ok {
			missing = append(missing, c.ID)
		}
	}
	return missing
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func GetExtensionFromContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		parts := strings.Split(contentType, "/")
		if len(parts) == 2 && strings.HasPrefix(parts[0], "image") && parts[1] != "" {
			return "." + strings.Split(parts[1], "+")[0], nil
		}
		return "", fmt.Errorf("could not determine file extension from content type: %q", contentType)
	}
}
