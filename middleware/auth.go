package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/repositories"
)

type contextKey string

const userContextKey contextKey = "user"

// Authenticate проверяет Bearer-токен и кладёт claims в контекст запроса.
func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает запрос, только если роль пользователя не ниже
// требуемой. Роль берётся из хранилища по user_id из токена: claims могли
// устареть. Если личность не резолвится в роль (нет claims, пользователь
// удалён, роль неизвестна), запрос трактуется как самая низкая привилегия,
// а не отклоняется с ошибкой сервера.
func RequireRole(required models.UserRole, userRepo repositories.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := resolveRole(r.Context(), userRepo)
			if !role.AtLeast(required) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func resolveRole(ctx context.Context, userRepo repositories.UserRepository) models.UserRole {
	userID, err := GetUserIDFromContext(ctx)
	if err != nil {
		return models.RolePlayer
	}

	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.RolePlayer
	}

	if !user.Role.Valid() {
		return models.RolePlayer
	}
	return user.Role
}
