package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/nurlan-dev/ctf-arena/models"
	"github.com/nurlan-dev/ctf-arena/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserRepo struct {
	users map[int]*models.User
}

func (r *stubUserRepo) Create(ctx context.Context, user *models.User) error { return nil }
func (r *stubUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (r *stubUserRepo) UpdateTeam(ctx context.Context, exec repositories.SQLExecutor, userID int, teamID *int) error {
	return nil
}
func (r *stubUserRepo) ListByTeam(ctx context.Context, teamID int) ([]models.User, error) {
	return nil, nil
}
func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}
func (r *stubUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return user, nil
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runProtected(t *testing.T, secret string, required models.UserRole, repo *stubUserRepo, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	handler := Authenticate(secret)(RequireRole(required, repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateRejectsMissingAndBadTokens(t *testing.T) {
	repo := &stubUserRepo{users: map[int]*models.User{}}

	rec := runProtected(t, "secret", models.RolePlayer, repo, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = runProtected(t, "secret", models.RolePlayer, repo, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Токен подписан другим секретом
	stranger := signToken(t, "other-secret", jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(time.Hour).Unix()})
	rec = runProtected(t, "secret", models.RolePlayer, repo, "Bearer "+stranger)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleReadsRoleFromStore(t *testing.T) {
	secret := "secret"
	repo := &stubUserRepo{users: map[int]*models.User{
		1: {ID: 1, Role: models.RoleAdmin},
		2: {ID: 2, Role: models.RolePlayer},
	}}

	adminToken := signToken(t, secret, jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(time.Hour).Unix()})
	playerToken := signToken(t, secret, jwt.MapClaims{"user_id": 2, "exp": time.Now().Add(time.Hour).Unix()})

	rec := runProtected(t, secret, models.RoleAdmin, repo, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = runProtected(t, secret, models.RoleAdmin, repo, "Bearer "+playerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleHigherRoleCoversLower(t *testing.T) {
	secret := "secret"
	repo := &stubUserRepo{users: map[int]*models.User{
		1: {ID: 1, Role: models.RoleAdmin},
		2: {ID: 2, Role: models.RoleMonitor},
	}}

	adminToken := signToken(t, secret, jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(time.Hour).Unix()})
	monitorToken := signToken(t, secret, jwt.MapClaims{"user_id": 2, "exp": time.Now().Add(time.Hour).Unix()})

	rec := runProtected(t, secret, models.RoleMonitor, repo, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = runProtected(t, secret, models.RoleAdmin, repo, "Bearer "+monitorToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// Нерезолвящаяся личность трактуется как самая низкая привилегия,
// а не как ошибка сервера.
func TestRequireRoleFallsBackToLowestPrivilege(t *testing.T) {
	secret := "secret"
	repo := &stubUserRepo{users: map[int]*models.User{
		3: {ID: 3, Role: models.UserRole("emperor")}, // неизвестная роль
	}}

	// Пользователь удалён после выдачи токена
	ghostToken := signToken(t, secret, jwt.MapClaims{"user_id": 99, "exp": time.Now().Add(time.Hour).Unix()})
	rec := runProtected(t, secret, models.RoleAdmin, repo, "Bearer "+ghostToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Но player-эндпоинты ему всё ещё доступны
	rec = runProtected(t, secret, models.RolePlayer, repo, "Bearer "+ghostToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Неизвестная роль в сторе — тоже самая низкая
	unknownRole := signToken(t, secret, jwt.MapClaims{"user_id": 3, "exp": time.Now().Add(time.Hour).Unix()})
	rec = runProtected(t, secret, models.RoleAdmin, repo, "Bearer "+unknownRole)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = runProtected(t, secret, models.RolePlayer, repo, "Bearer "+unknownRole)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetUserIDFromContext(t *testing.T) {
	ctx := ContextWithClaims(context.Background(), jwt.MapClaims{"user_id": float64(7), "role": "player"})

	id, err := GetUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	role, err := GetUserRoleFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RolePlayer, role)

	_, err = GetUserIDFromContext(context.Background())
	assert.Error(t, err)
}
