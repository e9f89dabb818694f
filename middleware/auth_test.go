package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givers/givers-backend/config"
	"github.com/givers/givers-backend/models"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWT{
			Secret:     "test-secret",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
	}
}

func testUser(profile string) models.User {
	return models.User{ID: primitive.NewObjectID(), Profile: profile}
}

func authRouter(cfg *config.Config, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(cfg)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id"), "role": c.GetString("role")})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	u := testUser(models.ProfileClient)

	token, err := NewAccessToken(cfg, u)
	require.NoError(t, err)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UserID)
	assert.Equal(t, models.ProfileClient, claims.Profile)
	assert.False(t, claims.Refresh)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, err := NewAccessToken(cfg, testUser(models.ProfileClient))
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "different"
	_, err = ParseToken(other, token)
	assert.Error(t, err)
}

func TestAuthMiddlewareAcceptsAccessToken(t *testing.T) {
	cfg := testConfig()
	u := testUser(models.ProfileClient)
	token, err := NewAccessToken(cfg, u)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authRouter(cfg).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), u.ID.Hex())
}

func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	cfg := testConfig()
	token, err := NewRefreshToken(cfg, testUser(models.ProfileClient))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authRouter(cfg).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	authRouter(testConfig()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly(t *testing.T) {
	cfg := testConfig()

	adminToken, err := NewAccessToken(cfg, testUser(models.ProfileAdmin))
	require.NoError(t, err)
	clientToken, err := NewAccessToken(cfg, testUser(models.ProfileClient))
	require.NoError(t, err)

	r := authRouter(cfg, AdminOnly())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+clientToken)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
