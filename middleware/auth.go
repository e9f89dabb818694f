package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/givers/givers-backend/config"
	"github.com/givers/givers-backend/models"
)

// Claims carried by both access and refresh tokens.
type Claims struct {
	UserID  string `json:"user_id"`
	Profile string `json:"profile"`
	Refresh bool   `json:"refresh,omitempty"`
	jwt.RegisteredClaims
}

// NewAccessToken signs a short-lived access token for the user.
func NewAccessToken(cfg *config.Config, u models.User) (string, error) {
	return signToken(cfg, u, cfg.JWT.AccessTTL, false)
}

// NewRefreshToken signs a long-lived refresh token for the user.
func NewRefreshToken(cfg *config.Config, u models.User) (string, error) {
	return signToken(cfg, u, cfg.JWT.RefreshTTL, true)
}

func signToken(cfg *config.Config, u models.User, ttl time.Duration, refresh bool) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  u.ID.Hex(),
		Profile: u.Profile,
		Refresh: refresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// ParseToken validates a signed token and returns its claims.
func ParseToken(cfg *config.Config, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.JWT.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// AuthMiddleware requires a valid Bearer access token and stores the
// caller's identity in the request context.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := ParseToken(cfg, strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.Refresh {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Profile)
		c.Next()
	}
}

// AdminOnly rejects callers without the admin profile. Must run after
// AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != models.ProfileAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
