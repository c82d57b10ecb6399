package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/amevide998/lms/internal/auth"
	"github.com/amevide998/lms/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.

type AccessTokenVerifier interface {
	VerifyAccessToken(token string) (*auth.SessionClaims, error)
}

type SessionReader interface {
	Get(ctx context.Context, userID string) (user.User, bool, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Identity struct {
	tokens   AccessTokenVerifier
	sessions SessionReader
	users    UserGetter
}

func NewIdentity(tokens AccessTokenVerifier, sessions SessionReader, users UserGetter) *Identity {
	return &Identity{tokens: tokens, sessions: sessions, users: users}
}

const ctxUserKey = "auth.user"

// RequireAuth resolves the caller from the access_token cookie (or a
// Bearer header), preferring the session cache and falling back to the
// credential store when the cache entry has aged out.
func (m *Identity) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := accessTokenFrom(c)

		if raw == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := m.tokens.VerifyAccessToken(raw)

		if err != nil {
			abortUnauthorized(c)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		u, ok, err := m.sessions.Get(ctx, claims.UserID)

		if err != nil || !ok {
			u, err = m.users.GetByID(ctx, claims.UserID)

			if err != nil {
				abortUnauthorized(c)
				return
			}
		}

		c.Set(ctxUserKey, u)

		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	if raw, err := c.Cookie("access_token"); err == nil && raw != "" {
		return raw
	}

	header := c.GetHeader("Authorization")

	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	}

	return ""
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": "login required to access this resource",
	})
}

// UserFromContext exposes the resolved identity without handlers needing
// to know the magic key.
func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}

	u, ok := v.(user.User)
	return u, ok
}
