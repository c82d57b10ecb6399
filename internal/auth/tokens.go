package auth

import (
	"errors"
	"time"

	"github.com/amevide998/lms/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type SessionClaims struct {
	UserID    string `json:"id"`
	TokenType string `json:"typ"`
	JTI       string `json:"jti"`
	jwt.RegisteredClaims
}

// TokenIssuer mints the access and refresh tokens a login hands out.
// Each token embeds its own expiry claim, so a captured token dies at
// its exp even when replayed without the cookie that carried it.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (i *TokenIssuer) SignAccessToken(userID string) (string, error) {
	if len(i.accessSecret) == 0 {
		return "", apperr.Configuration("access token secret is not configured")
	}

	return i.sign(userID, "access", i.accessSecret, i.accessTTL)
}

func (i *TokenIssuer) SignRefreshToken(userID string) (string, error) {
	if len(i.refreshSecret) == 0 {
		return "", apperr.Configuration("refresh token secret is not configured")
	}

	return i.sign(userID, "refresh", i.refreshSecret, i.refreshTTL)
}

func (i *TokenIssuer) sign(userID, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := SessionClaims{
		UserID:    userID,
		TokenType: tokenType,
		JTI:       uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   userID,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (i *TokenIssuer) VerifyAccessToken(tokenStr string) (*SessionClaims, error) {
	if len(i.accessSecret) == 0 {
		return nil, apperr.Configuration("access token secret is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.accessSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)

	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.TokenType != "access" {
		return nil, errors.New("invalid token type")
	}

	return claims, nil
}
