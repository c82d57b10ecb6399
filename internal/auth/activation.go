package auth

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/amevide998/lms/internal/apperr"
	"github.com/amevide998/lms/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultActivationTTL bounds how long a registration can stay pending.
const DefaultActivationTTL = 5 * time.Minute

type ActivationClaims struct {
	User           user.Candidate `json:"user"`
	ActivationCode string         `json:"activationCode"`
	jwt.RegisteredClaims
}

// ActivationCodec issues and verifies the signed token that carries a
// pending registration together with its one-time code. The code is
// delivered out of band; the token alone is not enough to activate.
type ActivationCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewActivationCodec(secret string, ttl time.Duration) *ActivationCodec {
	if ttl <= 0 {
		ttl = DefaultActivationTTL
	}

	return &ActivationCodec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (c *ActivationCodec) Issue(candidate user.Candidate) (token string, code string, err error) {
	if len(c.secret) == 0 {
		return "", "", apperr.Configuration("activation token secret is not configured")
	}

	code, err = newActivationCode()

	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()

	claims := ActivationClaims{
		User:           candidate,
		ActivationCode: code,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			Subject:   candidate.Email,
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)

	if err != nil {
		return "", "", err
	}

	return token, code, nil
}

func (c *ActivationCodec) Verify(token string) (ActivationClaims, error) {
	if len(c.secret) == 0 {
		return ActivationClaims{}, apperr.Configuration("activation token secret is not configured")
	}

	parsed, err := jwt.ParseWithClaims(token, &ActivationClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})

	if err != nil {
		return ActivationClaims{}, apperr.InvalidActivation(err)
	}

	claims, ok := parsed.Claims.(*ActivationClaims)

	if !ok || !parsed.Valid {
		return ActivationClaims{}, apperr.InvalidActivation(errors.New("invalid token"))
	}

	return *claims, nil
}

// newActivationCode draws a uniform 4-digit code in [1000, 9999]. The code
// is independent randomness, never derived from the token's other fields.
func newActivationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))

	if err != nil {
		return "", err
	}

	return strconv.FormatInt(1000+n.Int64(), 10), nil
}
