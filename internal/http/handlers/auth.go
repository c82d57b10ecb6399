package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amevide998/lms/internal/apperr"
	"github.com/amevide998/lms/internal/auth"
	"github.com/amevide998/lms/internal/config"
	"github.com/amevide998/lms/internal/domain/user"
	"github.com/amevide998/lms/internal/http/middlewares"
	"github.com/amevide998/lms/internal/mail"
	"github.com/amevide998/lms/internal/observability"
	"github.com/amevide998/lms/internal/repo/postgres"
	"github.com/amevide998/lms/internal/security"
	"github.com/gin-gonic/gin"
)

// Small consumer-side interfaces so tests can fake the stores.

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

type SessionStore interface {
	Put(ctx context.Context, userID string, u user.User) error
	Delete(ctx context.Context, userID string) error
}

const (
	accessCookieName  = "access_token"
	refreshCookieName = "refresh_token"
)

type AuthHandler struct {
	users      UserStore
	sessions   SessionStore
	activation *auth.ActivationCodec
	tokens     *auth.TokenIssuer
	mailer     mail.Mailer
	cfg        config.Config
	log        *slog.Logger
	prom       *observability.Prom
}

func NewAuthHandler(
	users UserStore,
	sessions SessionStore,
	activation *auth.ActivationCodec,
	tokens *auth.TokenIssuer,
	mailer mail.Mailer,
	cfg config.Config,
	log *slog.Logger,
	prom *observability.Prom,
) *AuthHandler {
	return &AuthHandler{
		users:      users,
		sessions:   sessions,
		activation: activation,
		tokens:     tokens,
		mailer:     mailer,
		cfg:        cfg,
		log:        log,
		prom:       prom,
	}
}

// Register checks for a duplicate email, issues the activation token and
// dispatches the code. No user record is written yet; until activation the
// candidate only exists inside the token.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	exists, err := h.users.ExistsByEmail(cctx, req.Email)

	if err != nil {
		h.record("register", "error")
		Fail(ctx, apperr.Dependency("could not check email", err))
		return
	}

	if exists {
		h.record("register", "duplicate_email")
		Fail(ctx, apperr.DuplicateEmail())
		return
	}

	candidate := user.Candidate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}

	token, code, err := h.activation.Issue(candidate)

	if err != nil {
		h.record("register", "error")
		Fail(ctx, err)
		return
	}

	// Dispatch blocks the response on purpose: a token whose code was
	// never delivered must not be treated as issued.
	err = h.observeMail(func() error {
		return h.mailer.SendActivationCode(cctx, mail.SendActivationCodeInput{
			Email: candidate.Email,
			Name:  candidate.Name,
			Code:  code,
		})
	})

	if err != nil {
		h.record("register", "mail_failed")
		Fail(ctx, apperr.Dependency("could not send activation email", err))
		return
	}

	h.record("register", "ok")

	RespondSuccess(ctx, http.StatusCreated, gin.H{
		"message":         fmt.Sprintf("user created successfully, check your email: %s to activate your account", candidate.Email),
		"activationToken": token,
	})
}

// Activate verifies the token, matches the out-of-band code, re-checks the
// email (time has passed since registration) and persists the user. Any
// mismatch fails the whole operation with no partial writes.
func (h *AuthHandler) Activate(ctx *gin.Context) {
	var req user.ActivateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	claims, err := h.activation.Verify(req.ActivationToken)

	if err != nil {
		h.record("activate", "invalid_token")
		Fail(ctx, err)
		return
	}

	// Exact string match. Wrong code is indistinguishable from a bad
	// token to the client.
	if claims.ActivationCode != req.ActivationCode {
		h.record("activate", "wrong_code")
		Fail(ctx, apperr.InvalidActivation(errors.New("activation code mismatch")))
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	exists, err := h.users.ExistsByEmail(cctx, claims.User.Email)

	if err != nil {
		h.record("activate", "error")
		Fail(ctx, apperr.Dependency("could not check email", err))
		return
	}

	if exists {
		h.record("activate", "duplicate_email")
		Fail(ctx, apperr.DuplicateEmail())
		return
	}

	hash, err := security.HashPassword(claims.User.Password)

	if err != nil {
		h.record("activate", "error")
		Fail(ctx, apperr.Wrap(apperr.KindInternal, "could not hash password", err))
		return
	}

	_, err = h.users.Create(cctx, user.NewFromCandidate(claims.User, hash))

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			h.record("activate", "duplicate_email")
			Fail(ctx, apperr.DuplicateEmail())
			return
		}

		h.record("activate", "error")
		Fail(ctx, apperr.Dependency("could not create user", err))
		return
	}

	h.record("activate", "ok")

	RespondSuccess(ctx, http.StatusCreated, gin.H{
		"message": "account activated successfully",
	})
}

// Login is stateless request/response. Unknown email and wrong password
// produce the identical error, so callers cannot enumerate accounts.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			h.record("login", "invalid_credentials")
			Fail(ctx, apperr.InvalidCredentials())
			return
		}

		h.record("login", "error")
		Fail(ctx, apperr.Dependency("could not fetch user", err))
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.record("login", "invalid_credentials")
		Fail(ctx, apperr.InvalidCredentials())
		return
	}

	accessToken, err := h.tokens.SignAccessToken(foundUser.ID)

	if err != nil {
		h.record("login", "error")
		Fail(ctx, err)
		return
	}

	refreshToken, err := h.tokens.SignRefreshToken(foundUser.ID)

	if err != nil {
		h.record("login", "error")
		Fail(ctx, err)
		return
	}

	err = h.sessions.Put(cctx, foundUser.ID, foundUser)

	if err != nil {
		h.record("login", "error")
		Fail(ctx, apperr.Dependency("could not create session", err))
		return
	}

	h.setSessionCookies(ctx, accessToken, refreshToken)

	h.record("login", "ok")

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"user":  foundUser,
		"token": accessToken,
	})
}

// Logout always succeeds. Both cookies are expired; when the access token
// still verifies, the session-cache entry is dropped too, so downstream
// consumers that trust the cache stop seeing the session.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	if raw, err := ctx.Cookie(accessCookieName); err == nil && raw != "" {
		if claims, verr := h.tokens.VerifyAccessToken(raw); verr == nil {
			cctx, cancel := config.WithTimeout(2 * time.Second)
			defer cancel()

			if derr := h.sessions.Delete(cctx, claims.UserID); derr != nil {
				h.log.Warn("session cache delete failed on logout", "user_id", claims.UserID, "err", derr)
			}
		}
	}

	h.clearSessionCookies(ctx)

	h.record("logout", "ok")

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"message": "logged out successfully",
	})
}

// Me returns the identity the middleware resolved from the access token.
func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.UserFromContext(ctx)

	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "login required to access this resource",
		})
		return
	}

	RespondSuccess(ctx, http.StatusOK, gin.H{
		"user": u,
	})
}

// Helper functions

func (h *AuthHandler) setSessionCookies(ctx *gin.Context, accessToken, refreshToken string) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		accessCookieName,
		accessToken,
		int(h.cfg.AccessTTL.Seconds()),
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
	ctx.SetCookie(
		refreshCookieName,
		refreshToken,
		int(h.cfg.RefreshTTL.Seconds()),
		"/",
		"",
		secure,
		true,
	)
}

func (h *AuthHandler) clearSessionCookies(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteLaxMode)

	for _, name := range []string{accessCookieName, refreshCookieName} {
		ctx.SetCookie(
			name,
			"",
			-1,
			"/",
			"",
			secure,
			true,
		)
	}
}

func (h *AuthHandler) record(op, result string) {
	if h.prom == nil {
		return
	}

	h.prom.AuthResults.WithLabelValues(op, result).Inc()
}

func (h *AuthHandler) observeMail(fn func() error) error {
	err := fn()

	if h.prom != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		h.prom.MailSends.WithLabelValues(result).Inc()
	}

	return err
}
