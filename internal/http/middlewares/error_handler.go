package middlewares

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/amevide998/lms/internal/apperr"
	"github.com/amevide998/lms/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorHandler is the single boundary translator: every handler error
// funnels through here and is normalized into the closed taxonomy before
// anything reaches the client.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		if len(ctx.Errors) == 0 || ctx.Writer.Written() {
			return
		}

		err := ctx.Errors.Last().Err
		status, message := Translate(err)

		if status >= http.StatusInternalServerError {
			reqID, _ := ctx.Get("request_id")
			log.Error("request failed", "err", err, "request_id", reqID)
		}

		ctx.JSON(status, gin.H{
			"success": false,
			"message": message,
		})
	}
}

// Translate maps an error to its HTTP status and client message.
// Untagged jwt and postgres conditions are normalized into the taxonomy;
// everything else collapses to an internal-error shape.
func Translate(err error) (int, string) {
	var ae *apperr.Error

	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindValidation,
			apperr.KindDuplicateEmail,
			apperr.KindInvalidCredentials,
			apperr.KindInvalidActivation:
			return http.StatusBadRequest, ae.Message
		case apperr.KindDependency:
			// Reproduced as-is: upstream faults surface as 400 here even
			// though they are arguably 5xx.
			return http.StatusBadRequest, ae.Message
		default:
			return http.StatusInternalServerError, "internal server error"
		}
	}

	// untagged signature/expiry failures
	if errors.Is(err, jwt.ErrTokenExpired) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrTokenMalformed) {
		return http.StatusBadRequest, "invalid or expired activation token"
	}

	// untagged duplicate key
	if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
		return http.StatusBadRequest, "email already exists"
	}

	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return http.StatusBadRequest, "email already exists"
	}

	return http.StatusInternalServerError, "internal server error"
}
