package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// The auth API is GET/POST only, and clients send the request id header
// back on retries.
const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "Authorization,Content-Type,X-Request-Id"
)

// CORSMiddleware allows the configured browser origins. Credentials are
// always allowed because the session rides in cookies.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[strings.TrimSuffix(origin, "/")] = struct{}{}
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		if origin != "" {
			_, ok := allowed[strings.TrimSuffix(origin, "/")]

			if ok {
				ctx.Header("Access-Control-Allow-Origin", origin)
				ctx.Header("Access-Control-Allow-Credentials", "true")
				ctx.Header("Access-Control-Allow-Methods", corsAllowMethods)
				ctx.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			}

		}

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
