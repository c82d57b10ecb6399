package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/amevide998/lms/internal/auth"
	"github.com/amevide998/lms/internal/cache"
	"github.com/amevide998/lms/internal/config"
	"github.com/amevide998/lms/internal/http/handlers"
	"github.com/amevide998/lms/internal/http/middlewares"
	"github.com/amevide998/lms/internal/mail"
	"github.com/amevide998/lms/internal/observability"
	"github.com/amevide998/lms/internal/repo/postgres"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 50 << 20 // 50 MiB request body cap

func NewRouter(
	log *slog.Logger,
	pool *pgxpool.Pool,
	redisClient *cache.Client,
	mailer mail.Mailer,
	prom *observability.Prom,
	cfg config.Config,
) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(otelgin.Middleware("lms-api"))

	// metrics must wrap the error translator, or failed requests get
	// observed before the translator writes their real status
	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.ErrorHandler(log))

	// health + metrics

	pings := map[string]func(ctx context.Context) error{}

	if pool != nil {
		pings["db"] = pool.Ping
	}

	if redisClient != nil {
		pings["redis"] = redisClient.Ping
	}

	health := handlers.NewHealthHandler(pings)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// liveness echo kept for client smoke tests
	r.GET("/test", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "api is working fine",
		})
	})

	// wire up repositories and auth collaborators

	usersRepo := postgres.NewUsersRepo(pool, prom)
	sessions := cache.NewSessionCache(redisClient, cfg.RefreshTTL)

	activation := auth.NewActivationCodec(cfg.ActivationSecret, auth.DefaultActivationTTL)
	tokens := auth.NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	authHandler := handlers.NewAuthHandler(usersRepo, sessions, activation, tokens, mailer, cfg, log, prom)
	identity := middlewares.NewIdentity(tokens, sessions, usersRepo)

	v1 := r.Group("/api/v1")

	v1.POST("/register", authHandler.Register)
	v1.POST("/activate", authHandler.Activate)
	v1.POST("/login", authHandler.Login)
	v1.GET("/logout", authHandler.Logout)
	v1.GET("/me", identity.RequireAuth(), authHandler.Me)

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "can't find " + ctx.Request.URL.Path + " on this server",
		})
	})

	return r
}
