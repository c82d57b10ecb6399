package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amevide998/lms/internal/cache"
	"github.com/amevide998/lms/internal/config"
	"github.com/amevide998/lms/internal/db"
	httpx "github.com/amevide998/lms/internal/http"
	"github.com/amevide998/lms/internal/mail"
	"github.com/amevide998/lms/internal/observability"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	// tracing
	shutdownTracer, err := observability.InitTracer(context.Background(), "lms-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracer init failed, continuing without tracing", "err", err)
	}

	// supervised store connection: fixed 5s delay, retry until it answers
	pool, err := db.Connect(context.Background(), cfg.DBURL, db.ConnectOptions{Log: log})

	if err != nil {
		log.Error("database connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	// session cache
	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer redisClient.Close()

	pingCtx, cancelPing := config.WithTimeout(2 * time.Second)

	if err := redisClient.Ping(pingCtx); err != nil {
		cancelPing()
		log.Error("redis ping failed", "err", err)
		os.Exit(1)
	}
	cancelPing()

	// seed the admin account if configured

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)

	if err := db.EnsureAdminUser(seedCtx, pool, cfg); err != nil {
		cancelSeed()
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	cancelSeed()

	// activation mail goes through a circuit breaker so a dead provider
	// fails registrations fast
	mailer := mail.NewProtectedMailer(mail.NewLogMailer(), mail.ProtectedMailerConfig{})

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	router := httpx.NewRouter(log, pool, redisClient, mailer, prom, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		if shutdownTracer != nil {
			if err := shutdownTracer(ctx); err != nil {
				log.Error("tracer shutdown failed", "err", err)
			}
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
