package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env         string
	Port        int
	CORSOrigins []string
	DBURL       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Token secrets have no defaults. Operations that need a missing
	// secret fail with a configuration error at first use.
	ActivationSecret string
	AccessSecret     string
	RefreshSecret    string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	AdminEmail    string
	AdminPassword string
	AdminName     string

	OTLPEndpoint string
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)

	return Config{
		Env:         env,
		Port:        port,
		CORSOrigins: splitCSV(getEnv("CORS_ORIGIN", "")),
		DBURL:       buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ActivationSecret: os.Getenv("ACTIVATION_TOKEN_SECRET"),
		AccessSecret:     os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret:    os.Getenv("REFRESH_TOKEN_SECRET"),

		AccessTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE", 300)) * time.Second,
		RefreshTTL: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE", 3600)) * time.Second,

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "lms")
	pass := getEnv("DB_PASSWORD", "lms")
	name := getEnv("DB_NAME", "lms")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
