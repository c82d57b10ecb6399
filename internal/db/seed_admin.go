package db

import (
	"context"
	"errors"
	"time"

	"github.com/amevide998/lms/internal/config"
	"github.com/amevide998/lms/internal/domain/user"
	"github.com/amevide998/lms/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser seeds the configured admin account on first boot.
// No-op when the account exists or no admin credentials are configured.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         "admin",
		IsVerified:   true,
		Courses:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, avatar_public_id, avatar_url, role, is_verified, courses, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		`,
		u.ID, u.Name, u.Email, u.PasswordHash,
		u.Avatar.PublicID, u.Avatar.URL,
		u.Role, u.IsVerified, u.Courses,
		u.CreatedAt, u.UpdatedAt,
	)

	return err
}
