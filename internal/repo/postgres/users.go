package postgres

import (
	"context"
	"errors"

	"github.com/amevide998/lms/internal/domain/user"
	"github.com/amevide998/lms/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// ErrEmailAlreadyUsed maps the users_email unique index. It also closes the
// check-then-insert race between two registrations for the same email: the
// loser of the race gets this instead of a raw constraint violation.
var ErrEmailAlreadyUsed = errors.New("email already in use")

const userColumns = `id, name, email, password_hash, avatar_public_id, avatar_url, role, is_verified, courses, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.scanUser(
			r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email),
			&u,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		return r.scanUser(
			r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id),
			&u,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.observe("users.exists_by_email", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`,
			email,
		).Scan(&exists)
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(
			ctx,
			`INSERT INTO users (`+userColumns+`)
	         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			u.ID, u.Name, u.Email, u.PasswordHash,
			u.Avatar.PublicID, u.Avatar.URL,
			u.Role, u.IsVerified, u.Courses,
			u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Avatar.PublicID,
		&u.Avatar.URL,
		&u.Role,
		&u.IsVerified,
		&u.Courses,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom == nil {
		return fn()
	}

	return r.prom.ObserveDB(op, fn)
}
