package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectOptions supervises the startup connection loop. The zero value
// retries forever with a fixed 5-second delay; tests inject Dial and
// Sleep and bound MaxAttempts.
type ConnectOptions struct {
	Delay       time.Duration
	MaxAttempts int // 0 = unbounded
	Dial        func(dbURL string) (*pgxpool.Pool, error)
	Sleep       func(ctx context.Context, d time.Duration) error
	Log         *slog.Logger
}

// Connect keeps dialing until the store answers, the attempt limit is
// reached, or ctx is cancelled.
func Connect(ctx context.Context, dbURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if opts.Delay <= 0 {
		opts.Delay = 5 * time.Second
	}
	if opts.Dial == nil {
		opts.Dial = NewPool
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	attempt := 0

	for {
		attempt++

		pool, err := opts.Dial(dbURL)

		if err == nil {
			opts.Log.Info("connected to database", "attempt", attempt)
			return pool, nil
		}

		opts.Log.Warn("database connection failed", "attempt", attempt, "err", err)

		if opts.MaxAttempts > 0 && attempt >= opts.MaxAttempts {
			return nil, err
		}

		if serr := opts.Sleep(ctx, opts.Delay); serr != nil {
			return nil, serr
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
