package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/eldersbot/core/logger"
)

const (
	defaultPoolSize  = 10
	defaultReadyWait = 30 * time.Second
	attemptTimeout   = 5 * time.Second
)

// Connect opens a pooled sqlx handle. A database that is still starting is
// retried with backoff for up to ReadyTimeout (30s by default) or until ctx
// is done.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	wait := cfg.ReadyTimeout
	if wait <= 0 {
		wait = defaultReadyWait
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = wait

	start := time.Now()
	attempts := 0
	db, err := backoff.RetryNotifyWithData(func() (*sqlx.DB, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()
		return sqlx.ConnectContext(attemptCtx, "postgres", cfg.DSN())
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logger.Debug(ctx, "db", "db.connect.retry",
			slog.Int("attempt", attempts),
			slog.Duration("delay", next),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	})
	took := time.Since(start)

	attrs := []slog.Attr{
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Int("attempts", attempts),
		slog.Duration("duration", logger.RoundMS(took)),
	}
	if err != nil {
		logger.Error(ctx, "db", "db.connect", append(attrs, slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := cfg.MaxConnections
	if pool <= 0 {
		pool = defaultPoolSize
	}
	db.SetMaxOpenConns(pool)
	db.SetMaxIdleConns(pool)

	logger.Info(ctx, "db", "db.connect", append(attrs, slog.Int("pool_open", pool))...)
	return db, nil
}
