package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/eldersbot/core/logger"
)

// SQLSTATE codes the store cares about.
const (
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeForeignKeyViolation  = "23503"
	CodeUniqueViolation      = "23505"
)

// TxOptions tunes WithTx.
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
	// Attempts bounds retries of serialization failures and deadlocks; 0 means 3.
	Attempts int
}

// WithTx runs fn inside a transaction, committing on nil and rolling back
// otherwise. Transient conflicts reported by Postgres re-run fn from scratch.
func WithTx(ctx context.Context, db *sqlx.DB, opts TxOptions, fn func(*sqlx.Tx) error) error {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = runTx(ctx, db, opts, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		logger.Warn(ctx, "db", "tx.retry",
			slog.String("status", "retry"),
			slog.Int("attempt", attempt),
			slog.String("err_code", SQLState(err)),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*10) * time.Millisecond):
		}
	}
	return err
}

func runTx(ctx context.Context, db *sqlx.DB, opts TxOptions, fn func(*sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: opts.Isolation, ReadOnly: opts.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SQLState extracts the Postgres error code from err, if any.
func SQLState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsRetryable reports whether err is a transient conflict worth re-running.
func IsRetryable(err error) bool {
	switch SQLState(err) {
	case CodeSerializationFailure, CodeDeadlockDetected:
		return true
	}
	return false
}
