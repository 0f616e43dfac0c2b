package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/eldersbot/core/logger"
)

// Seeder loads reference data once the application services exist.
type Seeder interface {
	Name() string
	Seed(ctx context.Context) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc struct {
	Label string
	Fn    func(ctx context.Context) error
}

// Name returns the label used in seed logs.
func (f SeederFunc) Name() string { return f.Label }

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}

// Seed runs seeders in order and stops at the first failure.
func Seed(ctx context.Context, seeders ...Seeder) error {
	for _, s := range seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		if err := s.Seed(ctx); err != nil {
			logger.Error(ctx, "db.seed", "seed.run",
				slog.String("status", "fail"),
				slog.String("op", s.Name()),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		logger.Info(ctx, "db.seed", "seed.run",
			slog.String("status", "ok"),
			slog.String("op", s.Name()),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	return nil
}
