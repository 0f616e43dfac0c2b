// Package cmd is the shared main: load config, bootstrap the app and run the
// Telegram runtime until SIGINT or SIGTERM.
package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/eldersbot/core/config"
	"github.com/m3rciful/eldersbot/core/logger"
	coretelegram "github.com/m3rciful/eldersbot/core/telegram"
)

// ConfigCarrier is any bot config that embeds the core section.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp builds the runtime options. Apps that also implement io.Closer
// are closed after the bot stops.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wires Run. C is the bot's own config type.
type Options[C ConfigCarrier] struct {
	// ConfigEnvVar names the variable holding the config path; CONFIG_PATH
	// by default.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (C, error)
	// Bootstrap receives the signal context, so an interrupt also cancels
	// slow startup work such as waiting for the database.
	Bootstrap func(ctx context.Context, cfg C) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run executes the whole lifecycle and returns the first fatal error.
func Run[C ConfigCarrier](opts Options[C]) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}

	env := cmp.Or(opts.ConfigEnvVar, "CONFIG_PATH")
	path := cmp.Or(os.Getenv(env), opts.DefaultConfigPath)
	if path == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}
	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer shutdownLogger(opts.ShutdownLogger)
	if closer, ok := application.(io.Closer); ok {
		defer closeApp(closer)
	}

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	withLifecycleLogs(&runOpts, startedAt)

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// withLifecycleLogs adds the ready and shutdown lines around the app hooks.
func withLifecycleLogs(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown", slog.Duration("uptime", logger.Took(startedAt)))
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}

func closeApp(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Warn(context.Background(), "app", "close",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

func shutdownLogger(fn func() error) {
	if fn == nil {
		fn = logger.Shutdown
	}
	if err := fn(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}
