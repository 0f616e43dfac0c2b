// Package app assembles the council services and the Telegram transport
// from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/eldersbot/core/bootstrap"
	coreconfig "github.com/m3rciful/eldersbot/core/config"
	"github.com/m3rciful/eldersbot/core/logger"
	tg "github.com/m3rciful/eldersbot/core/telegram"
	"github.com/m3rciful/eldersbot/core/telegram/router"
	"github.com/m3rciful/eldersbot/core/telegram/state"
	"github.com/m3rciful/eldersbot/council/bot"
	"github.com/m3rciful/eldersbot/council/config"
	"github.com/m3rciful/eldersbot/council/domain"
	"github.com/m3rciful/eldersbot/council/events"
	"github.com/m3rciful/eldersbot/council/filter"
	"github.com/m3rciful/eldersbot/council/notify"
	"github.com/m3rciful/eldersbot/council/service"
	"github.com/m3rciful/eldersbot/council/similarity"
	"github.com/m3rciful/eldersbot/council/store"
	"github.com/m3rciful/eldersbot/council/store/memstore"
	"github.com/m3rciful/eldersbot/council/store/pgstore"
	"github.com/m3rciful/eldersbot/migrations"
)

const (
	sessionPrefix = "eldersbot:fsm"
	pingTimeout   = 5 * time.Second
)

// Options configure New.
type Options struct {
	Config *config.Config
	// LoggerInit defaults to logger.InitLogger.
	LoggerInit func(*coreconfig.Config) error
}

// App owns every long-lived resource of the process.
type App struct {
	cfg      *config.Config
	store    store.Store
	redis    *redis.Client
	council  *service.Council
	notifier *notify.Router
	handlers *bot.Handlers
}

// New runs the bootstrap pipeline, builds the services and seeds the
// configured privilege grants.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:       cfg.CoreConfig(),
		Database:     cfg.Database,
		Migrations:   migrations.FS,
		SkipDatabase: cfg.Storage.Driver == config.DriverMemory,
		LoggerInit:   opts.LoggerInit,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}
	if res.DB != nil {
		a.store = pgstore.New(res.DB)
	} else {
		a.store = memstore.New()
	}

	var words service.ContentFilter
	if cfg.Council.BannedWordsPath != "" {
		words = filter.New(filter.FileTerms{Path: cfg.Council.BannedWordsPath})
	}

	// The router needs the council to resolve moderators and the council
	// publishes into the router.
	var notifier *notify.Router
	a.council = service.New(service.Options{
		Store:  a.store,
		Filter: words,
		Gate:   similarity.NewGate(cfg.Council.DuplicateThreshold),
		Events: events.PublisherFunc(func(ctx context.Context, env events.Envelope) {
			notifier.Publish(ctx, env)
		}),
	})
	notifier = notify.NewRouter(a.council, nil)
	a.notifier = notifier

	if err := bootstrap.Seed(ctx, a.grantSeeder("council.moderators", cfg.Council.Moderators, domain.RoleModerator),
		a.grantSeeder("council.experts", cfg.Council.Experts, domain.RoleExpert)); err != nil {
		_ = a.Close()
		return nil, err
	}

	sessions, err := a.sessions(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.handlers = bot.New(bot.Options{
		Council:  a.council,
		Sessions: sessions,
		PageSize: cfg.Council.PageSize,
		TopSize:  cfg.Council.TopSize,
	})

	logger.Info(ctx, "app", "init",
		slog.String("status", "ok"),
		slog.String("driver", cfg.Storage.Driver),
		slog.Bool("redis_sessions", a.redis != nil),
	)
	return a, nil
}

func (a *App) grantSeeder(label string, ids []int64, role domain.Role) bootstrap.Seeder {
	return bootstrap.SeederFunc{
		Label: label,
		Fn: func(ctx context.Context) error {
			for _, id := range ids {
				if err := a.council.Grant(ctx, id, role); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *App) sessions(ctx context.Context) (state.Manager, error) {
	rc := a.cfg.Redis
	if rc.Addr == "" {
		return state.NewMemoryManager(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("app: redis ping %s: %w", rc.Addr, err)
	}
	a.redis = client
	return state.NewRedisManager(client, state.RedisOptions{Prefix: sessionPrefix, TTL: rc.SessionTTL}), nil
}

// Council exposes the core operations.
func (a *App) Council() *service.Council {
	return a.council
}

// TelegramRunOptions wires the bot handlers into the shared Telegram runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	reg := tg.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}
	routes := router.Routes(reg, router.Options{
		AdminID:  core.Telegram.AdminID,
		Sessions: a.handlers.Sessions(),
	})

	return tg.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			a.notifier.SetSender(notify.TelegramSender{Bot: rt.Bot, Dispatcher: rt.Dispatcher})
			return nil
		},
		OnStop: func(_ context.Context, _ tg.Runtime) error {
			a.notifier.SetSender(nil)
			return nil
		},
	}, nil
}

// Close releases the store and the redis client.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
