package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/eldersbot/core/config"
	tg "github.com/m3rciful/eldersbot/core/telegram"
	"github.com/m3rciful/eldersbot/council/config"
	"github.com/m3rciful/eldersbot/council/domain"
)

func noLogger(*coreconfig.Config) error { return nil }

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	words := filepath.Join(t.TempDir(), "banned.txt")
	if err := os.WriteFile(words, []byte("# banned\nspam\n"), 0o600); err != nil {
		t.Fatalf("write words: %v", err)
	}
	cfg := &config.Config{
		Config:  coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t", AdminID: 1}},
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		Council: config.CouncilConfig{
			BannedWordsPath: words,
			Moderators:      []int64{10},
			Experts:         []int64{20},
		},
	}
	if err := config.Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return cfg
}

func TestNewSeedsGrantsAndFilter(t *testing.T) {
	a, err := New(context.Background(), Options{Config: memoryConfig(t), LoggerInit: noLogger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	for id, want := range map[int64]domain.Role{10: domain.RoleModerator, 20: domain.RoleExpert, 30: domain.RoleAsker} {
		if got, _ := a.Council().RoleOf(ctx, id); got != want {
			t.Fatalf("RoleOf(%d) = %s, want %s", id, got, want)
		}
	}

	if _, err := a.Council().Register(ctx, domain.Actor{ID: 30, DisplayName: "Ann"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := a.Council().Submit(ctx, 30, "cheap SPAM here"); !errors.Is(err, domain.ErrProhibitedContent) {
		t.Fatalf("Submit err = %v, want prohibited", err)
	}
}

func TestTelegramRunOptions(t *testing.T) {
	a, err := New(context.Background(), Options{Config: memoryConfig(t), LoggerInit: noLogger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("TelegramRunOptions: %v", err)
	}
	if opts.Config == nil || opts.Registry == nil || len(opts.Routes) == 0 || len(opts.Middlewares) == 0 {
		t.Fatalf("incomplete run options: %+v", opts)
	}
	for _, key := range []string{"ask", "view", "vote_up", "approve", "menu"} {
		if _, ok := opts.Registry.Callback(key); !ok {
			t.Fatalf("callback %q not registered", key)
		}
	}
	if _, cmd, ok := opts.Registry.LookupCommand("/grant"); !ok || !cmd.AdminOnly {
		t.Fatalf("/grant = %+v, %v", cmd, ok)
	}
	if err := opts.OnStart(context.Background(), tg.Runtime{}); err != nil {
		t.Fatalf("OnStart: %v", err)
	}
	if err := opts.OnStop(context.Background(), tg.Runtime{}); err != nil {
		t.Fatalf("OnStop: %v", err)
	}
}

func TestNewRejectsNilConfig(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
