package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/eldersbot/core/config"
	coretelegram "github.com/m3rciful/eldersbot/core/telegram"
)

type testConfig struct{ core *coreconfig.Config }

func (c testConfig) CoreConfig() *coreconfig.Config { return c.core }

type testApp struct {
	closed  bool
	started bool
}

func (a *testApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started = true; return nil },
	}, nil
}

func (a *testApp) Close() error {
	a.closed = true
	return nil
}

func TestRunLifecycle(t *testing.T) {
	t.Setenv("TEST_CONFIG_PATH", "from-env.yaml")
	app := &testApp{}
	var loaded string
	stopped := false

	err := Run(Options[testConfig]{
		ConfigEnvVar:      "TEST_CONFIG_PATH",
		DefaultConfigPath: "default.yaml",
		LoadConfig: func(path string) (testConfig, error) {
			loaded = path
			return testConfig{core: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ctx context.Context, _ testConfig) (TelegramApp, error) {
			if ctx == nil {
				t.Fatal("nil bootstrap context")
			}
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			stopped = true
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loaded != "from-env.yaml" {
		t.Fatalf("loaded %q", loaded)
	}
	if !app.started || !stopped || !app.closed {
		t.Fatalf("started=%v stopped=%v closed=%v", app.started, stopped, app.closed)
	}
}

func TestRunErrors(t *testing.T) {
	if err := Run(Options[testConfig]{}); err == nil {
		t.Fatal("missing hooks accepted")
	}

	boom := errors.New("bad yaml")
	err := Run(Options[testConfig]{
		DefaultConfigPath: "x.yaml",
		ConfigEnvVar:      "UNSET_TEST_CONFIG_PATH",
		LoadConfig:        func(string) (testConfig, error) { return testConfig{}, boom },
		Bootstrap:         func(context.Context, testConfig) (TelegramApp, error) { return nil, nil },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	err = Run(Options[testConfig]{
		DefaultConfigPath: "x.yaml",
		ConfigEnvVar:      "UNSET_TEST_CONFIG_PATH",
		LoadConfig:        func(string) (testConfig, error) { return testConfig{}, nil },
		Bootstrap:         func(context.Context, testConfig) (TelegramApp, error) { return nil, nil },
	})
	if err == nil {
		t.Fatal("config without core section accepted")
	}
}
