package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/m3rciful/copperbot/core/bootstrap"
	coreconfig "github.com/m3rciful/copperbot/core/config"
	"github.com/m3rciful/copperbot/core/metrics"
	coretelegram "github.com/m3rciful/copperbot/core/telegram"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T, metricsAddr string) *coreconfig.Config {
	t.Helper()
	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{Token: "1:x"},
		Payments: coreconfig.PaymentsConfig{BaseURL: "https://api.example.com"},
		Sessions: coreconfig.SessionsConfig{FilePath: filepath.Join(t.TempDir(), "sessions.json")},
		Metrics:  coreconfig.MetricsConfig{Listen: metricsAddr},
	}
	require.NoError(t, coreconfig.Normalize(cfg))
	return cfg
}

func testOptions(t *testing.T, cfg *coreconfig.Config) Options {
	t.Helper()
	return Options{
		LoadConfig: func(string) (*coreconfig.Config, error) { return cfg, nil },
		Bootstrap: func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error) {
			return bootstrap.Run(ctx, bootstrap.Options{
				Config:     cfg,
				LoggerInit: func(*coreconfig.Config) error { return nil },
			})
		},
		ShutdownLogger: func() error { return nil },
	}
}

func TestRunStartsBotWithHooks(t *testing.T) {
	cfg := testConfig(t, "")
	opts := testOptions(t, cfg)

	var started, stopped atomic.Bool
	opts.RunTelegram = func(ctx context.Context, ro coretelegram.RunOptions) error {
		assert.Same(t, cfg, ro.Config)
		assert.NotEmpty(t, ro.Routes)
		assert.NotEmpty(t, ro.Middlewares)
		assert.NoError(t, ro.OnStart(ctx, coretelegram.Runtime{}))
		started.Store(true)
		assert.NoError(t, ro.OnStop(ctx, coretelegram.Runtime{}))
		stopped.Store(true)
		return nil
	}
	opts.ServeMetrics = func(context.Context, string, *metrics.Metrics) error {
		t.Error("metrics server must stay off without metrics.listen")
		return nil
	}

	require.NoError(t, Run(context.Background(), opts, cfg))
	assert.True(t, started.Load())
	assert.True(t, stopped.Load())
}

func TestRunMetricsFailureStopsBot(t *testing.T) {
	cfg := testConfig(t, "127.0.0.1:0")
	opts := testOptions(t, cfg)

	opts.RunTelegram = func(ctx context.Context, _ coretelegram.RunOptions) error {
		<-ctx.Done()
		return nil
	}
	opts.ServeMetrics = func(_ context.Context, addr string, m *metrics.Metrics) error {
		assert.Equal(t, "127.0.0.1:0", addr)
		assert.NotNil(t, m)
		return errors.New("address in use")
	}

	err := Run(context.Background(), opts, cfg)
	assert.EqualError(t, err, "address in use")
}

func TestRunBootstrapFailure(t *testing.T) {
	cfg := testConfig(t, "")
	opts := testOptions(t, cfg)
	opts.Bootstrap = func(context.Context, *coreconfig.Config) (*bootstrap.Result, error) {
		return nil, errors.New("boom")
	}
	err := Run(context.Background(), opts, cfg)
	assert.ErrorContains(t, err, "bootstrap failed")
}

func TestRootCommandConfigResolution(t *testing.T) {
	cfg := testConfig(t, "")
	var gotPath string
	opts := testOptions(t, cfg)
	opts.LoadConfig = func(path string) (*coreconfig.Config, error) {
		gotPath = path
		return cfg, nil
	}
	opts.RunTelegram = func(context.Context, coretelegram.RunOptions) error { return nil }

	t.Setenv("CONFIG_PATH", "/etc/copperbot/env.yaml")
	root := NewRootCommand(opts)
	root.SetArgs([]string{})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "/etc/copperbot/env.yaml", gotPath)

	root = NewRootCommand(opts)
	root.SetArgs([]string{"run", "--config", "flag.yaml"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "flag.yaml", gotPath)
}

func TestMigrateCommand(t *testing.T) {
	cfg := testConfig(t, "")
	opts := testOptions(t, cfg)
	var migrated bool
	opts.Migrate = func(_ context.Context, c *coreconfig.Config) error {
		assert.Same(t, cfg, c)
		migrated = true
		return nil
	}
	opts.RunTelegram = func(context.Context, coretelegram.RunOptions) error {
		t.Error("migrate must not start the bot")
		return nil
	}

	root := NewRootCommand(opts)
	root.SetArgs([]string{"migrate"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.True(t, migrated)
}

func TestLoadConfigError(t *testing.T) {
	opts := Options{LoadConfig: func(string) (*coreconfig.Config, error) {
		return nil, errors.New("missing token")
	}}.withDefaults()
	_, err := loadConfig(opts, "x.yaml")
	assert.ErrorContains(t, err, "failed to load config")
}
