package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/copperbot/core/bootstrap"
	"github.com/m3rciful/copperbot/core/buildinfo"
	coreconfig "github.com/m3rciful/copperbot/core/config"
	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/metrics"
	coretelegram "github.com/m3rciful/copperbot/core/telegram"
)

// Options describe how to load configuration, bootstrap the app, and run the bot.
// Nil hooks use the core implementations.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error)
	Migrate    func(ctx context.Context, cfg *coreconfig.Config) error

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	ServeMetrics   func(ctx context.Context, addr string, m *metrics.Metrics) error
}

func (o Options) withDefaults() Options {
	if o.ConfigEnvVar == "" {
		o.ConfigEnvVar = "CONFIG_PATH"
	}
	if o.LoadConfig == nil {
		o.LoadConfig = coreconfig.Load
	}
	if o.Bootstrap == nil {
		o.Bootstrap = func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.Result, error) {
			return bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
		}
	}
	if o.Migrate == nil {
		o.Migrate = func(ctx context.Context, cfg *coreconfig.Config) error {
			if err := logger.InitLogger(cfg); err != nil {
				return err
			}
			return bootstrap.Migrate(ctx, cfg)
		}
	}
	if o.ShutdownLogger == nil {
		o.ShutdownLogger = logger.Shutdown
	}
	if o.RunTelegram == nil {
		o.RunTelegram = coretelegram.RunTelegram
	}
	if o.ServeMetrics == nil {
		o.ServeMetrics = metrics.Serve
	}
	return o
}

// Execute loads .env, wires SIGINT/SIGTERM into the context and runs the CLI.
func Execute(opts Options) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand(opts).ExecuteContext(ctx)
}

// NewRootCommand builds the CLI. The root command and "run" start the bot;
// "migrate" applies session-table migrations.
func NewRootCommand(opts Options) *cobra.Command {
	opts = opts.withDefaults()
	var cfgPath string

	runBot := func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(opts, cfgPath)
		if err != nil {
			return err
		}
		return Run(cmd.Context(), opts, cfg)
	}

	root := &cobra.Command{
		Use:           "copperbot",
		Short:         "Telegram front-end for the Copperx payments API",
		Version:       buildinfo.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runBot,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path (or set "+opts.ConfigEnvVar+")")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the bot (default)",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending session-table migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts, cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = opts.ShutdownLogger() }()
			return opts.Migrate(cmd.Context(), cfg)
		},
	})
	return root
}

// loadConfig resolves the path from the flag, the env var, then DefaultConfigPath.
// An empty result loads from the environment alone.
func loadConfig(opts Options, flagPath string) (*coreconfig.Config, error) {
	cfgPath := flagPath
	if cfgPath == "" {
		cfgPath = os.Getenv(opts.ConfigEnvVar)
	}
	if cfgPath == "" && opts.DefaultConfigPath != "" {
		// The default file is optional; without it the environment is the config.
		if _, err := os.Stat(opts.DefaultConfigPath); err == nil {
			cfgPath = opts.DefaultConfigPath
		}
	}

	if cfgPath != "" {
		log.Printf("loading config: %s", cfgPath)
	}
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cmd: failed to load config: %w", err)
	}
	return cfg, nil
}

// Run bootstraps the app and serves Telegram updates, plus the metrics
// endpoint when configured, until ctx is cancelled or either part fails.
func Run(ctx context.Context, opts Options, cfg *coreconfig.Config) error {
	opts = opts.withDefaults()
	startedAt := time.Now()

	res, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn(ctx, logger.CompDB, "db.close", slog.String("status", "fail"), logger.Err(err))
		}
		if err := opts.ShutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := res.App.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}

	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, logger.CompApp, "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, logger.CompApp, "shutdown")
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return opts.RunTelegram(gctx, runOpts)
	})
	if addr := cfg.Metrics.Listen; addr != "" && res.Metrics != nil {
		g.Go(func() error {
			return opts.ServeMetrics(gctx, addr, res.Metrics)
		})
	}
	return g.Wait()
}
