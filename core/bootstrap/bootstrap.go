// Package bootstrap turns a loaded config into a ready-to-run bot: logger,
// session storage, payments client, metrics and the wired app.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/copperbot/app"
	coreconfig "github.com/m3rciful/copperbot/core/config"
	coredatabase "github.com/m3rciful/copperbot/core/database"
	"github.com/m3rciful/copperbot/core/logger"
	"github.com/m3rciful/copperbot/core/metrics"
	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/session"
	"github.com/m3rciful/copperbot/core/telegram/state"
)

// Options control the bootstrap pipeline. Nil hooks use the core implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	App      *app.App
	Metrics  *metrics.Metrics
	Sessions *session.Store
	// DB is nil unless sessions live in a SQL database.
	DB *sqlx.DB
}

// Close releases the database connection, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, opens session storage and assembles the app.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	m := metrics.New()
	res := &Result{Metrics: m}

	backend, db, err := openBackend(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	res.DB = db

	res.Sessions = session.NewStore(ctx, backend, session.WithSizeObserver(m.SetSessions))
	flows := state.NewMemoryManager(state.WithTransitionObserver(m.FlowTransition))
	client := payments.New(cfg.Payments.BaseURL,
		payments.WithTimeout(time.Duration(cfg.Payments.TimeoutSeconds)*time.Second),
		payments.WithCurrency(cfg.Payments.Currency),
		payments.WithObserver(m.PaymentsRequest),
	)

	res.App, err = app.New(app.Deps{
		Config:   cfg,
		Sessions: res.Sessions,
		Flows:    flows,
		Payments: client,
		Metrics:  m,
	})
	if err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("bootstrap: app init failed: %w", err)
	}

	logger.Info(ctx, logger.CompApp, "bootstrap",
		slog.String("status", "ok"),
		slog.String("session_backend", cfg.Sessions.Backend),
		slog.Int("sessions", res.Sessions.Len()),
	)
	return res, nil
}

// DatabaseFor returns the connection settings of the configured SQL session
// backend. ok is false for the file backend.
func DatabaseFor(cfg *coreconfig.Config) (coredatabase.Config, bool) {
	switch cfg.Sessions.Backend {
	case coreconfig.SessionBackendPostgres:
		return coredatabase.PostgresConfig(cfg.Database), true
	case coreconfig.SessionBackendSQLite:
		return coredatabase.SQLiteConfig(cfg.Sessions.SQLitePath), true
	default:
		return coredatabase.Config{}, false
	}
}

// Migrate applies pending session-table migrations for the configured backend.
func Migrate(ctx context.Context, cfg *coreconfig.Config) error {
	dbCfg, ok := DatabaseFor(cfg)
	if !ok {
		return errors.New("bootstrap: migrations need a postgres or sqlite session backend")
	}
	return coredatabase.RunMigrations(ctx, dbCfg)
}

func openBackend(ctx context.Context, cfg *coreconfig.Config, opts Options) (session.Backend, *sqlx.DB, error) {
	dbCfg, ok := DatabaseFor(cfg)
	if !ok {
		return session.NewFileBackend(cfg.Sessions.FilePath), nil, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, dbCfg); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return session.NewSQLBackend(db), db, nil
}
