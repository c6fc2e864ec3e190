package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/copperbot/core/logger"
)

const (
	connectTimeout = 30 * time.Second
	pingInterval   = 2 * time.Second
)

// Connect opens the database, waits until it answers pings and configures the pool.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db connect: empty dsn")
	}
	driver := string(cfg.Dialect)
	attrs := []slog.Attr{
		slog.String("db", driver),
		slog.String("host", cfg.Target),
	}

	start := time.Now()
	db, err := sqlx.Open(driver, cfg.DSN)
	if err != nil {
		logger.Error(ctx, logger.CompDB, "db.connect", append(attrs, slog.String("status", "fail"), logger.Err(err))...)
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := waitReady(ctx, db, connectTimeout); err != nil {
		_ = db.Close()
		logger.Error(ctx, logger.CompDB, "db.ping", append(attrs, slog.String("status", "fail"), logger.Err(err))...)
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	}
	logger.Info(ctx, logger.CompDB, "db.connect", append(attrs,
		slog.String("status", "ok"),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}

// waitReady pings db until it answers or timeout elapses.
func waitReady(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %s: %w", timeout, err)
		case <-ticker.C:
		}
	}
}
