package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsPerDialect(t *testing.T) {
	for _, d := range []Dialect{Postgres, SQLite} {
		files := listMigrationFiles(filepath.ToSlash(filepath.Join("migrations", string(d))))
		assert.Equal(t, []string{"0001_create_bot_sessions.up.sql"}, files, "dialect %s", d)
	}
}

func TestCountApplied(t *testing.T) {
	files := []string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}
	assert.Equal(t, 0, countApplied(files, 3, 3))
	assert.Equal(t, 2, countApplied(files, 1, 3))
	assert.Equal(t, 3, countApplied(files, 0, 3))
	assert.Equal(t, uint64(12), parseVersion("0012_x.up.sql"))
}

func TestRunMigrationsSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := SQLiteConfig(filepath.Join(t.TempDir(), "bot.db"))

	require.NoError(t, RunMigrations(ctx, cfg))
	// second run is a no-op
	require.NoError(t, RunMigrations(ctx, cfg))

	db, err := Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM bot_sessions`))
	assert.Zero(t, n)
}

func TestPostgresConfigDSN(t *testing.T) {
	cfg := PostgresConfig(configFixture())
	assert.Equal(t, Postgres, cfg.Dialect)
	assert.Equal(t, "postgres://bot:s%40cret@db:5432/wallet?sslmode=disable", cfg.DSN)
	assert.Equal(t, "db:5432/wallet", cfg.Target)
	assert.Equal(t, 3, cfg.MaxConnections)
}
