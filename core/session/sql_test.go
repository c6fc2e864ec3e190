package session

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/copperbot/core/database"
)

const pgInsert = `INSERT INTO bot_sessions (chat_id, user_id, email, access_token, organization_id, expire_at) VALUES ($1, $2, $3, $4, $5, $6)`

func newMockBackend(t *testing.T) (*SQLBackend, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewSQLBackend(sqlx.NewDb(raw, "postgres")), mock
}

func TestSQLBackendLoadAll(t *testing.T) {
	b, mock := newMockBackend(t)
	expire := time.Date(2030, 5, 6, 7, 8, 9, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectSessionsSQL)).WillReturnRows(
		sqlmock.NewRows([]string{"chat_id", "user_id", "email", "access_token", "organization_id", "expire_at"}).
			AddRow(int64(7), "u7", "a@b.com", "T7", "org", expire.UnixMilli()),
	)

	got, err := b.LoadAll(context.Background())
	require.NoError(t, err)
	require.Contains(t, got, int64(7))
	assert.Equal(t, "T7", got[7].AccessToken)
	assert.True(t, expire.Equal(got[7].ExpireAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendPersistAllRewritesTable(t *testing.T) {
	b, mock := newMockBackend(t)
	expire := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteSessionsSQL)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(pgInsert)).
		WithArgs(int64(1), "u1", "one@b.com", "T1", "", expire.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(pgInsert)).
		WithArgs(int64(2), "u2", "two@b.com", "T2", "o2", expire.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := b.PersistAll(context.Background(), map[int64]Session{
		2: {UserID: "u2", Email: "two@b.com", AccessToken: "T2", OrganizationID: "o2", ExpireAt: expire},
		1: {UserID: "u1", Email: "one@b.com", AccessToken: "T1", ExpireAt: expire},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendPersistAllRollsBack(t *testing.T) {
	b, mock := newMockBackend(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteSessionsSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(pgInsert)).WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := b.PersistAll(context.Background(), map[int64]Session{1: {UserID: "u"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert session 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBackendSQLiteRestart(t *testing.T) {
	ctx := context.Background()
	cfg := database.SQLiteConfig(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, database.RunMigrations(ctx, cfg))

	open := func() *sqlx.DB {
		db, err := database.Connect(ctx, cfg)
		require.NoError(t, err)
		return db
	}

	db := open()
	store := NewStore(ctx, NewSQLBackend(db))
	store.Create(ctx, 42, Identity{UserID: "u1", Email: "a@b.com"}, "T1", time.Now().Add(time.Hour))
	store.Create(ctx, 7, Identity{UserID: "u7"}, "T7", time.Now().Add(time.Hour))
	store.Delete(ctx, 7)
	require.NoError(t, db.Close())

	db = open()
	t.Cleanup(func() { _ = db.Close() })
	restarted := NewStore(ctx, NewSQLBackend(db))
	assert.True(t, restarted.IsValid(42))
	assert.False(t, restarted.IsValid(7))
	assert.Equal(t, 1, restarted.Len())
}
