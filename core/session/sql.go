package session

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLBackend keeps the table in bot_sessions. It works with any sqlx driver
// whose placeholders sqlx can rebind (postgres, sqlite).
type SQLBackend struct {
	db *sqlx.DB
}

type sessionRow struct {
	ChatID         int64  `db:"chat_id"`
	UserID         string `db:"user_id"`
	Email          string `db:"email"`
	AccessToken    string `db:"access_token"`
	OrganizationID string `db:"organization_id"`
	ExpireAtMS     int64  `db:"expire_at"`
}

const (
	selectSessionsSQL = `SELECT chat_id, user_id, email, access_token, organization_id, expire_at FROM bot_sessions`
	deleteSessionsSQL = `DELETE FROM bot_sessions`
	insertSessionSQL  = `INSERT INTO bot_sessions (chat_id, user_id, email, access_token, organization_id, expire_at) VALUES (?, ?, ?, ?, ?, ?)`
)

// NewSQLBackend wraps an open connection; the schema comes from database.RunMigrations.
func NewSQLBackend(db *sqlx.DB) *SQLBackend {
	return &SQLBackend{db: db}
}

// Name identifies the backend in logs.
func (b *SQLBackend) Name() string { return "sql:" + b.db.DriverName() }

// LoadAll selects every row.
func (b *SQLBackend) LoadAll(ctx context.Context) (map[int64]Session, error) {
	var rows []sessionRow
	if err := b.db.SelectContext(ctx, &rows, selectSessionsSQL); err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	out := make(map[int64]Session, len(rows))
	for _, r := range rows {
		out[r.ChatID] = Session{
			ChatID:         r.ChatID,
			UserID:         r.UserID,
			Email:          r.Email,
			AccessToken:    r.AccessToken,
			OrganizationID: r.OrganizationID,
			ExpireAt:       time.UnixMilli(r.ExpireAtMS).UTC(),
		}
	}
	return out, nil
}

// PersistAll replaces the table contents in one transaction.
func (b *SQLBackend) PersistAll(ctx context.Context, sessions map[int64]Session) (err error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteSessionsSQL); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	insert := tx.Rebind(insertSessionSQL)
	ids := slices.Sorted(maps.Keys(sessions))
	for _, chatID := range ids {
		s := sessions[chatID]
		if _, err = tx.ExecContext(ctx, insert,
			chatID, s.UserID, s.Email, s.AccessToken, s.OrganizationID, s.ExpireAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("insert session %d: %w", chatID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
