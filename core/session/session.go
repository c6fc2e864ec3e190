// Package session keeps the authenticated identity and access token of every
// chat and persists the whole table on each change.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups for chats without a session.
var ErrNotFound = errors.New("session: not found")

// Identity is the user profile returned by a successful login.
type Identity struct {
	UserID         string
	Email          string
	OrganizationID string
}

// Session proves a chat is authenticated.
type Session struct {
	ChatID         int64
	UserID         string
	Email          string
	AccessToken    string
	OrganizationID string
	ExpireAt       time.Time
}

// ValidAt reports whether the session is still usable at now.
func (s Session) ValidAt(now time.Time) bool {
	return s.ExpireAt.After(now)
}

// Backend is the durable table behind a Store. It is always read and written whole.
type Backend interface {
	LoadAll(ctx context.Context) (map[int64]Session, error)
	PersistAll(ctx context.Context, sessions map[int64]Session) error
	Name() string
}
