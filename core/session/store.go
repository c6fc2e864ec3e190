package session

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/m3rciful/copperbot/core/logger"
)

// Store is the in-memory session table, mirrored to a Backend on every mutation.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	backend  Backend
	now      func() time.Time
	onChange func(n int)
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used by IsValid.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSizeObserver registers fn to receive the table size after each change.
func WithSizeObserver(fn func(n int)) Option {
	return func(s *Store) { s.onChange = fn }
}

// NewStore loads the full table from backend. A load failure is logged and
// the store starts empty; it never fails.
func NewStore(ctx context.Context, backend Backend, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[int64]Session),
		backend:  backend,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if backend == nil {
		return s
	}

	start := time.Now()
	loaded, err := backend.LoadAll(ctx)
	if err != nil {
		logger.Warn(ctx, logger.CompSession, "session.load",
			slog.String("status", "fail"),
			slog.String("backend", backend.Name()),
			logger.Err(err),
		)
	} else {
		for chatID, sess := range loaded {
			sess.ChatID = chatID
			s.sessions[chatID] = sess
		}
		logger.Info(ctx, logger.CompSession, "session.load",
			slog.String("status", "ok"),
			slog.String("backend", backend.Name()),
			slog.Int("sessions", len(s.sessions)),
			slog.Duration("duration", logger.Took(start)),
		)
	}
	s.notify(len(s.sessions))
	return s
}

// Create stores a session for chatID, replacing any previous one, and persists
// the table before returning. Persist failures are logged only.
func (s *Store) Create(ctx context.Context, chatID int64, id Identity, accessToken string, expireAt time.Time) Session {
	sess := Session{
		ChatID:         chatID,
		UserID:         id.UserID,
		Email:          id.Email,
		AccessToken:    accessToken,
		OrganizationID: id.OrganizationID,
		ExpireAt:       expireAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = sess
	s.persistLocked(ctx, "create", chatID)
	return sess
}

// Get returns the session for chatID without checking expiry.
func (s *Store) Get(chatID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	return sess, ok
}

// Lookup is Get returning ErrNotFound for absent chats.
func (s *Store) Lookup(chatID int64) (Session, error) {
	sess, ok := s.Get(chatID)
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

// IsValid reports whether chatID has a session whose expiry is in the future.
func (s *Store) IsValid(chatID int64) bool {
	sess, ok := s.Get(chatID)
	return ok && sess.ValidAt(s.now())
}

// Delete removes the session for chatID and persists the table.
// Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[chatID]; !ok {
		return
	}
	delete(s.sessions, chatID)
	s.persistLocked(ctx, "delete", chatID)
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshot returns a copy of the table.
func (s *Store) Snapshot() map[int64]Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.sessions)
}

// persistLocked writes the table while the write lock is held so concurrent
// mutations reach the backend in order.
func (s *Store) persistLocked(ctx context.Context, op string, chatID int64) {
	n := len(s.sessions)
	defer s.notify(n)
	if s.backend == nil {
		return
	}
	start := time.Now()
	err := s.backend.PersistAll(ctx, maps.Clone(s.sessions))
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("op", op),
		slog.Int64("chat_id", chatID),
		slog.String("backend", s.backend.Name()),
		slog.Int("sessions", n),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Error(ctx, logger.CompSession, "session.persist", append(attrs, logger.Err(err))...)
		return
	}
	logger.Debug(ctx, logger.CompSession, "session.persist", attrs...)
}

func (s *Store) notify(n int) {
	if s.onChange != nil {
		s.onChange(n)
	}
}
