package middleware

import (
	"sync"

	tghelpers "github.com/m3rciful/copperbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ChatLocker hands out one mutex per chat id and forgets it once nobody
// holds or waits for it.
type ChatLocker struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// NewChatLocker returns an empty locker.
func NewChatLocker() *ChatLocker {
	return &ChatLocker{locks: make(map[int64]*chatLock)}
}

// Lock blocks until chatID is free and returns its unlock function.
func (l *ChatLocker) Lock(chatID int64) func() {
	l.mu.Lock()
	cl, ok := l.locks[chatID]
	if !ok {
		cl = &chatLock{}
		l.locks[chatID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, chatID)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of chats currently locked or waited on.
func (l *ChatLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// ChatLock serialises handlers per chat so each chat sees one event at a
// time while different chats run in parallel.
func ChatLock(l *ChatLocker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chatID, ok := tghelpers.ChatID(c)
			if !ok {
				return next(c)
			}
			unlock := l.Lock(chatID)
			defer unlock()
			return next(c)
		}
	}
}
