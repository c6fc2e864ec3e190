package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m3rciful/copperbot/core/logger"
)

// TransitionFunc observes stage changes. from or to is "" when the flow
// starts or ends.
type TransitionFunc func(owner, from, to string)

type memoryManager struct {
	mu    sync.RWMutex
	flows map[int64]Flow
	onTx  TransitionFunc
}

// MemoryOption customises NewMemoryManager.
type MemoryOption func(*memoryManager)

// WithTransitionObserver registers fn to be called after every Put and Delete.
func WithTransitionObserver(fn TransitionFunc) MemoryOption {
	return func(m *memoryManager) { m.onTx = fn }
}

// NewMemoryManager constructs the in-memory Manager.
func NewMemoryManager(opts ...MemoryOption) Manager {
	m := &memoryManager{flows: make(map[int64]Flow)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the chat's flow.
func (m *memoryManager) Get(chatID int64) (Flow, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.flows[chatID]
	return f, ok
}

// Put replaces the chat's flow. A nil flow deletes it.
func (m *memoryManager) Put(chatID int64, f Flow) {
	if f == nil {
		m.Delete(chatID)
		return
	}
	m.mu.Lock()
	prev, had := m.flows[chatID]
	m.flows[chatID] = f
	m.mu.Unlock()

	from := ""
	if had {
		from = prev.Stage()
		if prev.Owner() != f.Owner() {
			m.observe(chatID, prev.Owner(), from, "")
			from = ""
		}
	}
	m.observe(chatID, f.Owner(), from, f.Stage())
}

// Delete drops the chat's flow if any.
func (m *memoryManager) Delete(chatID int64) {
	m.mu.Lock()
	prev, had := m.flows[chatID]
	delete(m.flows, chatID)
	m.mu.Unlock()
	if had {
		m.observe(chatID, prev.Owner(), prev.Stage(), "")
	}
}

// InProgress reports whether the chat has an active flow.
func (m *memoryManager) InProgress(chatID int64) bool {
	_, ok := m.Get(chatID)
	return ok
}

// Len returns the number of active flows.
func (m *memoryManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.flows)
}

func (m *memoryManager) observe(chatID int64, owner, from, to string) {
	if from == to {
		return
	}
	logger.Debug(context.Background(), "flow."+owner, "flow.transition",
		slog.Int64("chat_id", chatID),
		slog.String("flow", owner),
		slog.String("stage", from),
		slog.String("next_stage", to),
	)
	if m.onTx != nil {
		m.onTx(owner, from, to)
	}
}
