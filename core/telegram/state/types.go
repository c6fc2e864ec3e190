package state

import (
	"context"
	"strings"

	"github.com/m3rciful/copperbot/core/telegram/reply"
)

// Flow is one stage of a multi-step operation together with the data that
// stage needs. Owner names the controller that drives it.
type Flow interface {
	Owner() string
	Stage() string
}

// Manager stores the active flow of each chat.
type Manager interface {
	Get(chatID int64) (Flow, bool)
	Put(chatID int64, f Flow)
	Delete(chatID int64)
	InProgress(chatID int64) bool
	Len() int
}

// Lookup returns the chat's flow if it has the concrete type T.
func Lookup[T Flow](m Manager, chatID int64) (T, bool) {
	var zero T
	f, ok := m.Get(chatID)
	if !ok {
		return zero, false
	}
	v, ok := f.(T)
	return v, ok
}

// OwnedBy reports whether the chat's active flow belongs to owner.
func OwnedBy(m Manager, chatID int64, owner string) bool {
	f, ok := m.Get(chatID)
	return ok && f.Owner() == owner
}

// Event is an inbound text message or callback press reduced to what flow
// controllers need.
type Event struct {
	ChatID int64
	Text   string
	// Callback is the button's unique key; empty for text messages.
	Callback string
	Payload  string
}

// IsCallback reports whether the event is a button press.
func (e Event) IsCallback() bool { return e.Callback != "" }

// Command returns the lowercased slash command at the start of Text without a
// trailing @botname, or "" when Text is not a command.
func (e Event) Command() string {
	if e.IsCallback() {
		return ""
	}
	fields := strings.Fields(e.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") || len(fields[0]) == 1 {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}

// Handler consumes events for the flows it owns. handled=false lets the
// event continue to normal dispatch.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event, r reply.Responder) (handled bool, err error)
}
