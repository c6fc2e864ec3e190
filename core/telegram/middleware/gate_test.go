package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/copperbot/core/telegram/reply"
	"github.com/m3rciful/copperbot/core/telegram/state"
)

type stubFlow struct{ owner, stage string }

func (f stubFlow) Owner() string { return f.owner }
func (f stubFlow) Stage() string { return f.stage }

type stubHandler struct {
	handled bool
	err     error
	events  []state.Event
}

func (h *stubHandler) HandleEvent(_ context.Context, ev state.Event, r reply.Responder) (bool, error) {
	h.events = append(h.events, ev)
	return h.handled, h.err
}

type stubSessions map[int64]bool

func (s stubSessions) IsValid(chatID int64) bool { return s[chatID] }

func newGate(flows state.Manager, h *stubHandler, sessions stubSessions, decisions *[]string) *Gate {
	return &Gate{
		Flows:    flows,
		Handlers: map[string]state.Handler{"auth": h},
		Sessions: sessions,
		Public:   PublicCommands("/start", "login", "/Logout"),
		OnDecision: func(d string) {
			*decisions = append(*decisions, d)
		},
	}
}

func TestGatePublicCommandsBypassEverything(t *testing.T) {
	flows := state.NewMemoryManager()
	flows.Put(1, stubFlow{"auth", "awaiting_otp"})
	h := &stubHandler{handled: true}
	var decisions []string
	g := newGate(flows, h, stubSessions{}, &decisions)
	rec := &reply.Recorder{}

	for _, text := range []string{"/login", "/LOGOUT", "/start@copper_bot extra"} {
		forward, err := g.Admit(context.Background(), state.Event{ChatID: 1, Text: text}, rec)
		require.NoError(t, err)
		assert.True(t, forward, text)
	}
	assert.Empty(t, h.events)
	assert.Empty(t, rec.Messages())
	assert.Equal(t, []string{DecisionPublic, DecisionPublic, DecisionPublic}, decisions)
}

func TestGateActiveFlowTakesPriorityOverSession(t *testing.T) {
	flows := state.NewMemoryManager()
	flows.Put(1, stubFlow{"auth", "awaiting_email"})
	h := &stubHandler{handled: true}
	var decisions []string
	g := newGate(flows, h, stubSessions{}, &decisions)
	rec := &reply.Recorder{}

	forward, err := g.Admit(context.Background(), state.Event{ChatID: 1, Text: "a@b.com"}, rec)
	require.NoError(t, err)
	assert.False(t, forward)
	require.Len(t, h.events, 1)
	assert.Equal(t, "a@b.com", h.events[0].Text)
	assert.Empty(t, rec.Messages(), "no auth prompt mid-login")
	assert.Equal(t, []string{DecisionFlow}, decisions)
}

func TestGateUnhandledFlowEventFallsThroughToSessionCheck(t *testing.T) {
	flows := state.NewMemoryManager()
	flows.Put(1, stubFlow{"auth", "awaiting_email"})
	h := &stubHandler{handled: false}
	var decisions []string
	rec := &reply.Recorder{}

	g := newGate(flows, h, stubSessions{}, &decisions)
	forward, err := g.Admit(context.Background(), state.Event{ChatID: 1, Text: "/send"}, rec)
	require.NoError(t, err)
	assert.False(t, forward)
	assert.Equal(t, []string{DefaultAuthPrompt}, rec.Texts())

	g = newGate(flows, h, stubSessions{1: true}, &decisions)
	forward, err = g.Admit(context.Background(), state.Event{ChatID: 1, Text: "/help"}, rec)
	require.NoError(t, err)
	assert.True(t, forward)
	assert.Equal(t, []string{DecisionReject, DecisionForward}, decisions)
}

func TestGateRejectsWithoutSession(t *testing.T) {
	var decisions []string
	g := newGate(state.NewMemoryManager(), &stubHandler{}, stubSessions{2: true}, &decisions)
	g.Prompt = "login first"
	rec := &reply.Recorder{}

	forward, err := g.Admit(context.Background(), state.Event{ChatID: 1, Callback: "menu", Payload: "wallet"}, rec)
	require.NoError(t, err)
	assert.False(t, forward)
	assert.Equal(t, []string{"login first"}, rec.Texts())

	forward, err = g.Admit(context.Background(), state.Event{ChatID: 2, Text: "/wallet"}, rec)
	require.NoError(t, err)
	assert.True(t, forward)
}

func TestGatePropagatesHandlerAndSendErrors(t *testing.T) {
	flows := state.NewMemoryManager()
	flows.Put(1, stubFlow{"auth", "awaiting_otp"})
	boom := errors.New("send failed")
	var decisions []string
	g := newGate(flows, &stubHandler{err: boom}, stubSessions{}, &decisions)

	forward, err := g.Admit(context.Background(), state.Event{ChatID: 1, Text: "1"}, &reply.Recorder{})
	assert.ErrorIs(t, err, boom)
	assert.False(t, forward)

	_, err = g.Admit(context.Background(), state.Event{ChatID: 3, Text: "hi"}, &reply.Recorder{Err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestGateFlowOwnerWithoutHandler(t *testing.T) {
	flows := state.NewMemoryManager()
	flows.Put(1, stubFlow{"transfer", "select_method"})
	var decisions []string
	g := newGate(flows, &stubHandler{handled: true}, stubSessions{1: true}, &decisions)

	forward, err := g.Admit(context.Background(), state.Event{ChatID: 1, Text: "x"}, &reply.Recorder{})
	require.NoError(t, err)
	assert.True(t, forward)
}

func TestGatekeeperMiddleware(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)

	flows := state.NewMemoryManager()
	flows.Put(10, stubFlow{"auth", "awaiting_email"})
	h := &stubHandler{handled: true}
	var decisions []string
	mw := Gatekeeper(newGate(flows, h, stubSessions{20: true}, &decisions))

	calls := 0
	next := mw(func(tele.Context) error { calls++; return nil })

	msg := func(chatID int64, text string) tele.Context {
		return bot.NewContext(tele.Update{ID: 1, Message: &tele.Message{
			Text:   text,
			Chat:   &tele.Chat{ID: chatID},
			Sender: &tele.User{ID: chatID},
		}})
	}

	require.NoError(t, next(msg(10, "a@b.com")))
	assert.Equal(t, 0, calls)
	require.NoError(t, next(msg(20, "/wallet")))
	assert.Equal(t, 1, calls)
	require.NoError(t, next(bot.NewContext(tele.Update{ID: 2})))
	assert.Equal(t, 2, calls, "non message updates pass through")

	require.NoError(t, next(bot.NewContext(tele.Update{ID: 3, Message: &tele.Message{Text: "hi"}})))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{DecisionFlow, DecisionForward, DecisionDrop}, decisions)
}

func TestEventFromCallback(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)

	c := bot.NewContext(tele.Update{Callback: &tele.Callback{Data: "\ftransfer_network|8453"}})
	ev := EventFrom(c, 7)
	assert.Equal(t, state.Event{ChatID: 7, Callback: "transfer_network", Payload: "8453"}, ev)

	c = bot.NewContext(tele.Update{Message: &tele.Message{Text: "  hello "}})
	assert.Equal(t, "hello", EventFrom(c, 7).Text)
}
